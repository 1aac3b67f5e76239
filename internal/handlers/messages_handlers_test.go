package handlers

import (
	"testing"

	"github.com/planora/backend/internal/models"
)

func createTestConversation(t *testing.T, env *testEnv, participants ...*models.User) *models.Conversation {
	t.Helper()

	conversation := &models.Conversation{}
	for _, p := range participants {
		conversation.Participants = append(conversation.Participants, *p)
	}
	if err := env.db.Create(conversation).Error; err != nil {
		t.Fatalf("failed creating conversation: %v", err)
	}
	return conversation
}

func TestCreateConversationNeedsAnotherParticipant(t *testing.T) {
	env := setupTestEnv(t)
	alice, aliceToken := createTestUser(t, env.db, "Alice", "alice@example.com", "password123", models.UserRoleUser)
	bob, _ := createTestUser(t, env.db, "Bob", "bob@example.com", "password123", models.UserRoleUser)

	// Only themselves in the list is not a conversation.
	resp := performJSONRequest(t, env.app, "POST", "/api/conversations", map[string]any{
		"participantIDs": []string{alice.ID.String()},
	}, authHeaders(aliceToken))
	assertStatus(t, resp, 400)
	resp.Body.Close()

	resp = performJSONRequest(t, env.app, "POST", "/api/conversations", map[string]any{
		"participantIDs": []string{bob.ID.String()},
	}, authHeaders(aliceToken))
	assertStatus(t, resp, 201)
	data := envelopeData(t, decodeJSONMap(t, resp))
	participants, _ := data["participants"].([]any)
	if len(participants) != 2 {
		t.Fatalf("expected both participants, got %+v", data)
	}
}

func TestSendMessageNotifiesOtherParticipants(t *testing.T) {
	env := setupTestEnv(t)
	alice, aliceToken := createTestUser(t, env.db, "Alice", "alice@example.com", "password123", models.UserRoleUser)
	bob, bobToken := createTestUser(t, env.db, "Bob", "bob@example.com", "password123", models.UserRoleUser)
	carol, _ := createTestUser(t, env.db, "Carol", "carol@example.com", "password123", models.UserRoleUser)

	conversation := createTestConversation(t, env, alice, bob, carol)

	resp := performJSONRequest(t, env.app, "POST", "/api/conversations/"+conversation.ID.String()+"/messages", map[string]any{
		"content": "See you all Saturday",
	}, authHeaders(aliceToken))
	assertStatus(t, resp, 201)
	resp.Body.Close()

	var count int64
	env.db.Model(&models.Notification{}).Where("related_table = ?", models.RelatedTableMessage).Count(&count)
	if count != 2 {
		t.Fatalf("expected notifications for the two other participants, got %d", count)
	}
	env.db.Model(&models.Notification{}).Where("recipient_id = ?", alice.ID).Count(&count)
	if count != 0 {
		t.Fatalf("expected no self-notification for the sender, got %d", count)
	}

	// Opening the thread clears Bob's badge.
	resp = performRequest(t, env.app, "GET", "/api/conversations/"+conversation.ID.String()+"/messages", nil, authHeaders(bobToken))
	assertStatus(t, resp, 200)
	body := decodeJSONMap(t, resp)
	messages, _ := body["data"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %+v", body["data"])
	}

	unread, err := env.notifications.CountUnreadByTable(bob.ID, models.RelatedTableMessage)
	if err != nil {
		t.Fatalf("CountUnreadByTable failed: %v", err)
	}
	if unread != 0 {
		t.Fatalf("expected Bob's message badge cleared, got %d", unread)
	}

	unread, err = env.notifications.CountUnreadByTable(carol.ID, models.RelatedTableMessage)
	if err != nil {
		t.Fatalf("CountUnreadByTable failed: %v", err)
	}
	if unread != 1 {
		t.Fatalf("expected Carol's badge untouched, got %d", unread)
	}
}

func TestConversationAccessLimitedToParticipants(t *testing.T) {
	env := setupTestEnv(t)
	alice, _ := createTestUser(t, env.db, "Alice", "alice@example.com", "password123", models.UserRoleUser)
	bob, _ := createTestUser(t, env.db, "Bob", "bob@example.com", "password123", models.UserRoleUser)
	_, malloryToken := createTestUser(t, env.db, "Mallory", "mallory@example.com", "password123", models.UserRoleUser)

	conversation := createTestConversation(t, env, alice, bob)

	resp := performRequest(t, env.app, "GET", "/api/conversations/"+conversation.ID.String()+"/messages", nil, authHeaders(malloryToken))
	assertStatus(t, resp, 403)
	resp.Body.Close()

	resp = performJSONRequest(t, env.app, "POST", "/api/conversations/"+conversation.ID.String()+"/messages", map[string]any{
		"content": "let me in",
	}, authHeaders(malloryToken))
	assertStatus(t, resp, 403)
	resp.Body.Close()

	// The outsider's conversation list stays empty.
	resp = performRequest(t, env.app, "GET", "/api/conversations", nil, authHeaders(malloryToken))
	assertStatus(t, resp, 200)
	body := decodeJSONMap(t, resp)
	if conversations, _ := body["data"].([]any); len(conversations) != 0 {
		t.Fatalf("expected no conversations for outsider, got %+v", conversations)
	}
}
