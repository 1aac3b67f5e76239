package handlers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/planora/backend/internal/models"
)

func TestNotificationListCountsUnreadOnly(t *testing.T) {
	env := setupTestEnv(t)
	user, token := createTestUser(t, env.db, "Alice", "alice@example.com", "password123", models.UserRoleUser)

	first := uuid.New()
	second := uuid.New()
	if err := env.notifications.Notify(user.ID, models.NotificationTypeActivity, models.RelatedTableActivity, &first); err != nil {
		t.Fatalf("failed creating notification: %v", err)
	}
	if err := env.notifications.Notify(user.ID, models.NotificationTypeActivity, models.RelatedTableActivity, &second); err != nil {
		t.Fatalf("failed creating notification: %v", err)
	}
	if err := env.db.Model(&models.Notification{}).Where("related_id = ?", first).Update("is_read", true).Error; err != nil {
		t.Fatalf("failed marking notification read: %v", err)
	}

	resp := performRequest(t, env.app, "GET", "/api/notifications", nil, authHeaders(token))
	assertStatus(t, resp, 200)
	data := envelopeData(t, decodeJSONMap(t, resp))

	// count covers unread rows only; the list carries everything.
	if count, _ := data["count"].(float64); count != 1 {
		t.Fatalf("expected count 1, got %v", data["count"])
	}
	notifications, _ := data["notifications"].([]any)
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications in list, got %d", len(notifications))
	}
	item := notifications[0].(map[string]any)
	for _, key := range []string{"id", "isRead", "relatedTable", "relatedId"} {
		if _, ok := item[key]; !ok {
			t.Fatalf("expected key %q in notification item, got %+v", key, item)
		}
	}
}

func TestNotificationUnreadCountsBucketsByTable(t *testing.T) {
	env := setupTestEnv(t)
	user, token := createTestUser(t, env.db, "Alice", "alice@example.com", "password123", models.UserRoleUser)

	activityID := uuid.New()
	invitationID := uuid.New()
	messageID := uuid.New()
	if err := env.notifications.Notify(user.ID, models.NotificationTypeActivity, models.RelatedTableActivity, &activityID); err != nil {
		t.Fatalf("failed creating notification: %v", err)
	}
	if err := env.notifications.Notify(user.ID, models.NotificationTypeInvitationReceived, models.RelatedTableInvitation, &invitationID); err != nil {
		t.Fatalf("failed creating notification: %v", err)
	}
	if err := env.notifications.Notify(user.ID, models.NotificationTypeMessageReceived, models.RelatedTableMessage, &messageID); err != nil {
		t.Fatalf("failed creating notification: %v", err)
	}

	resp := performRequest(t, env.app, "GET", "/api/notifications/unread-counts", nil, authHeaders(token))
	assertStatus(t, resp, 200)
	data := envelopeData(t, decodeJSONMap(t, resp))

	for _, table := range []string{"activity", "invitation", "message"} {
		if count, _ := data[table].(float64); count != 1 {
			t.Fatalf("expected %s count 1, got %v", table, data[table])
		}
	}
	if total, _ := data["total"].(float64); total != 3 {
		t.Fatalf("expected total 3, got %v", data["total"])
	}
}

func TestNotificationMarkAllReadScopedToRecipient(t *testing.T) {
	env := setupTestEnv(t)
	alice, aliceToken := createTestUser(t, env.db, "Alice", "alice@example.com", "password123", models.UserRoleUser)
	bob, bobToken := createTestUser(t, env.db, "Bob", "bob@example.com", "password123", models.UserRoleUser)

	aliceRelated := uuid.New()
	bobRelated := uuid.New()
	if err := env.notifications.Notify(alice.ID, models.NotificationTypeActivity, models.RelatedTableActivity, &aliceRelated); err != nil {
		t.Fatalf("failed creating notification: %v", err)
	}
	if err := env.notifications.Notify(bob.ID, models.NotificationTypeActivity, models.RelatedTableActivity, &bobRelated); err != nil {
		t.Fatalf("failed creating notification: %v", err)
	}

	resp := performJSONRequest(t, env.app, "POST", "/api/notifications/mark-as-read", nil, authHeaders(aliceToken))
	assertStatus(t, resp, 200)
	data := envelopeData(t, decodeJSONMap(t, resp))
	if updated, _ := data["updated"].(float64); updated != 1 {
		t.Fatalf("expected 1 updated notification, got %v", data["updated"])
	}

	resp = performRequest(t, env.app, "GET", "/api/notifications", nil, authHeaders(bobToken))
	assertStatus(t, resp, 200)
	data = envelopeData(t, decodeJSONMap(t, resp))
	if count, _ := data["count"].(float64); count != 1 {
		t.Fatalf("expected Bob's notification to stay unread, got count %v", data["count"])
	}
}
