package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/planora/backend/internal/models"
)

func feedUser(name, email string) *models.User {
	u := &models.User{Name: name, Email: email}
	u.ID = uuid.New()
	return u
}

func feedEventNamed(title string) *models.Event {
	e := &models.Event{Title: title}
	e.ID = uuid.New()
	return e
}

func TestRenderVoteWithOptionText(t *testing.T) {
	actor := feedUser("Bob", "bob@example.com")
	event := feedEventNamed("Dinner Plans")
	activity := models.Activity{
		Action:  models.ActionVote,
		ActorID: &actor.ID,
		Actor:   actor,
		Event:   event,
		Details: map[string]interface{}{
			"poll_question": "Pizza or sushi?",
			"option_text":   "Pizza",
		},
	}

	viewer := feedUser("Alice", "alice@example.com")
	got := RenderMessage(activity, viewer)
	want := "Bob voted for 'Pizza' on the poll 'Pizza or sushi?' of the event 'Dinner Plans' ✔️"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	// The actor reads the same entry in the first person.
	got = RenderMessage(activity, actor)
	if !strings.HasPrefix(got, "You voted for 'Pizza'") {
		t.Fatalf("expected first-person phrasing, got %q", got)
	}
}

func TestRenderVoteWithoutOptionText(t *testing.T) {
	actor := feedUser("Bob", "bob@example.com")
	event := feedEventNamed("Dinner Plans")
	activity := models.Activity{
		Action:  models.ActionVote,
		Actor:   actor,
		Event:   event,
		Details: map[string]interface{}{"poll_question": "Pizza or sushi?"},
	}

	got := RenderMessage(activity, nil)
	want := "Bob voted on the poll 'Pizza or sushi?' of the event 'Dinner Plans' ✔️"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderCommentEvent(t *testing.T) {
	actor := feedUser("Bob", "bob@example.com")
	event := feedEventNamed("Dinner Plans")
	activity := models.Activity{
		Action:  models.ActionCommentEvent,
		ActorID: &actor.ID,
		Actor:   actor,
		Event:   event,
	}

	viewer := feedUser("Alice", "alice@example.com")
	got := RenderMessage(activity, viewer)
	want := "Bob commented on the event 'Dinner Plans' 💬"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	got = RenderMessage(activity, actor)
	want = "You commented on the event 'Dinner Plans' 💬"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	activity.Event = nil
	got = RenderMessage(activity, viewer)
	want = "Bob commented on the event 'a deleted event' 💬"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderFallbacksForMissingDetails(t *testing.T) {
	actor := feedUser("Bob", "bob@example.com")
	event := feedEventNamed("Dinner Plans")

	activity := models.Activity{
		Action: models.ActionCreatePoll,
		Actor:  actor,
		Event:  event,
	}
	if got := RenderMessage(activity, nil); !strings.Contains(got, "'a poll'") {
		t.Fatalf("expected poll fallback, got %q", got)
	}

	activity = models.Activity{
		Action: models.ActionDeleteGuest,
		Actor:  actor,
		Event:  event,
	}
	if got := RenderMessage(activity, nil); !strings.Contains(got, "the guest a guest") {
		t.Fatalf("expected guest fallback, got %q", got)
	}
}

func TestRenderDeletedActorAndEvent(t *testing.T) {
	activity := models.Activity{Action: models.ActionUpdateEvent}

	got := RenderMessage(activity, nil)
	want := "A deleted user updated the event 'a deleted event' ✏️"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderAnonymousGuestActor(t *testing.T) {
	event := feedEventNamed("Dinner Plans")
	activity := models.Activity{
		Action: models.ActionVote,
		Event:  event,
		Details: map[string]interface{}{
			"poll_question": "Pizza or sushi?",
			"option_text":   "Sushi",
			"guest_name":    "Cousin Eddie",
		},
	}

	got := RenderMessage(activity, nil)
	if !strings.HasPrefix(got, "A guest voted for 'Sushi'") {
		t.Fatalf("expected anonymous guest phrasing, got %q", got)
	}
}

func TestRenderConfirmInvitationStatuses(t *testing.T) {
	actor := feedUser("Bob", "bob@example.com")
	target := feedUser("Carol", "carol@example.com")
	event := feedEventNamed("Garden Brunch")

	base := models.Activity{
		Action:     models.ActionConfirmInvitation,
		Actor:      actor,
		TargetUser: target,
		Event:      event,
	}

	cases := []struct {
		status     string
		wantTarget string
		wantOther  string
	}{
		{"accepted", "You accepted your invitation to the event 'Garden Brunch' ✅", "Carol accepted their invitation to the event 'Garden Brunch' ✅"},
		{"declined", "You declined your invitation to the event 'Garden Brunch' 🚫", "Carol declined their invitation to the event 'Garden Brunch' 🚫"},
		{"maybe", "You said you might come to the event 'Garden Brunch' 🤔", "Carol said they might come to the event 'Garden Brunch' 🤔"},
	}

	for _, tc := range cases {
		activity := base
		activity.Details = map[string]interface{}{"status": tc.status}

		if got := RenderMessage(activity, target); got != tc.wantTarget {
			t.Fatalf("status %s viewer=target: got %q, want %q", tc.status, got, tc.wantTarget)
		}
		if got := RenderMessage(activity, actor); got != tc.wantOther {
			t.Fatalf("status %s viewer=other: got %q, want %q", tc.status, got, tc.wantOther)
		}
	}
}

func TestRenderConfirmInvitationUnknownStatusAndGuestIdentity(t *testing.T) {
	event := feedEventNamed("Garden Brunch")
	activity := models.Activity{
		Action: models.ActionConfirmInvitation,
		Event:  event,
		Details: map[string]interface{}{
			"status":      "postponed",
			"guest_email": "eddie@example.com",
		},
	}

	got := RenderMessage(activity, nil)
	want := "eddie@example.com responded 'postponed' to the invitation for the event 'Garden Brunch' 📝"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderConfirmInvitationMissingStatus(t *testing.T) {
	event := feedEventNamed("Garden Brunch")
	activity := models.Activity{
		Action:  models.ActionConfirmInvitation,
		Event:   event,
		Details: map[string]interface{}{"guest_name": "Cousin Eddie"},
	}

	got := RenderMessage(activity, nil)
	if !strings.Contains(got, "responded 'a response'") {
		t.Fatalf("expected status fallback, got %q", got)
	}
}

func TestRenderAddGuestSecondPerson(t *testing.T) {
	actor := feedUser("Alice", "alice@example.com")
	target := feedUser("Bob", "bob@example.com")
	event := feedEventNamed("Garden Brunch")
	activity := models.Activity{
		Action:     models.ActionAddGuest,
		Actor:      actor,
		TargetUser: target,
		Event:      event,
		Details:    map[string]interface{}{"guest_name": "Bob", "guest_email": "bob@example.com"},
	}

	if got := RenderMessage(activity, actor); got != "You invited Bob to the event 'Garden Brunch' 📧" {
		t.Fatalf("actor view: got %q", got)
	}
	if got := RenderMessage(activity, target); got != "Alice invited you to the event 'Garden Brunch' 📧" {
		t.Fatalf("target view: got %q", got)
	}
}

func TestRenderUnknownActionKeepsCode(t *testing.T) {
	actor := feedUser("Bob", "bob@example.com")
	activity := models.Activity{
		Action: models.Action("telepathy"),
		Actor:  actor,
	}

	got := RenderMessage(activity, nil)
	want := "Bob performed an unspecified action (telepathy)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderNonStringDetailValues(t *testing.T) {
	actor := feedUser("Bob", "bob@example.com")
	event := feedEventNamed("Dinner Plans")
	activity := models.Activity{
		Action:  models.ActionCreatePoll,
		Actor:   actor,
		Event:   event,
		Details: map[string]interface{}{"poll_question": 42},
	}

	if got := RenderMessage(activity, nil); !strings.Contains(got, "'42'") {
		t.Fatalf("expected numeric detail coerced to text, got %q", got)
	}
}
