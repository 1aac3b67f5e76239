package services

import (
	"fmt"
	"strings"

	"github.com/planora/backend/internal/models"
)

// RenderMessage turns one activity into a human-readable sentence relative
// to the viewer. It is a pure function: no I/O, no persistence, and it never
// fails. Every detail key has a fallback so a sparse or missing details map
// still renders a complete sentence.
func RenderMessage(activity models.Activity, viewer *models.User) string {
	actorName := displayName(activity.Actor, viewer)
	if activity.Actor == nil {
		// Anonymous invitation-token actions carry guest details; anything
		// else with a missing actor is a deleted account.
		if detailString(activity.Details, "guest_name") != "" || detailString(activity.Details, "guest_email") != "" {
			actorName = "A guest"
		} else {
			actorName = "A deleted user"
		}
	}

	eventName := "a deleted event"
	if activity.Event != nil {
		eventName = activity.Event.Title
	}

	isViewerActor := activity.Actor != nil && viewer != nil && activity.Actor.ID == viewer.ID
	isViewerTarget := activity.TargetUser != nil && viewer != nil && activity.TargetUser.ID == viewer.ID

	pollQuestion := detailStringOr(activity.Details, "poll_question", "a poll")
	guestName := detailStringOr(activity.Details, "guest_name", "a guest")
	guestEmail := detailStringOr(activity.Details, "guest_email", "a guest")
	invitationStatus := detailStringOr(activity.Details, "status", "a response")

	switch activity.Action {
	case models.ActionCreateEvent:
		if isViewerActor {
			return fmt.Sprintf("You created a new event '%s' 🎉", eventName)
		}
		return fmt.Sprintf("%s created an event '%s' 🎉", actorName, eventName)

	case models.ActionUpdateEvent:
		if isViewerActor {
			return fmt.Sprintf("You updated the event '%s' ✏️", eventName)
		}
		return fmt.Sprintf("%s updated the event '%s' ✏️", actorName, eventName)

	case models.ActionDeleteEvent:
		if isViewerActor {
			return fmt.Sprintf("You deleted the event '%s' 🗑️", eventName)
		}
		return fmt.Sprintf("%s deleted the event '%s' 🗑️", actorName, eventName)

	case models.ActionCommentEvent:
		if isViewerActor {
			return fmt.Sprintf("You commented on the event '%s' 💬", eventName)
		}
		return fmt.Sprintf("%s commented on the event '%s' 💬", actorName, eventName)

	case models.ActionJoin:
		if isViewerActor {
			return fmt.Sprintf("You joined the event '%s' ➕", eventName)
		}
		return fmt.Sprintf("%s joined the event '%s' ➕", actorName, eventName)

	case models.ActionConfirmPresence:
		if isViewerActor {
			return fmt.Sprintf("You confirmed your attendance at the event '%s' 👍", eventName)
		}
		return fmt.Sprintf("%s confirmed their attendance at the event '%s' 👍", actorName, eventName)

	case models.ActionCreatePoll:
		if isViewerActor {
			return fmt.Sprintf("You created a new poll '%s' for the event '%s' 📊", pollQuestion, eventName)
		}
		return fmt.Sprintf("%s created a new poll '%s' for the event '%s' 📊", actorName, pollQuestion, eventName)

	case models.ActionUpdatePoll:
		if isViewerActor {
			return fmt.Sprintf("You updated the poll '%s' of the event '%s' 🔄", pollQuestion, eventName)
		}
		return fmt.Sprintf("%s updated the poll '%s' of the event '%s' 🔄", actorName, pollQuestion, eventName)

	case models.ActionDeletePoll:
		if isViewerActor {
			return fmt.Sprintf("You deleted the poll '%s' of the event '%s' ❌", pollQuestion, eventName)
		}
		return fmt.Sprintf("%s deleted the poll '%s' of the event '%s' ❌", actorName, pollQuestion, eventName)

	case models.ActionVote:
		if optionText := detailString(activity.Details, "option_text"); optionText != "" {
			if isViewerActor {
				return fmt.Sprintf("You voted for '%s' on the poll '%s' of the event '%s' ✔️", optionText, pollQuestion, eventName)
			}
			return fmt.Sprintf("%s voted for '%s' on the poll '%s' of the event '%s' ✔️", actorName, optionText, pollQuestion, eventName)
		}
		if isViewerActor {
			return fmt.Sprintf("You voted on the poll '%s' of the event '%s' ✔️", pollQuestion, eventName)
		}
		return fmt.Sprintf("%s voted on the poll '%s' of the event '%s' ✔️", actorName, pollQuestion, eventName)

	case models.ActionUnvote:
		if isViewerActor {
			return fmt.Sprintf("You withdrew your vote on the poll '%s' of the event '%s'", pollQuestion, eventName)
		}
		return fmt.Sprintf("%s withdrew their vote on the poll '%s' of the event '%s'", actorName, pollQuestion, eventName)

	case models.ActionAddGuest:
		if isViewerActor {
			return fmt.Sprintf("You invited %s to the event '%s' 📧", guestName, eventName)
		}
		return fmt.Sprintf("%s invited you to the event '%s' 📧", actorName, eventName)

	case models.ActionDeleteGuest:
		if isViewerActor {
			return fmt.Sprintf("You removed the guest %s from the event '%s' 🗑️", guestName, eventName)
		}
		return fmt.Sprintf("%s removed the guest %s from the event '%s' 🗑️", actorName, guestName, eventName)

	case models.ActionSendInvitation:
		if isViewerActor {
			return fmt.Sprintf("You sent an invitation to %s for the event '%s' ✉️", guestName, eventName)
		}
		return fmt.Sprintf("%s sent an invitation to %s for the event '%s' ✉️", actorName, guestName, eventName)

	case models.ActionReceiveInvitation:
		targetName := "a deleted user"
		if activity.TargetUser != nil {
			targetName = displayName(activity.TargetUser, viewer)
		}
		if isViewerActor {
			return fmt.Sprintf("You received an invitation from %s for the event '%s' ✉️", targetName, eventName)
		}
		return fmt.Sprintf("%s received an invitation from %s for the event '%s' ✉️", actorName, targetName, eventName)

	case models.ActionConfirmInvitation:
		return renderInvitationResponse(activity, viewer, isViewerTarget, eventName, guestName, guestEmail, invitationStatus)

	default:
		if isViewerActor {
			return fmt.Sprintf("You performed an unspecified action (%s)", activity.Action)
		}
		return fmt.Sprintf("%s performed an unspecified action (%s)", actorName, activity.Action)
	}
}

func renderInvitationResponse(activity models.Activity, viewer *models.User, isViewerTarget bool, eventName, guestName, guestEmail, status string) string {
	statusEmoji := "📝"
	switch strings.ToLower(status) {
	case "accepted":
		statusEmoji = "✅"
	case "declined":
		statusEmoji = "🚫"
	case "maybe":
		statusEmoji = "🤔"
	}

	// Anonymous responders show as whatever identity the invitation carried.
	guestDisplay := guestName
	if guestDisplay == "a guest" {
		guestDisplay = guestEmail
	}
	targetName := guestDisplay
	if activity.TargetUser != nil {
		targetName = displayName(activity.TargetUser, viewer)
	}

	if isViewerTarget {
		switch strings.ToLower(status) {
		case "accepted":
			return fmt.Sprintf("You accepted your invitation to the event '%s' %s", eventName, statusEmoji)
		case "declined":
			return fmt.Sprintf("You declined your invitation to the event '%s' %s", eventName, statusEmoji)
		case "maybe":
			return fmt.Sprintf("You said you might come to the event '%s' %s", eventName, statusEmoji)
		default:
			return fmt.Sprintf("You responded '%s' to the invitation for the event '%s' %s", status, eventName, statusEmoji)
		}
	}

	switch strings.ToLower(status) {
	case "accepted":
		return fmt.Sprintf("%s accepted their invitation to the event '%s' %s", targetName, eventName, statusEmoji)
	case "declined":
		return fmt.Sprintf("%s declined their invitation to the event '%s' %s", targetName, eventName, statusEmoji)
	case "maybe":
		return fmt.Sprintf("%s said they might come to the event '%s' %s", targetName, eventName, statusEmoji)
	default:
		return fmt.Sprintf("%s responded '%s' to the invitation for the event '%s' %s", targetName, status, eventName, statusEmoji)
	}
}

// displayName is viewer-relative: the viewer sees themselves as "You".
func displayName(user *models.User, viewer *models.User) string {
	if user == nil {
		return "A deleted user"
	}
	if viewer != nil && user.ID == viewer.ID {
		return "You"
	}
	if user.Name != "" {
		return user.Name
	}
	return user.Email
}

func detailString(details map[string]interface{}, key string) string {
	if details == nil {
		return ""
	}
	v, ok := details[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}

func detailStringOr(details map[string]interface{}, key, fallback string) string {
	if s := detailString(details, key); s != "" {
		return s
	}
	return fallback
}
