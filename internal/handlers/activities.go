package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/planora/backend/internal/middleware"
	"github.com/planora/backend/internal/models"
	"github.com/planora/backend/internal/services"
	"github.com/planora/backend/pkg/utils"
	"gorm.io/gorm"
)

type ActivitiesHandler struct {
	DB            *gorm.DB
	Activity      *services.ActivityService
	Notifications *services.NotificationService
}

func NewActivitiesHandler(db *gorm.DB, activity *services.ActivityService, notifications *services.NotificationService) *ActivitiesHandler {
	return &ActivitiesHandler{DB: db, Activity: activity, Notifications: notifications}
}

type feedUser struct {
	ID   *uuid.UUID `json:"id"`
	Name string     `json:"name"`
}

type feedEvent struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Organizer feedUser  `json:"organizer"`
}

type feedItem struct {
	ID         uuid.UUID  `json:"id"`
	Actor      feedUser   `json:"actor"`
	TargetUser feedUser   `json:"targetUser"`
	Action     string     `json:"action"`
	Event      *feedEvent `json:"event"`
	CreatedAt  time.Time  `json:"createdAt"`
	IsRead     bool       `json:"isRead"`
}

// List builds the viewer's feed: the relevant activities, each rendered into
// a sentence and decorated with its read state, plus the total unread badge.
func (h *ActivitiesHandler) List(c *fiber.Ctx) error {
	viewer := middleware.GetCurrentUser(c)

	limit := c.QueryInt("limit", 50)
	if limit > 200 {
		limit = 200
	}

	activities, err := h.Activity.FindRelevant(viewer, limit)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading activities")
	}

	ids := make([]uuid.UUID, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	readStates, err := h.Notifications.ReadStates(viewer.ID, models.RelatedTableActivity, ids)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading read states")
	}

	unreadCount, err := h.Notifications.CountUnread(viewer.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting unread notifications")
	}

	items := make([]feedItem, len(activities))
	for i, activity := range activities {
		items[i] = feedItem{
			ID:         activity.ID,
			Actor:      formatFeedUser(activity.Actor, viewer),
			TargetUser: formatFeedUser(activity.TargetUser, viewer),
			Action:     services.RenderMessage(activity, viewer),
			Event:      formatFeedEvent(activity.Event, viewer),
			CreatedAt:  activity.CreatedAt,
			IsRead:     readStates[activity.ID],
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"activities":  items,
		"unreadCount": unreadCount,
	})
}

func (h *ActivitiesHandler) MarkAllRead(c *fiber.Ctx) error {
	viewer := middleware.GetCurrentUser(c)

	updated, err := h.Notifications.MarkAllRead(viewer.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed marking notifications read")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"updated": updated})
}

func formatFeedUser(user *models.User, viewer *models.User) feedUser {
	if user == nil {
		return feedUser{ID: nil, Name: "A deleted user"}
	}
	id := user.ID
	if viewer != nil && user.ID == viewer.ID {
		return feedUser{ID: &id, Name: "You"}
	}
	name := user.Name
	if name == "" {
		name = user.Email
	}
	return feedUser{ID: &id, Name: name}
}

func formatFeedEvent(event *models.Event, viewer *models.User) *feedEvent {
	if event == nil {
		return nil
	}
	organizer := &event.Organizer
	if organizer.ID == uuid.Nil {
		organizer = nil
	}
	return &feedEvent{
		ID:        event.ID,
		Title:     event.Title,
		Organizer: formatFeedUser(organizer, viewer),
	}
}
