package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/planora/backend/internal/middleware"
	"github.com/planora/backend/internal/models"
	"github.com/planora/backend/internal/services"
	"github.com/planora/backend/pkg/utils"
	"gorm.io/gorm"
)

type NotificationsHandler struct {
	DB            *gorm.DB
	Notifications *services.NotificationService
}

func NewNotificationsHandler(db *gorm.DB, notifications *services.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{DB: db, Notifications: notifications}
}

type notificationItem struct {
	ID           uuid.UUID  `json:"id"`
	IsRead       bool       `json:"isRead"`
	RelatedTable string     `json:"relatedTable"`
	RelatedID    *uuid.UUID `json:"relatedId"`
}

// List returns every notification for the viewer plus the unread badge count.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	count, err := h.Notifications.CountUnread(user.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting notifications")
	}

	notifications, err := h.Notifications.ListForRecipient(user.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing notifications")
	}

	items := make([]notificationItem, len(notifications))
	for i, n := range notifications {
		items[i] = notificationItem{
			ID:           n.ID,
			IsRead:       n.IsRead,
			RelatedTable: n.RelatedTable,
			RelatedID:    n.RelatedID,
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"count":         count,
		"notifications": items,
	})
}

// UnreadCounts buckets the unread badge by source table so the frontend can
// show separate activity, invitation and message indicators.
func (h *NotificationsHandler) UnreadCounts(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	counts := fiber.Map{}
	var total int64
	for _, table := range []string{models.RelatedTableActivity, models.RelatedTableInvitation, models.RelatedTableMessage} {
		count, err := h.Notifications.CountUnreadByTable(user.ID, table)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed counting notifications")
		}
		counts[table] = count
		total += count
	}
	counts["total"] = total

	return utils.Success(c, fiber.StatusOK, counts)
}

func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	updated, err := h.Notifications.MarkAllRead(user.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed marking notifications read")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"updated": updated})
}
