package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/planora/backend/internal/middleware"
	"github.com/planora/backend/internal/models"
	"github.com/planora/backend/internal/services"
	"github.com/planora/backend/internal/storage"
	"github.com/planora/backend/pkg/logger"
	"github.com/planora/backend/pkg/utils"
	"gorm.io/gorm"
)

type EventsHandler struct {
	DB       *gorm.DB
	Activity *services.ActivityService
	Images   *storage.ImageStore
}

func NewEventsHandler(db *gorm.DB, activity *services.ActivityService, images *storage.ImageStore) *EventsHandler {
	return &EventsHandler{DB: db, Activity: activity, Images: images}
}

type eventRequest struct {
	Title         string   `json:"title"`
	Description   *string  `json:"description"`
	EventDate     string   `json:"eventDate"`
	EventTime     string   `json:"eventTime"`
	EventLocation *string  `json:"eventLocation"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}

func (h *EventsHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}

	eventDate, err := time.Parse("2006-01-02", req.EventDate)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "eventDate must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", req.EventTime); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "eventTime must be HH:MM")
	}

	event := models.Event{
		Title:         req.Title,
		Description:   req.Description,
		EventDate:     eventDate,
		EventTime:     req.EventTime,
		EventLocation: req.EventLocation,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		OrganizerID:   user.ID,
	}

	if err := h.DB.Create(&event).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating event")
	}
	event.Organizer = *user

	if _, err := h.Activity.Log(services.LogEntry{
		Action:  models.ActionCreateEvent,
		ActorID: &user.ID,
		EventID: &event.ID,
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	return utils.Success(c, fiber.StatusCreated, event)
}

// List returns events the user organizes plus events they were invited to.
func (h *EventsHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var events []models.Event
	err := h.DB.
		Where(
			"organizer_id = ? OR id IN (?)",
			user.ID,
			h.DB.Model(&models.Invitation{}).Select("event_id").Where("email = ?", user.Email),
		).
		Order("event_date ASC").
		Preload("Organizer").
		Find(&events).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing events")
	}

	return utils.Success(c, fiber.StatusOK, events)
}

func (h *EventsHandler) ListPublic(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.Event{}).Where("is_publicly_shared = ?", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting events")
	}

	var events []models.Event
	if err := utils.ApplyPagination(query.Order("event_date ASC"), p).Preload("Organizer").Find(&events).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing events")
	}

	return utils.Paginated(c, events, p.Page, p.Limit, total)
}

func (h *EventsHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadEvent(c)
	if event == nil {
		return utils.Error(c, status, message)
	}

	if !h.canView(event, user) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	var likeCount int64
	h.DB.Model(&models.Like{}).Where("event_id = ?", event.ID).Count(&likeCount)

	liked := false
	if user != nil {
		var count int64
		h.DB.Model(&models.Like{}).Where("event_id = ? AND user_id = ?", event.ID, user.ID).Count(&count)
		liked = count > 0
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"event":     event,
		"likeCount": likeCount,
		"liked":     liked,
	})
}

func (h *EventsHandler) Update(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadEvent(c)
	if event == nil {
		return utils.Error(c, status, message)
	}
	if event.OrganizerID != user.ID {
		return utils.Error(c, fiber.StatusForbidden, "only the organizer can update the event")
	}

	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if title := strings.TrimSpace(req.Title); title != "" {
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.EventDate != "" {
		eventDate, err := time.Parse("2006-01-02", req.EventDate)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "eventDate must be YYYY-MM-DD")
		}
		updates["event_date"] = eventDate
	}
	if req.EventTime != "" {
		if _, err := time.Parse("15:04", req.EventTime); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "eventTime must be HH:MM")
		}
		updates["event_time"] = req.EventTime
	}
	if req.EventLocation != nil {
		updates["event_location"] = *req.EventLocation
	}
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}

	if len(updates) > 0 {
		if err := h.DB.Model(event).Updates(updates).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed updating event")
		}
		if _, err := h.Activity.Log(services.LogEntry{
			Action:  models.ActionUpdateEvent,
			ActorID: &user.ID,
			EventID: &event.ID,
		}); err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
		}
	}

	return utils.Success(c, fiber.StatusOK, event)
}

// Delete removes the event and its dependents. The activity is logged before
// deletion; its event reference is cleared so the history line survives as
// "a deleted event".
func (h *EventsHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadEvent(c)
	if event == nil {
		return utils.Error(c, status, message)
	}
	if event.OrganizerID != user.ID {
		return utils.Error(c, fiber.StatusForbidden, "only the organizer can delete the event")
	}

	if _, err := h.Activity.Log(services.LogEntry{
		Action:  models.ActionDeleteEvent,
		ActorID: &user.ID,
		EventID: &event.ID,
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		pollIDs := tx.Model(&models.Poll{}).Select("id").Where("event_id = ?", event.ID)
		if err := tx.Where("poll_id IN (?)", pollIDs).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id IN (?)", pollIDs).Delete(&models.PollOption{}).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{&models.Poll{}, &models.Invitation{}, &models.Rsvp{}, &models.Comment{}, &models.Like{}} {
			if err := tx.Where("event_id = ?", event.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Activity{}).Where("event_id = ?", event.ID).Update("event_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(event).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting event")
	}

	logger.InfoWithUser(user.ID.String(), "event_deleted", map[string]interface{}{
		"event_id": event.ID.String(),
		"title":    event.Title,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "event deleted"})
}

type shareRequest struct {
	IsPubliclyShared bool `json:"isPubliclyShared"`
}

func (h *EventsHandler) ToggleShare(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadEvent(c)
	if event == nil {
		return utils.Error(c, status, message)
	}
	if event.OrganizerID != user.ID {
		return utils.Error(c, fiber.StatusForbidden, "only the organizer can share the event")
	}

	var req shareRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.DB.Model(event).Update("is_publicly_shared", req.IsPubliclyShared).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating event")
	}

	return utils.Success(c, fiber.StatusOK, event)
}

func (h *EventsHandler) UploadImage(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadEvent(c)
	if event == nil {
		return utils.Error(c, status, message)
	}
	if event.OrganizerID != user.ID {
		return utils.Error(c, fiber.StatusForbidden, "only the organizer can change the event image")
	}
	if h.Images == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, "image storage not configured")
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "image file is required")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return utils.Error(c, fiber.StatusBadRequest, "file must be an image")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reading upload")
	}
	defer file.Close()

	objectName := fmt.Sprintf("events/%s", uuid.New().String())
	if err := h.Images.Upload(c.Context(), objectName, file, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing image")
	}

	if event.Image != nil {
		_ = h.Images.Delete(c.Context(), *event.Image)
	}

	if err := h.DB.Model(event).Update("image", objectName).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating event")
	}

	return utils.Success(c, fiber.StatusOK, event)
}

func (h *EventsHandler) GetImage(c *fiber.Ctx) error {
	event, status, message := h.loadEvent(c)
	if event == nil {
		return utils.Error(c, status, message)
	}
	if event.Image == nil || h.Images == nil {
		return utils.Error(c, fiber.StatusNotFound, "event has no image")
	}

	obj, err := h.Images.Download(c.Context(), *event.Image)
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "image not found")
	}

	return c.SendStream(obj)
}

func (h *EventsHandler) ToggleLike(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadEvent(c)
	if event == nil {
		return utils.Error(c, status, message)
	}
	if !h.canView(event, user) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	var existing models.Like
	err := h.DB.First(&existing, "event_id = ? AND user_id = ?", event.ID, user.ID).Error
	if err == nil {
		if err := h.DB.Delete(&existing).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed removing like")
		}
	} else if err == gorm.ErrRecordNotFound {
		like := models.Like{EventID: event.ID, UserID: user.ID}
		if err := h.DB.Create(&like).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed saving like")
		}
	} else {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking like")
	}

	var likeCount int64
	h.DB.Model(&models.Like{}).Where("event_id = ?", event.ID).Count(&likeCount)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"liked":     err == gorm.ErrRecordNotFound,
		"likeCount": likeCount,
	})
}

func (h *EventsHandler) ListComments(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadEvent(c)
	if event == nil {
		return utils.Error(c, status, message)
	}
	if !h.canView(event, user) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	var comments []models.Comment
	if err := h.DB.Where("event_id = ?", event.ID).Order("created_at ASC").Preload("User").Find(&comments).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing comments")
	}

	return utils.Success(c, fiber.StatusOK, comments)
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h *EventsHandler) PostComment(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadEvent(c)
	if event == nil {
		return utils.Error(c, status, message)
	}
	if !h.canView(event, user) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return utils.Error(c, fiber.StatusBadRequest, "content is required")
	}

	comment := models.Comment{
		EventID: event.ID,
		UserID:  user.ID,
		Content: req.Content,
	}
	if err := h.DB.Create(&comment).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving comment")
	}
	comment.User = *user

	if _, err := h.Activity.Log(services.LogEntry{
		Action:  models.ActionCommentEvent,
		ActorID: &user.ID,
		EventID: &event.ID,
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	return utils.Success(c, fiber.StatusCreated, comment)
}

func (h *EventsHandler) Join(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadEvent(c)
	if event == nil {
		return utils.Error(c, status, message)
	}
	if !event.IsPubliclyShared && !h.canView(event, user) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	rsvp, err := h.upsertRsvp(event.ID, user.ID, string(models.InvitationStatusAccepted), nil)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving attendance")
	}

	if _, err := h.Activity.Log(services.LogEntry{
		Action:  models.ActionJoin,
		ActorID: &user.ID,
		EventID: &event.ID,
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	return utils.Success(c, fiber.StatusOK, rsvp)
}

type rsvpRequest struct {
	Status  string  `json:"status"`
	Comment *string `json:"comment"`
}

func (h *EventsHandler) Rsvp(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadEvent(c)
	if event == nil {
		return utils.Error(c, status, message)
	}
	if !h.canView(event, user) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	var req rsvpRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if !isValidInvitationStatus(req.Status) {
		return utils.Error(c, fiber.StatusBadRequest, "status must be accepted, declined or maybe")
	}

	rsvp, err := h.upsertRsvp(event.ID, user.ID, strings.ToLower(req.Status), req.Comment)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving attendance")
	}

	if _, err := h.Activity.Log(services.LogEntry{
		Action:  models.ActionConfirmPresence,
		ActorID: &user.ID,
		EventID: &event.ID,
		Details: map[string]interface{}{"status": rsvp.Status},
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	return utils.Success(c, fiber.StatusOK, rsvp)
}

func (h *EventsHandler) upsertRsvp(eventID, userID uuid.UUID, status string, comment *string) (*models.Rsvp, error) {
	var rsvp models.Rsvp
	err := h.DB.First(&rsvp, "event_id = ? AND user_id = ?", eventID, userID).Error
	if err == gorm.ErrRecordNotFound {
		rsvp = models.Rsvp{
			EventID: eventID,
			UserID:  &userID,
			Status:  status,
			Comment: comment,
		}
		if err := h.DB.Create(&rsvp).Error; err != nil {
			return nil, err
		}
		return &rsvp, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": status}
	if comment != nil {
		updates["comment"] = *comment
	}
	if err := h.DB.Model(&rsvp).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &rsvp, nil
}

func (h *EventsHandler) loadEvent(c *fiber.Ctx) (*models.Event, int, string) {
	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, fiber.StatusBadRequest, "invalid event id"
	}

	var event models.Event
	if err := h.DB.Preload("Organizer").First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.StatusNotFound, "event not found"
		}
		return nil, fiber.StatusInternalServerError, "failed fetching event"
	}
	return &event, 0, ""
}

// canView allows the organizer, invited guests and, for public events,
// anyone at all.
func (h *EventsHandler) canView(event *models.Event, user *models.User) bool {
	if event.IsPubliclyShared {
		return true
	}
	if user == nil {
		return false
	}
	if event.OrganizerID == user.ID {
		return true
	}

	var count int64
	h.DB.Model(&models.Invitation{}).
		Where("event_id = ? AND email = ?", event.ID, user.Email).
		Count(&count)
	return count > 0
}
