package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/planora/backend/internal/middleware"
	"github.com/planora/backend/internal/models"
	"github.com/planora/backend/internal/services"
	"github.com/planora/backend/pkg/logger"
	"github.com/planora/backend/pkg/utils"
	"gorm.io/gorm"
)

type InvitationsHandler struct {
	DB            *gorm.DB
	Activity      *services.ActivityService
	Notifications *services.NotificationService
	Mail          *services.MailService
}

func NewInvitationsHandler(db *gorm.DB, activity *services.ActivityService, notifications *services.NotificationService, mailService *services.MailService) *InvitationsHandler {
	return &InvitationsHandler{DB: db, Activity: activity, Notifications: notifications, Mail: mailService}
}

type guestRequest struct {
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// AddGuest registers a guest on the event without sending mail. The guest
// receives an invitation row with a token they can later respond with.
func (h *InvitationsHandler) AddGuest(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadOrganizedEvent(c, user)
	if event == nil {
		return utils.Error(c, status, message)
	}

	var req guestRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid email")
	}

	var existing models.Invitation
	if err := h.DB.First(&existing, "event_id = ? AND email = ?", event.ID, req.Email).Error; err == nil {
		return utils.Error(c, fiber.StatusConflict, "guest already added")
	} else if err != gorm.ErrRecordNotFound {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking guests")
	}

	token, err := generateInvitationToken()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	guest := models.Invitation{
		EventID: event.ID,
		Email:   req.Email,
		Name:    req.Name,
		Token:   token,
		Status:  models.InvitationStatusPending,
	}
	if err := h.DB.Create(&guest).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating guest")
	}

	if _, err := h.Activity.Log(services.LogEntry{
		Action:       models.ActionAddGuest,
		ActorID:      &user.ID,
		EventID:      &event.ID,
		TargetUserID: h.registeredUserID(req.Email),
		Details: map[string]interface{}{
			"guest_name":  guest.DisplayName(),
			"guest_email": guest.Email,
		},
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	return utils.Success(c, fiber.StatusCreated, guest)
}

func (h *InvitationsHandler) ListGuests(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadOrganizedEvent(c, user)
	if event == nil {
		return utils.Error(c, status, message)
	}

	var guests []models.Invitation
	if err := h.DB.Where("event_id = ?", event.ID).Order("created_at ASC").Find(&guests).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing guests")
	}

	return utils.Success(c, fiber.StatusOK, guests)
}

func (h *InvitationsHandler) DeleteGuest(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	event, status, message := h.loadOrganizedEvent(c, user)
	if event == nil {
		return utils.Error(c, status, message)
	}

	guestID, err := parseUUID(c.Params("guestId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid guest id")
	}

	var guest models.Invitation
	if err := h.DB.First(&guest, "id = ? AND event_id = ?", guestID, event.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "guest not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching guest")
	}

	if _, err := h.Activity.Log(services.LogEntry{
		Action:  models.ActionDeleteGuest,
		ActorID: &user.ID,
		EventID: &event.ID,
		Details: map[string]interface{}{
			"guest_name":  guest.DisplayName(),
			"guest_email": guest.Email,
		},
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invitation_id = ?", guest.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&guest).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting guest")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "guest removed"})
}

type sendInvitationRequest struct {
	Email   string  `json:"email"`
	Name    *string `json:"name"`
	EventID string  `json:"eventID"`
}

// Send creates the invitation, emails the confirmation link, and drops an
// invitation_received notification when the invitee already has an account.
func (h *InvitationsHandler) Send(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req sendInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid email")
	}

	eventID, err := parseUUID(req.EventID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var event models.Event
	if err := h.DB.Preload("Organizer").First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching event")
	}
	if event.OrganizerID != user.ID {
		return utils.Error(c, fiber.StatusForbidden, "only the organizer can send invitations")
	}

	token, err := generateInvitationToken()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	invitation := models.Invitation{
		EventID: event.ID,
		Email:   req.Email,
		Name:    req.Name,
		Token:   token,
		Status:  models.InvitationStatusPending,
	}
	if err := h.DB.Create(&invitation).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating invitation")
	}

	if _, err := h.Activity.Log(services.LogEntry{
		Action:  models.ActionSendInvitation,
		ActorID: &user.ID,
		EventID: &event.ID,
		Details: map[string]interface{}{
			"guest_name":  invitation.DisplayName(),
			"guest_email": invitation.Email,
		},
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	if invitedID := h.registeredUserID(req.Email); invitedID != nil {
		relatedID := invitation.ID
		if err := h.Notifications.Notify(*invitedID, models.NotificationTypeInvitationReceived, models.RelatedTableInvitation, &relatedID); err != nil {
			logger.Error("invitation_notification_failed", err, map[string]interface{}{
				"invitation_id": invitation.ID.String(),
				"recipient_id":  invitedID.String(),
			})
		}
	}

	guestName := ""
	if req.Name != nil {
		guestName = *req.Name
	}
	h.Mail.SendInvitation(req.Email, guestName, event.Title, event.Organizer.Name, token)

	return utils.Success(c, fiber.StatusCreated, invitation)
}

// GetByToken resolves an invitation for the anonymous confirmation page.
func (h *InvitationsHandler) GetByToken(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Params("token"))
	if token == "" {
		return utils.Error(c, fiber.StatusBadRequest, "token is required")
	}

	var invitation models.Invitation
	if err := h.DB.Preload("Event").Preload("Event.Organizer").First(&invitation, "token = ?", token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "invitation not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching invitation")
	}

	return utils.Success(c, fiber.StatusOK, invitation)
}

// ListMine returns the viewer's invitations across events, matched by email.
func (h *InvitationsHandler) ListMine(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var invitations []models.Invitation
	err := h.DB.
		Where("email = ?", user.Email).
		Order("created_at DESC").
		Preload("Event").
		Preload("Event.Organizer").
		Find(&invitations).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing invitations")
	}

	return utils.Success(c, fiber.StatusOK, invitations)
}

type confirmInvitationRequest struct {
	Status string `json:"status"`
}

// Confirm records the guest's response. Works both authenticated and via the
// bare token link; a registered responder becomes the activity's target so
// their feed shows the first-person phrasing.
func (h *InvitationsHandler) Confirm(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	token := strings.TrimSpace(c.Params("token"))

	var invitation models.Invitation
	if err := h.DB.Preload("Event").First(&invitation, "token = ?", token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "invitation not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching invitation")
	}

	if invitation.Used {
		return utils.Error(c, fiber.StatusBadRequest, "invitation already used")
	}

	var req confirmInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if !isValidInvitationStatus(req.Status) {
		return utils.Error(c, fiber.StatusBadRequest, "status must be accepted, declined or maybe")
	}
	newStatus := models.InvitationStatus(strings.ToLower(strings.TrimSpace(req.Status)))

	if err := h.DB.Model(&invitation).Updates(map[string]interface{}{
		"status": newStatus,
		"used":   true,
	}).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating invitation")
	}

	// The badge for the received invitation is cleared by the response.
	targetID := h.registeredUserID(invitation.Email)
	if targetID == nil && user != nil {
		targetID = &user.ID
	}
	if targetID != nil {
		h.DB.Model(&models.Notification{}).
			Where("recipient_id = ? AND related_table = ? AND related_id = ?", *targetID, models.RelatedTableInvitation, invitation.ID).
			Update("is_read", true)
	}

	var actorID *uuid.UUID
	if user != nil {
		actorID = &user.ID
	}

	if _, err := h.Activity.Log(services.LogEntry{
		Action:       models.ActionConfirmInvitation,
		ActorID:      actorID,
		EventID:      &invitation.EventID,
		TargetUserID: targetID,
		Details: map[string]interface{}{
			"status":      string(newStatus),
			"guest_name":  invitation.DisplayName(),
			"guest_email": invitation.Email,
		},
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"eventID": invitation.EventID,
		"status":  newStatus,
	})
}

func (h *InvitationsHandler) loadOrganizedEvent(c *fiber.Ctx, user *models.User) (*models.Event, int, string) {
	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, fiber.StatusBadRequest, "invalid event id"
	}

	var event models.Event
	if err := h.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.StatusNotFound, "event not found"
		}
		return nil, fiber.StatusInternalServerError, "failed fetching event"
	}
	if event.OrganizerID != user.ID {
		return nil, fiber.StatusForbidden, "only the organizer can manage guests"
	}
	return &event, 0, ""
}

func (h *InvitationsHandler) registeredUserID(email string) *uuid.UUID {
	var user models.User
	if err := h.DB.First(&user, "email = ?", email).Error; err != nil {
		return nil
	}
	id := user.ID
	return &id
}

func generateInvitationToken() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
