package handlers

import (
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

type MessagesHandler struct {
	DB            *gorm.DB
	Notifications *services.NotificationService
}

func NewMessagesHandler(db *gorm.DB, notifications *services.NotificationService) *MessagesHandler {
	return &MessagesHandler{DB: db, Notifications: notifications}
}

type createConversationRequest struct {
	Name           *string  `json:"name"`
	ParticipantIDs []string `json:"participantIDs"`
}

func (h *MessagesHandler) CreateConversation(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req createConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.ParticipantIDs) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "at least one participant is required")
	}

	participants := []models.User{*user}
	for _, rawID := range req.ParticipantIDs {
		participantID, err := parseUUID(rawID)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid participant id")
		}
		if participantID == user.ID {
			continue
		}
		var participant models.User
		if err := h.DB.First(&participant, "id = ?", participantID).Error; err != nil {
			return utils.Error(c, fiber.StatusNotFound, "participant not found")
		}
		participants = append(participants, participant)
	}
	if len(participants) < 2 {
		return utils.Error(c, fiber.StatusBadRequest, "a conversation needs another participant")
	}

	conversation := models.Conversation{
		Name:         req.Name,
		Participants: participants,
	}
	if err := h.DB.Create(&conversation).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating conversation")
	}

	return utils.Success(c, fiber.StatusCreated, conversation)
}

func (h *MessagesHandler) ListConversations(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var conversations []models.Conversation
	err := h.DB.
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", user.ID).
		Order("conversations.updated_at DESC").
		Preload("Participants").
		Find(&conversations).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing conversations")
	}

	return utils.Success(c, fiber.StatusOK, conversations)
}

func (h *MessagesHandler) ListMessages(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	conversation, status, message := h.loadConversation(c, user)
	if conversation == nil {
		return utils.Error(c, status, message)
	}

	var messages []models.Message
	err := h.DB.
		Where("conversation_id = ?", conversation.ID).
		Order("created_at ASC").
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing messages")
	}

	// Opening the thread clears its message badges.
	h.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND related_table = ? AND related_id IN (?)",
			user.ID,
			models.RelatedTableMessage,
			h.DB.Model(&models.Message{}).Select("id").Where("conversation_id = ?", conversation.ID),
		).
		Update("is_read", true)

	return utils.Success(c, fiber.StatusOK, messages)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage stores the message and fans out a message_received notification
// to every other participant.
func (h *MessagesHandler) SendMessage(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	conversation, status, message := h.loadConversation(c, user)
	if conversation == nil {
		return utils.Error(c, status, message)
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return utils.Error(c, fiber.StatusBadRequest, "content is required")
	}

	msg := models.Message{
		ConversationID: conversation.ID,
		SenderID:       user.ID,
		Content:        req.Content,
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving message")
	}
	msg.Sender = *user

	h.DB.Model(conversation).Update("last_message_id", msg.ID)

	for _, participant := range conversation.Participants {
		if participant.ID == user.ID {
			continue
		}
		relatedID := msg.ID
		if err := h.Notifications.Notify(participant.ID, models.NotificationTypeMessageReceived, models.RelatedTableMessage, &relatedID); err != nil {
			logger.Error("message_notification_failed", err, map[string]interface{}{
				"message_id":   msg.ID.String(),
				"recipient_id": participant.ID.String(),
			})
		}
	}

	return utils.Success(c, fiber.StatusCreated, msg)
}

func (h *MessagesHandler) loadConversation(c *fiber.Ctx, user *models.User) (*models.Conversation, int, string) {
	conversationID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, fiber.StatusBadRequest, "invalid conversation id"
	}

	var conversation models.Conversation
	if err := h.DB.Preload("Participants").First(&conversation, "id = ?", conversationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.StatusNotFound, "conversation not found"
		}
		return nil, fiber.StatusInternalServerError, "failed fetching conversation"
	}

	if !isParticipant(&conversation, user.ID) {
		return nil, fiber.StatusForbidden, "not a participant of this conversation"
	}
	return &conversation, 0, ""
}

func isParticipant(conversation *models.Conversation, userID uuid.UUID) bool {
	for _, p := range conversation.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}
