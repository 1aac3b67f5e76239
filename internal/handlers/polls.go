package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/planora/backend/internal/middleware"
	"github.com/planora/backend/internal/models"
	"github.com/planora/backend/internal/services"
	"github.com/planora/backend/pkg/utils"
	"gorm.io/gorm"
)

type PollsHandler struct {
	DB       *gorm.DB
	Activity *services.ActivityService
}

func NewPollsHandler(db *gorm.DB, activity *services.ActivityService) *PollsHandler {
	return &PollsHandler{DB: db, Activity: activity}
}

type pollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (h *PollsHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var event models.Event
	if err := h.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching event")
	}
	if event.OrganizerID != user.ID {
		return utils.Error(c, fiber.StatusForbidden, "only the organizer can create polls")
	}

	var req pollRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return utils.Error(c, fiber.StatusBadRequest, "question is required")
	}
	if len(req.Options) < 2 {
		return utils.Error(c, fiber.StatusBadRequest, "at least two options are required")
	}

	poll := models.Poll{
		EventID:  event.ID,
		Question: req.Question,
	}
	for _, text := range req.Options {
		text = strings.TrimSpace(text)
		if text == "" {
			return utils.Error(c, fiber.StatusBadRequest, "option text cannot be empty")
		}
		poll.Options = append(poll.Options, models.PollOption{Text: text})
	}

	if err := h.DB.Create(&poll).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating poll")
	}

	if _, err := h.Activity.Log(services.LogEntry{
		Action:  models.ActionCreatePoll,
		ActorID: &user.ID,
		EventID: &event.ID,
		Details: map[string]interface{}{"poll_question": poll.Question},
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	return utils.Success(c, fiber.StatusCreated, poll)
}

func (h *PollsHandler) List(c *fiber.Ctx) error {
	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var polls []models.Poll
	if err := h.DB.Where("event_id = ?", eventID).Order("created_at ASC").Preload("Options").Find(&polls).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing polls")
	}

	return utils.Success(c, fiber.StatusOK, polls)
}

type updatePollRequest struct {
	Question string `json:"question"`
}

func (h *PollsHandler) Update(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	poll, status, message := h.loadPollForOrganizer(c, user)
	if poll == nil {
		return utils.Error(c, status, message)
	}

	var req updatePollRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return utils.Error(c, fiber.StatusBadRequest, "question is required")
	}

	if err := h.DB.Model(poll).Update("question", req.Question).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating poll")
	}

	if _, err := h.Activity.Log(services.LogEntry{
		Action:  models.ActionUpdatePoll,
		ActorID: &user.ID,
		EventID: &poll.EventID,
		Details: map[string]interface{}{"poll_question": poll.Question},
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	return utils.Success(c, fiber.StatusOK, poll)
}

func (h *PollsHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	poll, status, message := h.loadPollForOrganizer(c, user)
	if poll == nil {
		return utils.Error(c, status, message)
	}

	if _, err := h.Activity.Log(services.LogEntry{
		Action:  models.ActionDeletePoll,
		ActorID: &user.ID,
		EventID: &poll.EventID,
		Details: map[string]interface{}{"poll_question": poll.Question},
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", poll.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", poll.ID).Delete(&models.PollOption{}).Error; err != nil {
			return err
		}
		return tx.Delete(poll).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting poll")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "poll deleted"})
}

// Vote accepts registered users and anonymous guests presenting an
// Invitation-Token header. Voting the same option again withdraws the vote;
// voting a different option moves it and rebalances both counters.
func (h *PollsHandler) Vote(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	invitation := h.invitationFromHeader(c)
	if user == nil && invitation == nil {
		return utils.Error(c, fiber.StatusForbidden, "voting requires a user session or an invitation token")
	}

	option, poll, status, message := h.loadOption(c)
	if option == nil {
		return utils.Error(c, status, message)
	}

	existing := h.findExistingVote(poll.ID, user, invitation)

	var actorID *uuid.UUID
	if user != nil {
		actorID = &user.ID
	}
	details := map[string]interface{}{
		"poll_question": poll.Question,
		"option_text":   option.Text,
	}
	if user == nil && invitation != nil {
		details["guest_name"] = invitation.DisplayName()
	}

	if existing != nil {
		var previous models.PollOption
		if err := h.DB.First(&previous, "id = ?", existing.OptionID).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed fetching previous option")
		}

		if previous.ID == option.ID {
			// Same option twice = withdraw.
			err := h.DB.Transaction(func(tx *gorm.DB) error {
				if err := tx.Model(&previous).Update("votes", gorm.Expr("CASE WHEN votes > 0 THEN votes - 1 ELSE 0 END")).Error; err != nil {
					return err
				}
				return tx.Delete(existing).Error
			})
			if err != nil {
				return utils.Error(c, fiber.StatusInternalServerError, "failed withdrawing vote")
			}

			details["option_text"] = previous.Text
			if _, err := h.Activity.Log(services.LogEntry{
				Action:  models.ActionUnvote,
				ActorID: actorID,
				EventID: &poll.EventID,
				Details: details,
			}); err != nil {
				return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
			}

			return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "vote withdrawn", "option": previous})
		}

		err := h.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&previous).Update("votes", gorm.Expr("CASE WHEN votes > 0 THEN votes - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
			if err := tx.Model(option).Update("votes", gorm.Expr("votes + 1")).Error; err != nil {
				return err
			}
			return tx.Model(existing).Update("option_id", option.ID).Error
		})
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed moving vote")
		}

		if _, err := h.Activity.Log(services.LogEntry{
			Action:  models.ActionVote,
			ActorID: actorID,
			EventID: &poll.EventID,
			Details: details,
		}); err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
		}

		return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "vote moved", "option": option})
	}

	vote := models.Vote{
		PollID:   poll.ID,
		OptionID: option.ID,
	}
	if user != nil {
		vote.UserID = &user.ID
	} else {
		vote.InvitationID = &invitation.ID
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&vote).Error; err != nil {
			return err
		}
		return tx.Model(option).Update("votes", gorm.Expr("votes + 1")).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving vote")
	}

	if _, err := h.Activity.Log(services.LogEntry{
		Action:  models.ActionVote,
		ActorID: actorID,
		EventID: &poll.EventID,
		Details: details,
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "vote recorded", "option": option})
}

func (h *PollsHandler) Unvote(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	invitation := h.invitationFromHeader(c)
	if user == nil && invitation == nil {
		return utils.Error(c, fiber.StatusForbidden, "voting requires a user session or an invitation token")
	}

	option, poll, status, message := h.loadOption(c)
	if option == nil {
		return utils.Error(c, status, message)
	}

	existing := h.findExistingVote(poll.ID, user, invitation)
	if existing == nil {
		return utils.Error(c, fiber.StatusBadRequest, "no vote to withdraw")
	}

	var previous models.PollOption
	if err := h.DB.First(&previous, "id = ?", existing.OptionID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching option")
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&previous).Update("votes", gorm.Expr("CASE WHEN votes > 0 THEN votes - 1 ELSE 0 END")).Error; err != nil {
			return err
		}
		return tx.Delete(existing).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed withdrawing vote")
	}

	var actorID *uuid.UUID
	if user != nil {
		actorID = &user.ID
	}
	details := map[string]interface{}{
		"poll_question": poll.Question,
		"option_text":   previous.Text,
	}
	if user == nil && invitation != nil {
		details["guest_name"] = invitation.DisplayName()
	}

	if _, err := h.Activity.Log(services.LogEntry{
		Action:  models.ActionUnvote,
		ActorID: actorID,
		EventID: &poll.EventID,
		Details: details,
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording activity")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "vote withdrawn", "option": previous})
}

func (h *PollsHandler) loadPollForOrganizer(c *fiber.Ctx, user *models.User) (*models.Poll, int, string) {
	pollID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, fiber.StatusBadRequest, "invalid poll id"
	}

	var poll models.Poll
	if err := h.DB.Preload("Event").First(&poll, "id = ?", pollID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.StatusNotFound, "poll not found"
		}
		return nil, fiber.StatusInternalServerError, "failed fetching poll"
	}
	if poll.Event.OrganizerID != user.ID {
		return nil, fiber.StatusForbidden, "only the organizer can manage polls"
	}
	return &poll, 0, ""
}

func (h *PollsHandler) loadOption(c *fiber.Ctx) (*models.PollOption, *models.Poll, int, string) {
	optionID, err := parseUUID(c.Params("optionId"))
	if err != nil {
		return nil, nil, fiber.StatusBadRequest, "invalid option id"
	}

	var option models.PollOption
	if err := h.DB.First(&option, "id = ?", optionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, fiber.StatusNotFound, "option not found"
		}
		return nil, nil, fiber.StatusInternalServerError, "failed fetching option"
	}

	var poll models.Poll
	if err := h.DB.First(&poll, "id = ?", option.PollID).Error; err != nil {
		return nil, nil, fiber.StatusInternalServerError, "failed fetching poll"
	}
	return &option, &poll, 0, ""
}

func (h *PollsHandler) invitationFromHeader(c *fiber.Ctx) *models.Invitation {
	token := strings.TrimSpace(c.Get("Invitation-Token"))
	if token == "" {
		return nil
	}
	var invitation models.Invitation
	if err := h.DB.First(&invitation, "token = ?", token).Error; err != nil {
		return nil
	}
	return &invitation
}

func (h *PollsHandler) findExistingVote(pollID uuid.UUID, user *models.User, invitation *models.Invitation) *models.Vote {
	var vote models.Vote
	if user != nil {
		if err := h.DB.First(&vote, "poll_id = ? AND user_id = ?", pollID, user.ID).Error; err == nil {
			return &vote
		}
	}
	if invitation != nil {
		if err := h.DB.First(&vote, "poll_id = ? AND invitation_id = ?", pollID, invitation.ID).Error; err == nil {
			return &vote
		}
	}
	return nil
}
