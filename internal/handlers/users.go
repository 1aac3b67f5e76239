package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/planora/backend/internal/middleware"
	"github.com/planora/backend/internal/models"
	"github.com/planora/backend/pkg/logger"
	"github.com/planora/backend/pkg/utils"
	"gorm.io/gorm"
)

type UsersHandler struct {
	DB *gorm.DB
}

func NewUsersHandler(db *gorm.DB) *UsersHandler {
	return &UsersHandler{DB: db}
}

func (h *UsersHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)
	search := strings.TrimSpace(c.Query("search"))

	query := h.DB.Model(&models.User{})
	if search != "" {
		searchValue := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", searchValue, searchValue)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}

	var users []models.User
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}

	return utils.Paginated(c, users, p.Page, p.Limit, total)
}

func (h *UsersHandler) Search(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	search := strings.TrimSpace(c.Query("search"))
	limit := c.QueryInt("limit", 5)

	if limit > 50 {
		limit = 50
	}

	if search != "" && currentUser != nil {
		logger.InfoWithUser(currentUser.ID.String(), "user_search", map[string]interface{}{
			"query": search,
			"limit": limit,
		})
	}

	query := h.DB.Model(&models.User{})
	if search != "" {
		searchValue := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", searchValue, searchValue)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Limit(limit).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed searching users")
	}

	return utils.Success(c, fiber.StatusOK, users)
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching user")
	}

	return utils.Success(c, fiber.StatusOK, user)
}

type updateUserRequest struct {
	Name           *string          `json:"name"`
	ProfilePicture *string          `json:"profilePicture"`
	Role           *models.UserRole `json:"role"`
}

func (h *UsersHandler) Update(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return utils.Error(c, fiber.StatusBadRequest, "name cannot be empty")
		}
		updates["name"] = name
	}
	if req.ProfilePicture != nil {
		updates["profile_picture"] = *req.ProfilePicture
	}
	if req.Role != nil {
		if *req.Role != models.UserRoleAdmin && *req.Role != models.UserRoleUser {
			return utils.Error(c, fiber.StatusBadRequest, "invalid role")
		}
		updates["role"] = *req.Role
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching user")
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed updating user")
		}
	}

	return utils.Success(c, fiber.StatusOK, user)
}

// Delete removes the account. Activity rows referencing the user keep their
// history with the reference cleared instead of disappearing with it.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if currentUser != nil && currentUser.ID == userID {
		return utils.Error(c, fiber.StatusBadRequest, "cannot delete your own account")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching user")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		organizedEvents := tx.Model(&models.Event{}).Select("id").Where("organizer_id = ?", userID)
		pollIDs := tx.Model(&models.Poll{}).Select("id").Where("event_id IN (?)", organizedEvents)
		if err := tx.Where("poll_id IN (?)", pollIDs).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id IN (?)", pollIDs).Delete(&models.PollOption{}).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{&models.Poll{}, &models.Invitation{}, &models.Rsvp{}, &models.Comment{}, &models.Like{}} {
			if err := tx.Where("event_id IN (?)", organizedEvents).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Activity{}).Where("event_id IN (?)", organizedEvents).Update("event_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("organizer_id = ?", userID).Delete(&models.Event{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Activity{}).Where("actor_id = ?", userID).Update("actor_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Activity{}).Where("target_user_id = ?", userID).Update("target_user_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("recipient_id = ?", userID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{&models.Vote{}, &models.Rsvp{}, &models.Comment{}, &models.Like{}} {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("sender_id = ?", userID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM conversation_participants WHERE user_id = ?", userID).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting user")
	}

	logger.Info("user_deleted", map[string]interface{}{
		"user_id": userID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "user deleted"})
}
