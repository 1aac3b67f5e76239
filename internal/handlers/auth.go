package handlers

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
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

const verificationCodeTTL = 15 * time.Minute

type AuthHandler struct {
	DB     *gorm.DB
	Mail   *services.MailService
	Images *storage.ImageStore
}

func NewAuthHandler(db *gorm.DB, mailService *services.MailService, images *storage.ImageStore) *AuthHandler {
	return &AuthHandler{DB: db, Mail: mailService, Images: images}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid email")
	}
	if len(req.Password) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	var existing models.User
	if err := h.DB.First(&existing, "email = ?", req.Email).Error; err == nil {
		return utils.Error(c, fiber.StatusConflict, "email already registered")
	} else if err != gorm.ErrRecordNotFound {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing user")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to hash password")
	}

	code, err := generateVerificationCode()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating verification code")
	}
	expiresAt := time.Now().UTC().Add(verificationCodeTTL)

	user := models.User{
		Name:             req.Name,
		Email:            req.Email,
		PasswordHash:     passwordHash,
		Role:             models.UserRoleUser,
		VerificationCode: &code,
		CodeExpiresAt:    &expiresAt,
	}

	if err := h.DB.Create(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	logger.Info("user_registered", map[string]interface{}{
		"user_id": user.ID.String(),
		"email":   user.Email,
	})

	h.Mail.SendVerificationCode(user.Email, user.Name, code)

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"user": user})
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)

	if req.Email == "" || req.Code == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email and code are required")
	}

	var user models.User
	if err := h.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}

	if user.IsVerified {
		return utils.Error(c, fiber.StatusBadRequest, "account already verified")
	}
	if user.VerificationCode == nil || *user.VerificationCode != req.Code {
		logger.Warn("verification_failed_bad_code", map[string]interface{}{
			"user_id": user.ID.String(),
			"ip":      c.IP(),
		})
		return utils.Error(c, fiber.StatusBadRequest, "invalid verification code")
	}
	if user.CodeExpiresAt == nil || time.Now().UTC().After(*user.CodeExpiresAt) {
		return utils.Error(c, fiber.StatusBadRequest, "verification code expired")
	}

	updates := map[string]interface{}{
		"is_verified":       true,
		"verification_code": nil,
		"code_expires_at":   nil,
	}
	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed verifying account")
	}
	user.IsVerified = true

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	logger.Info("user_verified", map[string]interface{}{
		"user_id": user.ID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"token": token, "user": user})
}

type resendCodeRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ResendCode(c *fiber.Ctx) error {
	var req resendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := h.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		// Same response as success so the endpoint cannot be used to probe accounts.
		return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "verification code sent"})
	}
	if user.IsVerified {
		return utils.Error(c, fiber.StatusBadRequest, "account already verified")
	}

	code, err := generateVerificationCode()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating verification code")
	}
	expiresAt := time.Now().UTC().Add(verificationCodeTTL)

	if err := h.DB.Model(&user).Updates(map[string]interface{}{
		"verification_code": code,
		"code_expires_at":   expiresAt,
	}).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing verification code")
	}

	h.Mail.SendVerificationCode(user.Email, user.Name, code)

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "verification code sent"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Email == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email and password are required")
	}

	var user models.User
	if err := h.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		logger.Warn("login_failed_user_not_found", map[string]interface{}{
			"email": req.Email,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		logger.Warn("login_failed_invalid_password", map[string]interface{}{
			"user_id": user.ID.String(),
			"ip":      c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if !user.IsVerified {
		return utils.Error(c, fiber.StatusForbidden, "email not verified")
	}

	now := time.Now().UTC()
	h.DB.Model(&user).Updates(map[string]interface{}{
		"is_online":     true,
		"last_activity": now,
	})

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	logger.Info("user_login", map[string]interface{}{
		"user_id": user.ID.String(),
		"ip":      c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"token": token, "user": user})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	h.DB.Model(user).Update("is_online", false)

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, user)
}

type updateMeRequest struct {
	Name           *string `json:"name"`
	ProfilePicture *string `json:"profilePicture"`
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateMeRequest
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

	if len(updates) == 0 {
		return utils.Success(c, fiber.StatusOK, user)
	}

	if err := h.DB.Model(user).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating profile")
	}

	return utils.Success(c, fiber.StatusOK, user)
}

// UploadAvatar replaces the viewer's profile picture with an uploaded image.
// The previous object is removed only when it was one of ours; external URLs
// set through UpdateMe are left alone.
func (h *AuthHandler) UploadAvatar(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
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

	objectName := fmt.Sprintf("avatars/%s", uuid.New().String())
	if err := h.Images.Upload(c.Context(), objectName, file, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing image")
	}

	if user.ProfilePicture != nil && strings.HasPrefix(*user.ProfilePicture, "avatars/") {
		_ = h.Images.Delete(c.Context(), *user.ProfilePicture)
	}

	if err := h.DB.Model(user).Update("profile_picture", objectName).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating profile")
	}

	return utils.Success(c, fiber.StatusOK, user)
}

// GetAvatar streams a user's stored profile picture. Externally hosted
// pictures are not proxied; the client follows those URLs directly.
func (h *AuthHandler) GetAvatar(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}
	if user.ProfilePicture == nil || !strings.HasPrefix(*user.ProfilePicture, "avatars/") || h.Images == nil {
		return utils.Error(c, fiber.StatusNotFound, "user has no stored avatar")
	}

	obj, err := h.Images.Download(c.Context(), *user.ProfilePicture)
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "avatar not found")
	}

	return c.SendStream(obj)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if !utils.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return utils.Error(c, fiber.StatusUnauthorized, "current password is incorrect")
	}
	if len(req.NewPassword) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to hash password")
	}

	if err := h.DB.Model(user).Update("password_hash", hash).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating password")
	}

	logger.InfoWithUser(user.ID.String(), "password_changed", nil)

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "password updated"})
}

func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
