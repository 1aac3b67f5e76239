package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/planora/backend/internal/models"
	"github.com/planora/backend/pkg/utils"
)

const Version = "1.0.0"

func GetVersion(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, fiber.Map{"version": Version})
}

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func isValidInvitationStatus(value string) bool {
	switch models.InvitationStatus(strings.ToLower(strings.TrimSpace(value))) {
	case models.InvitationStatusAccepted, models.InvitationStatusDeclined, models.InvitationStatusMaybe:
		return true
	default:
		return false
	}
}
