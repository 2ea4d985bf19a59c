package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"kucukaslan/activity/domain"
)

var _ AdminHandler = &adminHandler{}

type adminHandler struct {
	retention domain.RetentionService
}

func NewAdminHandler(retention domain.RetentionService) AdminHandler {
	return &adminHandler{retention: retention}
}

// Cleanup deletes activities past the retention horizon
// @Summary Retention cleanup
// @Description Delete activities older than the given number of days. Safe to repeat.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param days query int false "Horizon in days; defaults to the configured retention"
// @Success 200 {object} domain.CleanupResponse
// @Failure 400 {object} domain.ErrorResponse
// @Failure 500 {object} domain.ErrorResponse
// @Router /api/admin/activities/cleanup [post]
func (h *adminHandler) Cleanup(c *fiber.Ctx) error {
	days, err := queryInt(c, "days", 0)
	if err != nil {
		return err
	}
	deleted, err := h.retention.Cleanup(c.UserContext(), days)
	if err != nil {
		return err
	}
	msg := "Deleted activities past the retention horizon"
	if days > 0 {
		msg = fmt.Sprintf("Deleted activities older than %d days", days)
	}
	return c.Status(fiber.StatusOK).JSON(domain.CleanupResponse{Success: true, Message: msg, DeletedCount: deleted})
}

// Purge deletes activities matching a filter
// @Summary Purge activities
// @Description Delete every activity of a user or session, optionally only before a time. At least one criterion is required.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param filter body domain.PurgeFilter true "Selection"
// @Success 200 {object} domain.CleanupResponse
// @Failure 400 {object} domain.ErrorResponse
// @Failure 500 {object} domain.ErrorResponse
// @Router /api/admin/activities/purge [post]
func (h *adminHandler) Purge(c *fiber.Ctx) error {
	var filter domain.PurgeFilter
	if err := decodeBody(c, &filter); err != nil {
		return err
	}
	deleted, err := h.retention.Purge(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(domain.CleanupResponse{Success: true, Message: "Activities purged", DeletedCount: deleted})
}
