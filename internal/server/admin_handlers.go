// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"homeroom/internal/models"

	"github.com/gofiber/fiber/v2"
)

// BanUser handles POST /api/admin/users/:id/ban. This and unban are the
// only explicit ban-state transitions; everything else derives ban status
// at read time.
func (s *Server) BanUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Kind   string `json:"kind"`
		Reason string `json:"reason,omitempty"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if banErr := s.moderation.BanUser(c.UserContext(), targetID, models.BanKind(req.Kind), req.Reason); banErr != nil {
		return models.RespondError(c, banErr)
	}

	return c.JSON(fiber.Map{"message": "User banned"})
}

// UnbanUser handles POST /api/admin/users/:id/unban
func (s *Server) UnbanUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if unbanErr := s.moderation.UnbanUser(c.UserContext(), targetID); unbanErr != nil {
		return models.RespondError(c, unbanErr)
	}

	return c.JSON(fiber.Map{"message": "User unbanned"})
}

// GetReports handles GET /api/admin/reports
func (s *Server) GetReports(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	reports, err := s.reports.ListReports(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(reports)
}
