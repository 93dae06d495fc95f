// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"homeroom/internal/models"
	"homeroom/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ReportMessage handles POST /api/chat/report
func (s *Server) ReportMessage(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		RoomID    uint   `json:"room_id"`
		MessageID uint   `json:"message_id"`
		Reason    string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	report, err := s.reports.ReportMessage(c.UserContext(), service.ReportMessageInput{
		ReporterID: userID,
		RoomID:     req.RoomID,
		MessageID:  req.MessageID,
		Reason:     req.Reason,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(report)
}

// GetNotifications handles GET /api/notifications. Pass ?unread=true to
// restrict to unread rows.
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	userID := currentUserID(c)
	unreadOnly := c.QueryBool("unread", false)

	notes, err := s.reports.ListNotifications(c.UserContext(), userID, unreadOnly)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(notes)
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	userID := currentUserID(c)
	noteID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if markErr := s.reports.MarkNotificationRead(c.UserContext(), userID, noteID); markErr != nil {
		return models.RespondError(c, markErr)
	}

	return c.JSON(fiber.Map{"message": "Notification read"})
}
