// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"homeroom/internal/models"
	"homeroom/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SendMessage handles POST /api/chat/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		RoomID  uint   `json:"room_id"`
		Type    string `json:"type,omitempty"`
		Content string `json:"content"`
		FileURL string `json:"file_url,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msgType := models.MessageType(req.Type)
	if req.Type == "" {
		msgType = models.MessageTypeText
	}

	message, err := s.messages.Send(c.UserContext(), service.SendMessageInput{
		SenderID: userID,
		RoomID:   req.RoomID,
		Type:     msgType,
		Content:  req.Content,
		FileURL:  req.FileURL,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}

// SendBulkImages handles POST /api/chat/messages/bulk. The guard chain runs
// once for the batch; the rows land in a single transaction.
func (s *Server) SendBulkImages(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		RoomID   uint     `json:"room_id"`
		FileURLs []string `json:"file_urls"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	messages, err := s.messages.SendBulkImages(c.UserContext(), userID, req.RoomID, req.FileURLs)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(messages)
}

// DeleteMessage handles DELETE /api/chat/messages/:id. The response reports
// whether the message was removed for everyone or only hidden for the caller.
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	userID := currentUserID(c)
	messageID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	outcome, err := s.messages.Delete(c.UserContext(), messageID, userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"result": outcome})
}

// SendNotice handles POST /api/chat/notice
func (s *Server) SendNotice(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		RoomID  uint   `json:"room_id"`
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	notice, err := s.messages.SendNotice(c.UserContext(), userID, req.RoomID, req.Content)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(notice)
}

// DeleteNotice handles DELETE /api/chat/notice/:id. Notices are always
// hard-deleted, with no age window.
func (s *Server) DeleteNotice(c *fiber.Ctx) error {
	userID := currentUserID(c)
	noticeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.messages.DeleteNotice(c.UserContext(), noticeID, userID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Notice deleted"})
}

// GetRoomMessages handles GET /api/chat/rooms/:id/messages
func (s *Server) GetRoomMessages(c *fiber.Ctx) error {
	userID := currentUserID(c)
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page := parsePagination(c, 50)

	messages, err := s.messages.List(c.UserContext(), roomID, userID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(messages)
}

// GetUnreadCount handles GET /api/chat/unread-count
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	userID := currentUserID(c)

	count, err := s.unread.Count(c.UserContext(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"total": count})
}

// GetUnreadSummary handles GET /api/chat/unread-summary
func (s *Server) GetUnreadSummary(c *fiber.Ctx) error {
	userID := currentUserID(c)

	summary, err := s.unread.Summary(c.UserContext(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(summary)
}
