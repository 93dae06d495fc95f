// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"time"

	"homeroom/internal/models"
	"homeroom/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePoll handles POST /api/chat/poll/create
func (s *Server) CreatePoll(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		RoomID    uint       `json:"room_id"`
		Title     string     `json:"title"`
		Options   []string   `json:"options"`
		Anonymous bool       `json:"anonymous,omitempty"`
		ClosesAt  *time.Time `json:"closes_at,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	message, err := s.polls.Create(c.UserContext(), service.CreatePollInput{
		SenderID:  userID,
		RoomID:    req.RoomID,
		Title:     req.Title,
		Options:   req.Options,
		Anonymous: req.Anonymous,
		ClosesAt:  req.ClosesAt,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}

// VotePoll handles POST /api/chat/poll/vote. A second vote by the same
// member is a conflict, not an update.
func (s *Server) VotePoll(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		MessageID uint   `json:"message_id"`
		OptionID  string `json:"option_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.polls.Vote(c.UserContext(), req.MessageID, userID, req.OptionID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Vote recorded"})
}

// UnvotePoll handles POST /api/chat/poll/unvote
func (s *Server) UnvotePoll(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		MessageID uint `json:"message_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.polls.Unvote(c.UserContext(), req.MessageID, userID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Vote withdrawn"})
}

// ClosePoll handles POST /api/chat/poll/close
func (s *Server) ClosePoll(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		MessageID uint `json:"message_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.polls.Close(c.UserContext(), req.MessageID, userID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Poll closed"})
}

// GetPollResults handles GET /api/chat/poll/:messageId
func (s *Server) GetPollResults(c *fiber.Ctx) error {
	userID := currentUserID(c)
	messageID, err := s.parseID(c, "messageId")
	if err != nil {
		return nil
	}

	result, err := s.polls.Results(c.UserContext(), messageID, userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(result)
}
