// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"homeroom/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ToggleBlock handles POST /api/friends/blocks. The same call blocks an
// unblocked user and unblocks a blocked one; the response says which
// happened.
func (s *Server) ToggleBlock(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		TargetID uint `json:"target_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	blocked, err := s.social.ToggleBlock(c.UserContext(), userID, req.TargetID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"blocked": blocked})
}

// GetBlocks handles GET /api/friends/blocks
func (s *Server) GetBlocks(c *fiber.Ctx) error {
	userID := currentUserID(c)

	blocks, err := s.social.ListBlocks(c.UserContext(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(blocks)
}

// GetFriends handles GET /api/friends
func (s *Server) GetFriends(c *fiber.Ctx) error {
	userID := currentUserID(c)

	friends, err := s.social.ListFriends(c.UserContext(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(friends)
}

// AddFriend handles POST /api/friends/:userId
func (s *Server) AddFriend(c *fiber.Ctx) error {
	userID := currentUserID(c)
	friendID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if addErr := s.social.AddFriend(c.UserContext(), userID, friendID); addErr != nil {
		return models.RespondError(c, addErr)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Friend added"})
}

// RemoveFriend handles DELETE /api/friends/:userId
func (s *Server) RemoveFriend(c *fiber.Ctx) error {
	userID := currentUserID(c)
	friendID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if rmErr := s.social.RemoveFriend(c.UserContext(), userID, friendID); rmErr != nil {
		return models.RespondError(c, rmErr)
	}

	return c.JSON(fiber.Map{"message": "Friend removed"})
}
