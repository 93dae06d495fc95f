// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"homeroom/internal/models"
	"homeroom/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateRoom handles POST /api/chat/rooms. The member set decides what is
// created: self chat, deduplicated 1:1, or group.
func (s *Server) CreateRoom(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		Name      string `json:"name,omitempty"`
		IsGroup   bool   `json:"is_group,omitempty"`
		MemberIDs []uint `json:"member_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	room, created, err := s.rooms.CreateRoom(c.UserContext(), service.CreateRoomInput{
		CreatorID: userID,
		Name:      req.Name,
		IsGroup:   req.IsGroup,
		MemberIDs: req.MemberIDs,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	// A dedup hit answers with the existing room, not a fresh create.
	status := fiber.StatusCreated
	if !created {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(room)
}

// GetRooms handles GET /api/chat/rooms. Rooms come back ordered by last
// activity with per-room unread counts attached.
func (s *Server) GetRooms(c *fiber.Ctx) error {
	userID := currentUserID(c)

	rooms, err := s.rooms.ListRooms(c.UserContext(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(rooms)
}

// GetRoom handles GET /api/chat/rooms/:id
func (s *Server) GetRoom(c *fiber.Ctx) error {
	userID := currentUserID(c)
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	room, err := s.rooms.GetRoomForUser(c.UserContext(), roomID, userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(room)
}

// InviteMembers handles POST /api/chat/rooms/:id/invite. Inviting into a
// 1:1 room promotes it to a group permanently.
func (s *Server) InviteMembers(c *fiber.Ctx) error {
	userID := currentUserID(c)
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		MemberIDs []uint `json:"member_ids"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if len(req.MemberIDs) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("member_ids is required"))
	}

	room, err := s.rooms.InviteMembers(c.UserContext(), roomID, userID, req.MemberIDs)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(room)
}

// LeaveRoom handles POST /api/chat/rooms/:id/leave
func (s *Server) LeaveRoom(c *fiber.Ctx) error {
	userID := currentUserID(c)
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.rooms.LeaveRoom(c.UserContext(), roomID, userID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Left room"})
}

// RenameRoom handles PATCH /api/chat/rooms/:id/name
func (s *Server) RenameRoom(c *fiber.Ctx) error {
	userID := currentUserID(c)
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name string `json:"name"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.rooms.RenameRoom(c.UserContext(), roomID, userID, req.Name); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Room renamed"})
}

// DeleteRoom handles DELETE /api/chat/rooms/:id
func (s *Server) DeleteRoom(c *fiber.Ctx) error {
	userID := currentUserID(c)
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.rooms.DeleteRoom(c.UserContext(), roomID, userID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Room deleted"})
}

// MarkRoomRead handles POST /api/chat/rooms/:id/read, advancing the
// caller's read cursor to the room's newest message.
func (s *Server) MarkRoomRead(c *fiber.Ctx) error {
	userID := currentUserID(c)
	roomID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.unread.MarkRead(c.UserContext(), roomID, userID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Marked read"})
}
