// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"homeroom/internal/middleware"
	"homeroom/internal/models"
	"homeroom/internal/notifications"
	"homeroom/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketChatHandler handles WebSocket connections for real-time chat.
// Clients join rooms explicitly; every join is verified against the
// membership table, so a forged room id subscribes to nothing.
func (s *Server) WebSocketChatHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		if s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			slog.Warn("websocket register rejected", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		client.IncomingHandler = func(cl *notifications.Client, raw []byte) {
			var incoming struct {
				Type    string `json:"type"`
				RoomID  uint   `json:"room_id"`
				Content string `json:"content"`
			}
			if err := json.Unmarshal(raw, &incoming); err != nil {
				slog.Debug("websocket invalid message", "user_id", userID)
				return
			}

			switch incoming.Type {
			case "join":
				member, memErr := s.roomRepo.IsMember(ctx, incoming.RoomID, userID)
				if memErr != nil || !member {
					return
				}
				s.hub.JoinRoom(userID, incoming.RoomID)
				ack, _ := json.Marshal(notifications.Event{
					Type:   "joined",
					RoomID: incoming.RoomID,
				})
				cl.TrySend(ack)

			case "leave":
				s.hub.LeaveRoom(userID, incoming.RoomID)

			case "message":
				if incoming.Content == "" {
					return
				}
				// Same rate limit as the HTTP endpoint.
				id := fmt.Sprintf("user:%d", userID)
				allowed, _ := middleware.CheckRateLimit(ctx, s.redis, "send_chat", id, 15, time.Minute)
				if !allowed {
					errMsg, _ := json.Marshal(notifications.Event{
						Type:    "error",
						Payload: map[string]string{"message": "Rate limit exceeded. Please wait a moment."},
					})
					cl.TrySend(errMsg)
					return
				}

				if _, sendErr := s.messages.Send(ctx, service.SendMessageInput{
					SenderID: userID,
					RoomID:   incoming.RoomID,
					Type:     models.MessageTypeText,
					Content:  incoming.Content,
				}); sendErr != nil {
					errMsg, _ := json.Marshal(notifications.Event{
						Type:    "error",
						RoomID:  incoming.RoomID,
						Payload: map[string]string{"message": sendErr.Error()},
					})
					cl.TrySend(errMsg)
				}

			case "read":
				if readErr := s.unread.MarkRead(ctx, incoming.RoomID, userID); readErr != nil {
					slog.Debug("websocket mark read failed",
						"user_id", userID, "room_id", incoming.RoomID, "error", readErr)
				}
			}
		}

		welcome, _ := json.Marshal(notifications.Event{
			Type:    "connected",
			UserID:  userID,
			Payload: map[string]any{"user_id": userID},
		})
		client.TrySend(welcome)

		go client.WritePump()

		// Read pump runs in the main handler goroutine (blocking).
		client.ReadPump()
	})
}
