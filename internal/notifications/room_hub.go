package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"homeroom/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

// RoomHub manages WebSocket connections grouped by chat room. A user may
// hold several connections at once (multi-device); they count as online
// while at least one remains.
type RoomHub struct {
	mu sync.RWMutex

	// roomID -> set of userIDs currently viewing the room
	rooms map[uint]map[uint]struct{}

	// userID -> set of roomIDs they are viewing
	userRooms map[uint]map[uint]struct{}

	// userID -> active clients
	userConns map[uint]map[*Client]bool
}

// NewRoomHub creates an empty RoomHub.
func NewRoomHub() *RoomHub {
	return &RoomHub{
		rooms:     make(map[uint]map[uint]struct{}),
		userRooms: make(map[uint]map[uint]struct{}),
		userConns: make(map[uint]map[*Client]bool),
	}
}

// Register attaches a new websocket connection for the user.
func (h *RoomHub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[*Client]bool)
	}
	if len(h.userConns[userID]) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, fmt.Errorf("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	h.userConns[userID][client] = true
	firstConn := len(h.userConns[userID]) == 1
	h.mu.Unlock()

	middleware.WSConnections.Inc()
	slog.Info("websocket registered", "user_id", userID)

	if firstConn {
		h.broadcastStatus(userID, "online")
	}
	return client, nil
}

// UnregisterClient removes one connection. Room subscriptions are dropped
// only when the user's last connection closes.
func (h *RoomHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.userConns[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	middleware.WSConnections.Dec()

	if len(clients) > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.userConns, client.UserID)

	for roomID := range h.userRooms[client.UserID] {
		if users, ok := h.rooms[roomID]; ok {
			delete(users, client.UserID)
			if len(users) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	delete(h.userRooms, client.UserID)
	h.mu.Unlock()

	slog.Info("websocket closed", "user_id", client.UserID)
	h.broadcastStatus(client.UserID, "offline")
}

// IsUserOnline reports whether the user has at least one live connection.
func (h *RoomHub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

// JoinRoom subscribes a connected user to a room's events.
func (h *RoomHub) JoinRoom(userID, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.userConns[userID]; !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[uint]struct{})
	}
	h.rooms[roomID][userID] = struct{}{}

	if h.userRooms[userID] == nil {
		h.userRooms[userID] = make(map[uint]struct{})
	}
	h.userRooms[userID][roomID] = struct{}{}
}

// LeaveRoom unsubscribes a user from a room's events.
func (h *RoomHub) LeaveRoom(userID, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if users, ok := h.rooms[roomID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if rooms, ok := h.userRooms[userID]; ok {
		delete(rooms, roomID)
	}
}

// BroadcastToRoom sends an event to every connection of every user viewing
// the room.
func (h *RoomHub) BroadcastToRoom(roomID uint, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users, ok := h.rooms[roomID]
	if !ok {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal room event failed", "error", err)
		return
	}

	for userID := range users {
		for client := range h.userConns[userID] {
			client.TrySend(payload)
		}
	}
}

// SendToUser sends an event to every connection of one user.
func (h *RoomHub) SendToUser(userID uint, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal user event failed", "error", err)
		return
	}
	for client := range h.userConns[userID] {
		client.TrySend(payload)
	}
}

// ViewerIDs returns the users currently viewing a room.
func (h *RoomHub) ViewerIDs(roomID uint) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]uint, 0, len(h.rooms[roomID]))
	for userID := range h.rooms[roomID] {
		out = append(out, userID)
	}
	return out
}

// StartWiring connects the hub to Redis pub/sub so events published by any
// server instance reach this instance's clients.
func (h *RoomHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, func(channel, payload string) {
		var event Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			slog.Warn("unparseable event", "channel", channel, "error", err)
			return
		}

		var roomID, userID uint
		switch {
		case scanChannel(channel, "chat:room:%d", &roomID):
			h.BroadcastToRoom(roomID, event)
		case scanChannel(channel, "notifications:user:%d", &userID):
			h.SendToUser(userID, event)
		default:
			slog.Warn("unknown event channel", "channel", channel)
		}
	})
}

func scanChannel(channel, format string, id *uint) bool {
	_, err := fmt.Sscanf(channel, format, id)
	return err == nil
}

func (h *RoomHub) broadcastStatus(userID uint, status string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event := Event{
		Type:    EventUserStatus,
		UserID:  userID,
		Payload: map[string]interface{}{"status": status, "user_id": userID},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	for id, clients := range h.userConns {
		if id == userID {
			continue
		}
		for client := range clients {
			client.TrySend(payload)
		}
	}
}

// Shutdown closes every websocket connection and clears hub state.
func (h *RoomHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.userConns {
		for client := range clients {
			if err := client.Conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"type":"server_shutdown"}`)); err != nil {
				slog.Debug("shutdown notice failed", "user_id", userID, "error", err)
			}
			_ = client.Conn.Close()
		}
	}

	h.rooms = make(map[uint]map[uint]struct{})
	h.userRooms = make(map[uint]map[uint]struct{})
	h.userConns = make(map[uint]map[*Client]bool)
	return nil
}
