package server

import (
	"fmt"
	"net/http"
	"testing"

	"homeroom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportMessage_FansOutToAdmins(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "principal", "school-a", models.RoleAdmin)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)
	room := env.directRoom(t, alice.ID, bob.ID)

	var message models.ChatMessage
	env.request(t, http.MethodPost, "/api/chat/messages", bob.ID,
		map[string]any{"room_id": room.ID, "content": "mean words"}, &message)

	var report models.ChatReport
	resp := env.request(t, http.MethodPost, "/api/chat/report", alice.ID,
		map[string]any{"room_id": room.ID, "message_id": message.ID, "reason": "harassment"}, &report)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var notes []models.Notification
	resp = env.request(t, http.MethodGet, "/api/notifications?unread=true", admin.ID, nil, &notes)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, notes, 1)
	assert.Equal(t, "chat_report", notes[0].Kind)

	// Mark read and the unread view empties.
	resp = env.request(t, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", notes[0].ID), admin.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env.request(t, http.MethodGet, "/api/notifications?unread=true", admin.ID, nil, &notes)
	assert.Empty(t, notes)
}

func TestReportMessage_DuplicateIsConflict(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)
	room := env.directRoom(t, alice.ID, bob.ID)

	var message models.ChatMessage
	env.request(t, http.MethodPost, "/api/chat/messages", bob.ID,
		map[string]any{"room_id": room.ID, "content": "spam"}, &message)

	body := map[string]any{"room_id": room.ID, "message_id": message.ID, "reason": "spam"}
	resp := env.request(t, http.MethodPost, "/api/chat/report", alice.ID, body, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/chat/report", alice.ID, body, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestReportMessage_OwnMessageRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)
	room := env.directRoom(t, alice.ID, bob.ID)

	var message models.ChatMessage
	env.request(t, http.MethodPost, "/api/chat/messages", alice.ID,
		map[string]any{"room_id": room.ID, "content": "self"}, &message)

	resp := env.request(t, http.MethodPost, "/api/chat/report", alice.ID,
		map[string]any{"room_id": room.ID, "message_id": message.ID, "reason": "testing"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
