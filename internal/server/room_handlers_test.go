package server

import (
	"fmt"
	"net/http"
	"testing"

	"homeroom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom_DirectIsDeduplicated(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)

	var first models.ChatRoom
	resp := env.request(t, http.MethodPost, "/api/chat/rooms", alice.ID,
		map[string]any{"member_ids": []uint{bob.ID}}, &first)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.False(t, first.IsGroup)

	// Bob opening the same pair lands in the same room, answered as a
	// lookup rather than a create.
	var second models.ChatRoom
	resp = env.request(t, http.MethodPost, "/api/chat/rooms", bob.ID,
		map[string]any{"member_ids": []uint{alice.ID}}, &second)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateRoom_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)

	resp := env.request(t, http.MethodPost, "/api/chat/rooms", alice.ID, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRoom_GroupRequiresName(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)
	carol := env.user(t, "carol", "school-a", models.RoleStudent)

	resp := env.request(t, http.MethodPost, "/api/chat/rooms", alice.ID,
		map[string]any{"member_ids": []uint{bob.ID, carol.ID}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var room models.ChatRoom
	resp = env.request(t, http.MethodPost, "/api/chat/rooms", alice.ID,
		map[string]any{"name": "study group", "member_ids": []uint{bob.ID, carol.ID}}, &room)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, room.IsGroup)
	assert.Len(t, room.Members, 3)
}

func TestGetRoom_NonMemberForbidden(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)
	mallory := env.user(t, "mallory", "school-a", models.RoleStudent)

	var room models.ChatRoom
	env.request(t, http.MethodPost, "/api/chat/rooms", alice.ID,
		map[string]any{"member_ids": []uint{bob.ID}}, &room)

	resp := env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/rooms/%d", room.ID), mallory.ID, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeForbidden, errCodeFromBody(t, resp))
}

func TestGetRooms_ListsMemberships(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)

	env.request(t, http.MethodPost, "/api/chat/rooms", alice.ID,
		map[string]any{"member_ids": []uint{bob.ID}}, nil)

	var rooms []models.ChatRoom
	resp := env.request(t, http.MethodGet, "/api/chat/rooms", alice.ID, nil, &rooms)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, rooms, 1)
}

func TestInviteMembers_PromotesDirectRoom(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)
	carol := env.user(t, "carol", "school-a", models.RoleStudent)

	var room models.ChatRoom
	env.request(t, http.MethodPost, "/api/chat/rooms", alice.ID,
		map[string]any{"member_ids": []uint{bob.ID}}, &room)

	var promoted models.ChatRoom
	resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/chat/rooms/%d/invite", room.ID), alice.ID,
		map[string]any{"member_ids": []uint{carol.ID}}, &promoted)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, promoted.IsGroup)
	assert.Len(t, promoted.Members, 3)
}

func TestInviteMembers_RequiresBodyAndMembership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)
	mallory := env.user(t, "mallory", "school-a", models.RoleStudent)

	var room models.ChatRoom
	env.request(t, http.MethodPost, "/api/chat/rooms", alice.ID,
		map[string]any{"member_ids": []uint{bob.ID}}, &room)

	resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/chat/rooms/%d/invite", room.ID), alice.ID,
		map[string]any{"member_ids": []uint{}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost, fmt.Sprintf("/api/chat/rooms/%d/invite", room.ID), mallory.ID,
		map[string]any{"member_ids": []uint{mallory.ID}}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRenameRoom(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)

	var room models.ChatRoom
	env.request(t, http.MethodPost, "/api/chat/rooms", alice.ID,
		map[string]any{"member_ids": []uint{bob.ID}}, &room)

	// Any member may rename, not just the creator.
	resp := env.request(t, http.MethodPatch, fmt.Sprintf("/api/chat/rooms/%d/name", room.ID), bob.ID,
		map[string]any{"name": "renamed"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.ChatRoom
	env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/rooms/%d", room.ID), alice.ID, nil, &fetched)
	assert.Equal(t, "renamed", fetched.Name)
}

func TestRenameRoom_InvalidID(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)

	resp := env.request(t, http.MethodPatch, "/api/chat/rooms/abc/name", alice.ID,
		map[string]any{"name": "renamed"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLeaveRoom_KeepsRoomAlive(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)

	var room models.ChatRoom
	env.request(t, http.MethodPost, "/api/chat/rooms", alice.ID,
		map[string]any{"member_ids": []uint{bob.ID}}, &room)

	resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/chat/rooms/%d/leave", room.ID), bob.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Bob is out, alice still sees the room.
	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/rooms/%d", room.ID), bob.ID, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/rooms/%d", room.ID), alice.ID, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteRoom_CreatorOnlyForPopulatedRooms(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)
	carol := env.user(t, "carol", "school-a", models.RoleStudent)

	var room models.ChatRoom
	env.request(t, http.MethodPost, "/api/chat/rooms", alice.ID,
		map[string]any{"name": "club", "member_ids": []uint{bob.ID, carol.ID}}, &room)

	resp := env.request(t, http.MethodDelete, fmt.Sprintf("/api/chat/rooms/%d", room.ID), bob.ID, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, fmt.Sprintf("/api/chat/rooms/%d", room.ID), alice.ID, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/rooms/%d", room.ID), alice.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMarkRoomRead_ClearsUnread(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", "school-a", models.RoleStudent)
	bob := env.user(t, "bob", "school-a", models.RoleStudent)

	var room models.ChatRoom
	env.request(t, http.MethodPost, "/api/chat/rooms", alice.ID,
		map[string]any{"member_ids": []uint{bob.ID}}, &room)
	env.request(t, http.MethodPost, "/api/chat/messages", bob.ID,
		map[string]any{"room_id": room.ID, "content": "hey"}, nil)

	var count struct {
		Total int64 `json:"total"`
	}
	env.request(t, http.MethodGet, "/api/chat/unread-count", alice.ID, nil, &count)
	assert.Equal(t, int64(1), count.Total)

	resp := env.request(t, http.MethodPost, fmt.Sprintf("/api/chat/rooms/%d/read", room.ID), alice.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env.request(t, http.MethodGet, "/api/chat/unread-count", alice.ID, nil, &count)
	assert.Equal(t, int64(0), count.Total)
}
