package service

import (
	"testing"

	"homeroom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleBlock_FlipsState(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")

	blocked, err := f.social.ToggleBlock(testCtx(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	blocks, err := f.social.ListBlocks(testCtx(), alice.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, bob.ID, blocks[0].BlockedID)

	blocked, err = f.social.ToggleBlock(testCtx(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, blocked)

	blocks, err = f.social.ListBlocks(testCtx(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestToggleBlock_SelfRejected(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")

	_, err := f.social.ToggleBlock(testCtx(), alice.ID, alice.ID)
	assert.Equal(t, models.CodeValidation, errCode(t, err))
}

func TestToggleBlock_UnknownTargetRejected(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")

	_, err := f.social.ToggleBlock(testCtx(), alice.ID, 9999)
	assert.Equal(t, models.CodeNotFound, errCode(t, err))
}

func TestFriends_MutualAndBlockGated(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")

	require.NoError(t, f.social.AddFriend(testCtx(), alice.ID, bob.ID))

	// The edge is mutual.
	friends, err := f.social.ListFriends(testCtx(), bob.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, alice.ID, friends[0].FriendID)

	require.NoError(t, f.social.RemoveFriend(testCtx(), alice.ID, bob.ID))

	_, err = f.social.ToggleBlock(testCtx(), bob.ID, alice.ID)
	require.NoError(t, err)
	err = f.social.AddFriend(testCtx(), alice.ID, bob.ID)
	assert.Equal(t, models.CodeForbidden, errCode(t, err))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)

	user, err := f.accounts.Register(testCtx(), RegisterInput{
		Username:   "dana",
		Email:      "Dana@School.Test",
		Password:   "correct-horse",
		SchoolCode: "bhs",
	})
	require.NoError(t, err)
	assert.Equal(t, "dana@school.test", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NotEqual(t, "correct-horse", user.Password)

	got, err := f.accounts.Authenticate(testCtx(), "dana@school.test", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.accounts.Authenticate(testCtx(), "dana@school.test", "wrong")
	assert.Equal(t, models.CodeUnauthenticated, errCode(t, err))

	_, err = f.accounts.Register(testCtx(), RegisterInput{
		Username:   "dana2",
		Email:      "dana@school.test",
		Password:   "another-pass",
		SchoolCode: "bhs",
	})
	assert.Equal(t, models.CodeConflict, errCode(t, err))
}
