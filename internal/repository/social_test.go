package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_EitherDirection(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSocialRepository(db)
	alice := createTestUser(t, db, "alice", "bhs")
	bob := createTestUser(t, db, "bob", "bhs")

	blocked, err := repo.HasBlockEither(testCtx(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, repo.Block(testCtx(), alice.ID, bob.ID))

	blocked, err = repo.HasBlockEither(testCtx(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	// Order of arguments does not matter.
	blocked, err = repo.HasBlockEither(testCtx(), bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestBlock_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSocialRepository(db)
	alice := createTestUser(t, db, "alice", "bhs")
	bob := createTestUser(t, db, "bob", "bhs")

	require.NoError(t, repo.Block(testCtx(), alice.ID, bob.ID))
	require.NoError(t, repo.Block(testCtx(), alice.ID, bob.ID))

	blocks, err := repo.ListBlocks(testCtx(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, blocks, 1)
}

func TestBlockedIDs_Deduplicated(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSocialRepository(db)
	alice := createTestUser(t, db, "alice", "bhs")
	bob := createTestUser(t, db, "bob", "bhs")
	carol := createTestUser(t, db, "carol", "bhs")

	require.NoError(t, repo.Block(testCtx(), alice.ID, bob.ID))
	require.NoError(t, repo.Block(testCtx(), bob.ID, alice.ID))
	require.NoError(t, repo.Block(testCtx(), carol.ID, alice.ID))

	ids, err := repo.BlockedIDs(testCtx(), alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{bob.ID, carol.ID}, ids)
}

func TestFriends_BothDirections(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSocialRepository(db)
	alice := createTestUser(t, db, "alice", "bhs")
	bob := createTestUser(t, db, "bob", "bhs")

	require.NoError(t, repo.AddFriend(testCtx(), alice.ID, bob.ID))

	ok, err := repo.AreFriends(testCtx(), bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.RemoveFriend(testCtx(), bob.ID, alice.ID))

	ok, err = repo.AreFriends(testCtx(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
