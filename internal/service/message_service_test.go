package service

import (
	"testing"
	"time"

	"homeroom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_BannedSenderRejected(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	room := f.directRoom(t, alice, bob)

	require.NoError(t, f.moderation.BanUser(testCtx(), alice.ID, models.BanKind24h, "spam"))

	_, err := f.messages.Send(testCtx(), SendMessageInput{
		SenderID: alice.ID,
		RoomID:   room.ID,
		Type:     models.MessageTypeText,
		Content:  "hello",
	})
	assert.Equal(t, models.CodeForbidden, errCode(t, err))

	// Reads are not gated by ban status.
	_, err = f.messages.List(testCtx(), room.ID, alice.ID, 50, 0)
	assert.NoError(t, err)
}

func TestSend_CrossSchoolRejectedButStillReadable(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	room := f.directRoom(t, alice, bob)
	f.text(t, room, bob, "before the transfer")

	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", bob.ID).
		Update("school_code", "nhs").Error)

	_, err := f.messages.Send(testCtx(), SendMessageInput{
		SenderID: alice.ID,
		RoomID:   room.ID,
		Type:     models.MessageTypeText,
		Content:  "hello?",
	})
	assert.Equal(t, models.CodeForbidden, errCode(t, err))

	// The room and its history remain readable.
	msgs, err := f.messages.List(testCtx(), room.ID, alice.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSend_NonMemberRejected(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	mallory := f.user(t, "mallory", "bhs")
	room := f.directRoom(t, alice, bob)

	_, err := f.messages.Send(testCtx(), SendMessageInput{
		SenderID: mallory.ID,
		RoomID:   room.ID,
		Type:     models.MessageTypeText,
		Content:  "let me in",
	})
	assert.Equal(t, models.CodeForbidden, errCode(t, err))
}

func TestDelete_InsideWindowRemovesForEveryone(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	room := f.directRoom(t, alice, bob)
	msg := f.text(t, room, alice, "oops")

	f.messages.now = func() time.Time { return msg.CreatedAt.Add(23*time.Hour + 59*time.Minute) }

	outcome, err := f.messages.Delete(testCtx(), msg.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, DeletedForAll, outcome)

	msgs, err := f.messages.List(testCtx(), room.ID, bob.ID, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDelete_PastWindowHidesFromDeleterOnly(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	room := f.directRoom(t, alice, bob)
	msg := f.text(t, room, alice, "old news")

	f.messages.now = func() time.Time { return msg.CreatedAt.Add(24*time.Hour + time.Minute) }

	outcome, err := f.messages.Delete(testCtx(), msg.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, DeletedForMe, outcome)

	// Still visible to bob, hidden from alice.
	forBob, err := f.messages.List(testCtx(), room.ID, bob.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, forBob, 1)

	forAlice, err := f.messages.List(testCtx(), room.ID, alice.ID, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, forAlice)
}

func TestDelete_OnlySender(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	room := f.directRoom(t, alice, bob)
	msg := f.text(t, room, alice, "mine")

	_, err := f.messages.Delete(testCtx(), msg.ID, bob.ID)
	assert.Equal(t, models.CodeForbidden, errCode(t, err))
}

func TestDelete_HardDeletePurgesBlob(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	room := f.directRoom(t, alice, bob)

	url, err := f.blobs.Put(testCtx(), "uploads/pic.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)

	msg, err := f.messages.Send(testCtx(), SendMessageInput{
		SenderID: alice.ID,
		RoomID:   room.ID,
		Type:     models.MessageTypeImage,
		FileURL:  url,
	})
	require.NoError(t, err)
	require.True(t, f.blobs.Has(url))

	_, err = f.messages.Delete(testCtx(), msg.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, f.blobs.Has(url))
}

func TestDeleteNotice_HardOnlyAndBanGated(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	room := f.directRoom(t, alice, bob)

	notice, err := f.messages.SendNotice(testCtx(), alice.ID, room.ID, "class moved to rm 204")
	require.NoError(t, err)

	// A banned sender cannot delete even their own prior notice.
	require.NoError(t, f.moderation.BanUser(testCtx(), alice.ID, models.BanKind24h, "spam"))
	err = f.messages.DeleteNotice(testCtx(), notice.ID, alice.ID)
	assert.Equal(t, models.CodeForbidden, errCode(t, err))

	// After unban the delete is hard regardless of age.
	require.NoError(t, f.moderation.UnbanUser(testCtx(), alice.ID))
	f.messages.now = func() time.Time { return notice.CreatedAt.Add(48 * time.Hour) }
	require.NoError(t, f.messages.DeleteNotice(testCtx(), notice.ID, alice.ID))

	msgs, err := f.messages.List(testCtx(), room.ID, bob.ID, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendBulkImages_SingleGuardPass(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	room := f.directRoom(t, alice, bob)

	msgs, err := f.messages.SendBulkImages(testCtx(), alice.ID, room.ID,
		[]string{"mem://a.png", "mem://b.png", "mem://c.png"})
	require.NoError(t, err)
	assert.Len(t, msgs, 3)

	listed, err := f.messages.List(testCtx(), room.ID, bob.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	_, err = f.messages.SendBulkImages(testCtx(), alice.ID, room.ID, nil)
	assert.Equal(t, models.CodeValidation, errCode(t, err))
}
