package service

import (
	"testing"

	"homeroom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportMessage_FanOutToAdmins(t *testing.T) {
	f := newFixture(t)
	principal := f.admin(t, "principal")
	vice := f.admin(t, "vice-principal")
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	room := f.directRoom(t, alice, bob)
	msg := f.text(t, room, bob, "rude remark")

	report, err := f.reports.ReportMessage(testCtx(), ReportMessageInput{
		ReporterID: alice.ID,
		RoomID:     room.ID,
		MessageID:  msg.ID,
		Reason:     "harassment",
	})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, report.ReportedUserID)

	// One notification per administrator, each linked to the report.
	for _, admin := range []*models.User{principal, vice} {
		notes, err := f.reports.ListNotifications(testCtx(), admin.ID, true)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		require.NotNil(t, notes[0].ReportID)
		assert.Equal(t, report.ID, *notes[0].ReportID)
	}
}

func TestReportMessage_SelfReportRejected(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	room := f.directRoom(t, alice, bob)
	msg := f.text(t, room, alice, "my own words")

	_, err := f.reports.ReportMessage(testCtx(), ReportMessageInput{
		ReporterID: alice.ID,
		RoomID:     room.ID,
		MessageID:  msg.ID,
		Reason:     "testing",
	})
	assert.Equal(t, models.CodeValidation, errCode(t, err))
}

func TestReportMessage_DuplicateConflicts(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	room := f.directRoom(t, alice, bob)
	msg := f.text(t, room, bob, "rude remark")

	in := ReportMessageInput{
		ReporterID: alice.ID,
		RoomID:     room.ID,
		MessageID:  msg.ID,
		Reason:     "harassment",
	}
	_, err := f.reports.ReportMessage(testCtx(), in)
	require.NoError(t, err)

	_, err = f.reports.ReportMessage(testCtx(), in)
	assert.Equal(t, models.CodeConflict, errCode(t, err))
}

func TestReportMessage_WrongRoomRejected(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	carol := f.user(t, "carol", "bhs")
	dm := f.directRoom(t, alice, bob)
	other := f.groupRoom(t, alice, bob.ID, carol.ID)
	msg := f.text(t, dm, bob, "in the dm")

	_, err := f.reports.ReportMessage(testCtx(), ReportMessageInput{
		ReporterID: alice.ID,
		RoomID:     other.ID,
		MessageID:  msg.ID,
		Reason:     "wrong room",
	})
	assert.Equal(t, models.CodeValidation, errCode(t, err))
}

func TestNotifications_MarkRead(t *testing.T) {
	f := newFixture(t)
	principal := f.admin(t, "principal")
	alice := f.user(t, "alice", "bhs")
	bob := f.user(t, "bob", "bhs")
	room := f.directRoom(t, alice, bob)
	msg := f.text(t, room, bob, "rude remark")

	_, err := f.reports.ReportMessage(testCtx(), ReportMessageInput{
		ReporterID: alice.ID,
		RoomID:     room.ID,
		MessageID:  msg.ID,
		Reason:     "harassment",
	})
	require.NoError(t, err)

	notes, err := f.reports.ListNotifications(testCtx(), principal.ID, true)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	require.NoError(t, f.reports.MarkNotificationRead(testCtx(), principal.ID, notes[0].ID))
	unread, err := f.reports.ListNotifications(testCtx(), principal.ID, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
