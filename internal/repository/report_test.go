package repository

import (
	"errors"
	"testing"

	"homeroom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReport_DuplicateConflicts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReportRepository(db)
	msgs := NewMessageRepository(db)
	alice := createTestUser(t, db, "alice", "bhs")
	bob := createTestUser(t, db, "bob", "bhs")
	room := createTestRoom(t, db, alice, bob.ID)
	msg := sendText(t, msgs, room.ID, bob.ID, "rude")

	report := &models.ChatReport{
		RoomID:         room.ID,
		MessageID:      msg.ID,
		ReporterID:     alice.ID,
		ReportedUserID: bob.ID,
		Reason:         "harassment",
	}
	require.NoError(t, repo.Create(testCtx(), report))

	dup := &models.ChatReport{
		RoomID:         room.ID,
		MessageID:      msg.ID,
		ReporterID:     alice.ID,
		ReportedUserID: bob.ID,
		Reason:         "still rude",
	}
	err := repo.Create(testCtx(), dup)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeConflict, appErr.Code)
}

func TestCreateReport_DifferentReportersAllowed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReportRepository(db)
	msgs := NewMessageRepository(db)
	alice := createTestUser(t, db, "alice", "bhs")
	bob := createTestUser(t, db, "bob", "bhs")
	carol := createTestUser(t, db, "carol", "bhs")
	room := createTestRoom(t, db, alice, bob.ID, carol.ID)
	msg := sendText(t, msgs, room.ID, bob.ID, "rude")

	for _, reporter := range []uint{alice.ID, carol.ID} {
		require.NoError(t, repo.Create(testCtx(), &models.ChatReport{
			RoomID:         room.ID,
			MessageID:      msg.ID,
			ReporterID:     reporter,
			ReportedUserID: bob.ID,
			Reason:         "harassment",
		}))
	}

	reports, err := repo.ListAll(testCtx(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestNotifications_UnreadFilterAndMarkRead(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReportRepository(db)
	admin := createTestUser(t, db, "principal", "bhs")

	require.NoError(t, repo.CreateNotifications(testCtx(), []models.Notification{
		{UserID: admin.ID, Kind: "chat_report", Body: "new report"},
		{UserID: admin.ID, Kind: "chat_report", Body: "another report"},
	}))

	notes, err := repo.ListNotifications(testCtx(), admin.ID, true)
	require.NoError(t, err)
	require.Len(t, notes, 2)

	require.NoError(t, repo.MarkNotificationRead(testCtx(), admin.ID, notes[0].ID))

	unread, err := repo.ListNotifications(testCtx(), admin.ID, true)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	all, err := repo.ListNotifications(testCtx(), admin.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
