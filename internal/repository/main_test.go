package repository

import (
	"context"
	"testing"

	"homeroom/internal/database"
	"homeroom/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_fk=1"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username, school string) *models.User {
	t.Helper()
	user := &models.User{
		Username:   username,
		Email:      username + "@school.test",
		Password:   "hashed-password",
		SchoolCode: school,
		Role:       models.RoleStudent,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestRoom(t *testing.T, db *gorm.DB, creator *models.User, memberIDs ...uint) *models.ChatRoom {
	t.Helper()
	room := &models.ChatRoom{Name: "test room", IsGroup: true, CreatorID: creator.ID}
	require.NoError(t, db.Create(room).Error)
	ids := append([]uint{creator.ID}, memberIDs...)
	for _, id := range ids {
		require.NoError(t, db.Create(&models.RoomMember{RoomID: room.ID, UserID: id}).Error)
	}
	return room
}

func testCtx() context.Context {
	return context.Background()
}
