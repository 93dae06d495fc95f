package service

import (
	"context"
	"testing"

	"homeroom/internal/database"
	"homeroom/internal/models"
	"homeroom/internal/notifications"
	"homeroom/internal/objectstore"
	"homeroom/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixture wires every service against one in-memory database.
type fixture struct {
	db         *gorm.DB
	users      repository.UserRepository
	rooms      *RoomService
	messages   *MessageService
	polls      *PollService
	unread     *UnreadService
	reports    *ReportService
	social     *SocialService
	accounts   *UserService
	moderation *ModerationService
	blobs      *objectstore.Memory
}

func newFixture(t *testing.T) *fixture {
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

	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	pollRepo := repository.NewPollRepository(db)
	reportRepo := repository.NewReportRepository(db)
	socialRepo := repository.NewSocialRepository(db)

	moderation := NewModerationService(userRepo, socialRepo)
	publisher := notifications.NopPublisher{}
	blobs := objectstore.NewMemory()

	return &fixture{
		db:         db,
		users:      userRepo,
		rooms:      NewRoomService(roomRepo, messageRepo, moderation, publisher),
		messages:   NewMessageService(messageRepo, roomRepo, moderation, publisher, blobs),
		polls:      NewPollService(pollRepo, messageRepo, roomRepo, moderation, publisher),
		unread:     NewUnreadService(roomRepo, messageRepo),
		reports:    NewReportService(reportRepo, messageRepo, roomRepo, userRepo, publisher),
		social:     NewSocialService(socialRepo, userRepo),
		accounts:   NewUserService(userRepo),
		moderation: moderation,
		blobs:      blobs,
	}
}

func (f *fixture) user(t *testing.T, username, school string) *models.User {
	t.Helper()
	user := &models.User{
		Username:   username,
		Email:      username + "@school.test",
		Password:   "hashed-password",
		SchoolCode: school,
		Role:       models.RoleStudent,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) admin(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:   username,
		Email:      username + "@school.test",
		Password:   "hashed-password",
		SchoolCode: "bhs",
		Role:       models.RoleAdmin,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) directRoom(t *testing.T, a, b *models.User) *models.ChatRoom {
	t.Helper()
	room, _, err := f.rooms.CreateRoom(context.Background(), CreateRoomInput{
		CreatorID: a.ID,
		MemberIDs: []uint{b.ID},
	})
	require.NoError(t, err)
	return room
}

func (f *fixture) groupRoom(t *testing.T, creator *models.User, memberIDs ...uint) *models.ChatRoom {
	t.Helper()
	room, _, err := f.rooms.CreateRoom(context.Background(), CreateRoomInput{
		CreatorID: creator.ID,
		Name:      "study group",
		IsGroup:   true,
		MemberIDs: memberIDs,
	})
	require.NoError(t, err)
	return room
}

func (f *fixture) text(t *testing.T, room *models.ChatRoom, sender *models.User, content string) *models.ChatMessage {
	t.Helper()
	msg, err := f.messages.Send(context.Background(), SendMessageInput{
		SenderID: sender.ID,
		RoomID:   room.ID,
		Type:     models.MessageTypeText,
		Content:  content,
	})
	require.NoError(t, err)
	return msg
}

func testCtx() context.Context {
	return context.Background()
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	return appErr.Code
}
