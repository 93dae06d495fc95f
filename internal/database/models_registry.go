package database

import "homeroom/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.ChatRoom{},
		&models.RoomMember{},
		&models.ChatMessage{},
		&models.MessageHide{},
		&models.MessagePoll{},
		&models.PollVote{},
		&models.UserBlock{},
		&models.Friend{},
		&models.ChatReport{},
		&models.Notification{},
	}
}
