// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"homeroom/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:   gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:      gofakeit.Email(),
		SchoolCode: schoolCodes[f.rng.Intn(len(schoolCodes))],
		Role:       models.RoleStudent,
	}

	// Bcrypt dominates large seed runs; dev fast mode skips it.
	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateDirectRoom persists a 1:1 room between two users, including its
// pair key and both membership rows. Existing pairs are returned as-is.
func (f *Factory) CreateDirectRoom(a, b *models.User) (*models.ChatRoom, error) {
	pairKey := models.DirectPairKey(a.ID, b.ID)

	var existing models.ChatRoom
	err := f.db.Where("pair_key = ?", pairKey).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	room := &models.ChatRoom{
		Name:      fmt.Sprintf("%s & %s", a.Username, b.Username),
		CreatorID: a.ID,
		PairKey:   &pairKey,
		Members: []models.RoomMember{
			{UserID: a.ID},
			{UserID: b.ID},
		},
	}
	if err := f.db.Create(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

// CreateGroupRoom persists a named group room with the given members; the
// first member is the creator.
func (f *Factory) CreateGroupRoom(name string, members ...*models.User) (*models.ChatRoom, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("group room needs at least one member")
	}

	room := &models.ChatRoom{
		Name:      name,
		IsGroup:   true,
		CreatorID: members[0].ID,
	}
	for _, m := range members {
		room.Members = append(room.Members, models.RoomMember{UserID: m.ID})
	}
	if err := f.db.Create(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

// CreateMessage persists a text message from sender into room with a
// realistic created_at spread over the last maxDays.
func (f *Factory) CreateMessage(room *models.ChatRoom, sender *models.User, overrides ...func(*models.ChatMessage)) (*models.ChatMessage, error) {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	age := time.Duration(f.rng.Intn(maxDays*24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute

	message := &models.ChatMessage{
		RoomID:    room.ID,
		SenderID:  sender.ID,
		Type:      models.MessageTypeText,
		Content:   gofakeit.Sentence(f.rng.Intn(12) + 3),
		CreatedAt: time.Now().Add(-age),
	}

	for _, override := range overrides {
		override(message)
	}

	if err := f.db.Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// CreatePollMessage persists a poll-type message with generated options and
// a sprinkling of votes from the given voters.
func (f *Factory) CreatePollMessage(room *models.ChatRoom, sender *models.User, voters []*models.User) (*models.ChatMessage, error) {
	optionCount := f.rng.Intn(3) + 2
	options := make(models.PollOptions, 0, optionCount)
	for i := 0; i < optionCount; i++ {
		options = append(options, models.PollOption{
			OptionID: uuid.NewString(),
			Text:     gofakeit.Word() + " " + gofakeit.Word(),
		})
	}

	message := &models.ChatMessage{
		RoomID:   room.ID,
		SenderID: sender.ID,
		Type:     models.MessageTypePoll,
		Content:  gofakeit.Question(),
		Poll: &models.MessagePoll{
			Title:     gofakeit.Question(),
			Anonymous: f.rng.Intn(4) == 0,
			Options:   options,
		},
	}
	if err := f.db.Create(message).Error; err != nil {
		return nil, err
	}

	for _, voter := range voters {
		if voter.ID == sender.ID && f.rng.Intn(2) == 0 {
			continue
		}
		vote := &models.PollVote{
			MessageID: message.ID,
			UserID:    voter.ID,
			OptionID:  options[f.rng.Intn(len(options))].OptionID,
		}
		if err := f.db.Create(vote).Error; err != nil {
			return nil, err
		}
	}
	return message, nil
}

// CreateFriendship persists the two directed friend edges between a and b.
func (f *Factory) CreateFriendship(a, b *models.User) error {
	edges := []models.Friend{
		{UserID: a.ID, FriendID: b.ID},
		{UserID: b.ID, FriendID: a.ID},
	}
	return f.db.Create(&edges).Error
}
