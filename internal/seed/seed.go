// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"

	"homeroom/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumMessages int
	MaxDays     int
	SkipBcrypt  bool
	ShouldClean bool
}

// schoolCodes is the pool of school affiliations assigned to seeded users.
// Keeping it small guarantees plenty of same-school pairs to chat.
var schoolCodes = []string{
	"north-high", "south-high", "river-middle", "lakeside-high",
}

var groupRoomNames = []string{
	"Homework Help", "Chess Club", "Soccer Team", "Science Fair",
	"Band Practice", "Yearbook", "Debate Club", "Study Hall",
	"Art Room", "Robotics",
}

// Seeder orchestrates demo-data creation.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder creates a Seeder with the given options.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts), opts: opts}
}

// ClearAll removes all seeded chat data. Order matters for foreign keys.
func (s *Seeder) ClearAll() error {
	tables := []any{
		&models.PollVote{}, &models.MessagePoll{}, &models.MessageHide{},
		&models.ChatReport{}, &models.Notification{}, &models.ChatMessage{},
		&models.RoomMember{}, &models.ChatRoom{},
		&models.Friend{}, &models.UserBlock{}, &models.User{},
	}
	for _, table := range tables {
		if err := s.db.Unscoped().Where("1 = 1").Delete(table).Error; err != nil {
			return fmt.Errorf("clearing %T: %w", table, err)
		}
	}
	return nil
}

// Run populates the database: one known admin, a mesh of students, direct
// and group rooms, message history, polls and friend edges.
func (s *Seeder) Run() error {
	if s.opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}

	admin, err := s.createAdmin()
	if err != nil {
		return err
	}
	log.Printf("seeded admin: %s", admin.Email)

	users, err := s.createUsers()
	if err != nil {
		return err
	}
	log.Printf("seeded %d users", len(users))

	rooms, err := s.createRooms(users)
	if err != nil {
		return err
	}
	log.Printf("seeded %d rooms", len(rooms))

	if err := s.createMessages(rooms, users); err != nil {
		return err
	}
	if err := s.createFriendships(users); err != nil {
		return err
	}

	return nil
}

// createAdmin persists the well-known local admin account.
func (s *Seeder) createAdmin() (*models.User, error) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	admin := &models.User{
		Username:   "admin",
		Email:      "admin@homeroom.local",
		Password:   string(hashed),
		SchoolCode: schoolCodes[0],
		Role:       models.RoleAdmin,
	}
	if err := s.db.Where("email = ?", admin.Email).FirstOrCreate(admin).Error; err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *Seeder) createUsers() ([]*models.User, error) {
	count := s.opts.NumUsers
	if count <= 0 {
		count = 50
	}
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// createRooms builds 1:1 rooms between same-school neighbors plus a handful
// of group rooms with mixed membership sizes.
func (s *Seeder) createRooms(users []*models.User) ([]*models.ChatRoom, error) {
	var rooms []*models.ChatRoom

	bySchool := make(map[string][]*models.User)
	for _, u := range users {
		bySchool[u.SchoolCode] = append(bySchool[u.SchoolCode], u)
	}
	for _, classmates := range bySchool {
		for i := 0; i+1 < len(classmates); i += 2 {
			room, err := s.factory.CreateDirectRoom(classmates[i], classmates[i+1])
			if err != nil {
				return nil, err
			}
			rooms = append(rooms, room)
		}
	}

	rng := s.factory.rng
	for i, name := range groupRoomNames {
		if len(users) < 4 {
			break
		}
		size := rng.Intn(5) + 3
		if size > len(users) {
			size = len(users)
		}
		start := (i * 7) % (len(users) - size + 1)
		room, err := s.factory.CreateGroupRoom(name, users[start:start+size]...)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, nil
}

func (s *Seeder) createMessages(rooms []*models.ChatRoom, users []*models.User) error {
	if len(rooms) == 0 {
		return nil
	}
	count := s.opts.NumMessages
	if count <= 0 {
		count = 500
	}

	rng := s.factory.rng
	for i := 0; i < count; i++ {
		room := rooms[rng.Intn(len(rooms))]
		// Rooms reused from a previous run come back without members loaded.
		if len(room.Members) == 0 {
			if err := s.db.Where("room_id = ?", room.ID).Find(&room.Members).Error; err != nil {
				return err
			}
			if len(room.Members) == 0 {
				continue
			}
		}
		sender := room.Members[rng.Intn(len(room.Members))]
		var user models.User
		if err := s.db.First(&user, sender.UserID).Error; err != nil {
			return err
		}
		if _, err := s.factory.CreateMessage(room, &user); err != nil {
			return err
		}
	}

	// One poll per group room, voted on by its members.
	for _, room := range rooms {
		if !room.IsGroup || len(room.Members) < 2 {
			continue
		}
		var members []*models.User
		for _, m := range room.Members {
			var u models.User
			if err := s.db.First(&u, m.UserID).Error; err != nil {
				return err
			}
			members = append(members, &u)
		}
		if _, err := s.factory.CreatePollMessage(room, members[0], members[1:]); err != nil {
			return err
		}
	}

	return nil
}

func (s *Seeder) createFriendships(users []*models.User) error {
	for i := 0; i+1 < len(users); i += 3 {
		if err := s.factory.CreateFriendship(users[i], users[i+1]); err != nil {
			return err
		}
	}
	return nil
}
