package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"homeroom/internal/config"
	"homeroom/internal/database"
	"homeroom/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires a Server over in-memory sqlite with a fiber app whose auth
// is replaced by a header-driven stub: X-Test-User selects the acting user.
type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
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

	cfg := &config.Config{
		JWTSecret: "test-secret-key-for-handler-tests",
		Port:      "0",
	}
	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if header := c.Get("X-Test-User"); header != "" {
			id, convErr := strconv.ParseUint(header, 10, 32)
			if convErr == nil {
				c.Locals("userID", uint(id))
				return c.Next()
			}
		}
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Authorization required"))
	})

	registerTestRoutes(app, s)

	return &testEnv{server: s, app: app, db: db}
}

// registerTestRoutes mounts the API surface without the real middleware
// chain; the stub above already resolved the acting user.
func registerTestRoutes(app *fiber.App, s *Server) {
	api := app.Group("/api")

	rooms := api.Group("/chat/rooms")
	rooms.Post("/", s.CreateRoom)
	rooms.Get("/", s.GetRooms)
	rooms.Post("/:id/invite", s.InviteMembers)
	rooms.Post("/:id/leave", s.LeaveRoom)
	rooms.Post("/:id/read", s.MarkRoomRead)
	rooms.Get("/:id/messages", s.GetRoomMessages)
	rooms.Patch("/:id/name", s.RenameRoom)
	rooms.Delete("/:id", s.DeleteRoom)
	rooms.Get("/:id", s.GetRoom)

	chat := api.Group("/chat")
	chat.Post("/messages", s.SendMessage)
	chat.Post("/messages/bulk", s.SendBulkImages)
	chat.Delete("/messages/:id", s.DeleteMessage)
	chat.Post("/notice", s.SendNotice)
	chat.Delete("/notice/:id", s.DeleteNotice)
	chat.Get("/unread-count", s.GetUnreadCount)
	chat.Get("/unread-summary", s.GetUnreadSummary)

	polls := chat.Group("/poll")
	polls.Post("/create", s.CreatePoll)
	polls.Post("/vote", s.VotePoll)
	polls.Post("/unvote", s.UnvotePoll)
	polls.Post("/close", s.ClosePoll)
	polls.Get("/:messageId", s.GetPollResults)

	chat.Post("/report", s.ReportMessage)

	friends := api.Group("/friends")
	friends.Get("/", s.GetFriends)
	friends.Post("/blocks", s.ToggleBlock)
	friends.Get("/blocks", s.GetBlocks)
	friends.Post("/:userId", s.AddFriend)
	friends.Delete("/:userId", s.RemoveFriend)

	notes := api.Group("/notifications")
	notes.Get("/", s.GetNotifications)
	notes.Post("/:id/read", s.MarkNotificationRead)

	admin := api.Group("/admin", s.AdminRequired())
	admin.Post("/users/:id/ban", s.BanUser)
	admin.Post("/users/:id/unban", s.UnbanUser)
	admin.Get("/reports", s.GetReports)
}

func (e *testEnv) user(t *testing.T, username, school string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Username:   username,
		Email:      username + "@school.test",
		Password:   "hashed-password",
		SchoolCode: school,
		Role:       role,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

// request performs an app.Test round trip as the given user and decodes the
// JSON response into out (when non-nil).
func (e *testEnv) request(t *testing.T, method, target string, asUser uint, body any, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if asUser != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(asUser), 10))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func errCodeFromBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Code
}
