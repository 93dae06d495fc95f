// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"homeroom/internal/cache"
	"homeroom/internal/config"
	"homeroom/internal/database"
	"homeroom/internal/middleware"
	"homeroom/internal/models"
	"homeroom/internal/notifications"
	"homeroom/internal/objectstore"
	"homeroom/internal/repository"
	"homeroom/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo   repository.UserRepository
	roomRepo   repository.RoomRepository
	notifier   *notifications.Notifier
	hub        *notifications.RoomHub
	blobs      objectstore.Store
	moderation *service.ModerationService
	users      *service.UserService
	rooms      *service.RoomService
	messages   *service.MessageService
	polls      *service.PollService
	unread     *service.UnreadService
	reports    *service.ReportService
	social     *service.SocialService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	var blobs objectstore.Store
	if cfg.BlobBucket != "" {
		s3Store, s3Err := objectstore.NewS3Store(context.Background(), cfg.BlobRegion, cfg.BlobBucket, cfg.BlobEndpoint)
		if s3Err != nil {
			return nil, fmt.Errorf("blob store init failed: %w", s3Err)
		}
		blobs = s3Store
	} else {
		slog.Warn("BLOB_BUCKET not set, using in-memory blob store")
		blobs = objectstore.NewMemory()
	}

	return newServer(cfg, db, redisClient, blobs), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	return newServer(cfg, db, redisClient, objectstore.NewMemory()), nil
}

func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, blobs objectstore.Store) *Server {
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	pollRepo := repository.NewPollRepository(db)
	reportRepo := repository.NewReportRepository(db)
	socialRepo := repository.NewSocialRepository(db)

	prom := middleware.InitMetrics("homeroom-api")

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		userRepo:       userRepo,
		roomRepo:       roomRepo,
		blobs:          blobs,
	}

	var publisher notifications.Publisher = notifications.NopPublisher{}
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewRoomHub()
		publisher = s.notifier
	}

	s.moderation = service.NewModerationService(userRepo, socialRepo)
	s.users = service.NewUserService(userRepo)
	s.rooms = service.NewRoomService(roomRepo, messageRepo, s.moderation, publisher)
	s.messages = service.NewMessageService(messageRepo, roomRepo, s.moderation, publisher, blobs)
	s.polls = service.NewPollService(pollRepo, messageRepo, roomRepo, s.moderation, publisher)
	s.unread = service.NewUnreadService(roomRepo, messageRepo)
	s.reports = service.NewReportService(reportRepo, messageRepo, roomRepo, userRepo, publisher)
	s.social = service.NewSocialService(socialRepo, userRepo)

	return s
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Homeroom Backend Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", s.Refresh)
	auth.Post("/logout", s.Logout)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// Room lifecycle and membership
	rooms := protected.Group("/chat/rooms")
	rooms.Post("/", s.CreateRoom)
	rooms.Get("/", s.GetRooms)
	// Specific /:id/:resource routes BEFORE generic /:id routes
	rooms.Post("/:id/invite", s.InviteMembers)
	rooms.Post("/:id/leave", s.LeaveRoom)
	rooms.Post("/:id/read", s.MarkRoomRead)
	rooms.Get("/:id/messages", s.GetRoomMessages)
	rooms.Patch("/:id/name", s.RenameRoom)
	rooms.Delete("/:id", s.DeleteRoom)
	rooms.Get("/:id", s.GetRoom)

	// Messages
	chat := protected.Group("/chat")
	chat.Post("/messages", middleware.RateLimit(
		s.redis, 15, time.Minute, "send_chat"), s.SendMessage)
	chat.Post("/messages/bulk", s.SendBulkImages)
	chat.Delete("/messages/:id", s.DeleteMessage)
	chat.Post("/notice", s.SendNotice)
	chat.Delete("/notice/:id", s.DeleteNotice)
	chat.Get("/unread-count", s.GetUnreadCount)
	chat.Get("/unread-summary", s.GetUnreadSummary)

	// Polls
	polls := chat.Group("/poll")
	polls.Post("/create", s.CreatePoll)
	polls.Post("/vote", s.VotePoll)
	polls.Post("/unvote", s.UnvotePoll)
	polls.Post("/close", s.ClosePoll)
	polls.Get("/:messageId", s.GetPollResults)

	// Reports
	chat.Post("/report", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "report"), s.ReportMessage)

	// Friends and blocks
	friends := protected.Group("/friends")
	friends.Get("/", s.GetFriends)
	friends.Post("/blocks", s.ToggleBlock)
	friends.Get("/blocks", s.GetBlocks)
	friends.Post("/:userId", s.AddFriend)
	friends.Delete("/:userId", s.RemoveFriend)

	// Notifications (report fan-out consumers)
	notes := protected.Group("/notifications")
	notes.Get("/", s.GetNotifications)
	notes.Post("/:id/read", s.MarkNotificationRead)

	// Websocket endpoint - protected by AuthRequired
	ws := api.Group("/ws", s.AuthRequired())
	ws.Get("/chat", s.WebSocketChatHandler())

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Post("/users/:id/ban", s.BanUser)
	admin.Post("/users/:id/unban", s.UnbanUser)
	admin.Get("/reports", s.GetReports)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Homeroom API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("unhandled error", "error", err, "path", c.Path())
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start chat hub wiring: %v", err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down chat hub: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
