// Package server contains the HTTP surface: the fiber app, middleware
// wiring, routes, and handlers.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"picpal/internal/auth"
	"picpal/internal/cache"
	"picpal/internal/config"
	"picpal/internal/database"
	"picpal/internal/media"
	"picpal/internal/middleware"
	"picpal/internal/models"
	"picpal/internal/repository"
	"picpal/internal/service"
	"picpal/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config   *config.Config
	db       *gorm.DB
	redis    *redis.Client
	sessions *session.Store
	store    media.Store
	google   *auth.GoogleVerifier

	users  *service.UserService
	posts  *service.PostService
	groups *service.GroupService

	app *fiber.App
}

// NewServer creates a server instance with all production dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	store, err := media.NewStoreFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("media store init failed: %w", err)
	}

	return newServer(cfg, db, redisClient, store), nil
}

// newServer assembles the server from explicit dependencies. Tests use it
// with an in-memory database and store.
func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store media.Store) *Server {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	groupRepo := repository.NewGroupRepository(db)

	transformer := media.NewTransformer(cfg.MediaMaxUploadMB)
	sessions := session.NewStore(cfg.JWTSecret, time.Duration(cfg.SessionTTLDays)*24*time.Hour, redisClient)

	return &Server{
		config:   cfg,
		db:       db,
		redis:    redisClient,
		sessions: sessions,
		store:    store,
		google:   auth.NewGoogleVerifier(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		users:    service.NewUserService(userRepo, postRepo, transformer, store),
		posts:    service.NewPostService(postRepo, commentRepo, userRepo, transformer, store),
		groups:   service.NewGroupService(groupRepo),
	}
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Request ID for tracing
	app.Use(requestid.New())

	// Security headers
	app.Use(helmet.New())

	// Structured logging
	app.Use(middleware.StructuredLogger())

	// Prometheus HTTP metrics
	prom := fiberprometheus.New("picpal")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/healthz", s.HealthCheck)

	// Auth
	app.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	app.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	app.Post("/logout", s.Logout)
	app.Get("/auth/google", s.GoogleRedirect)
	app.Get("/auth/google/callback", s.GoogleCallback)

	// Public content; the viewer is resolved when a token is present so
	// per-user liked flags come back annotated.
	app.Get("/images", middleware.OptionalUser(s.sessions), s.GetImages)
	app.Get("/comments/:id", s.GetComments)
	app.Get("/user/:username", middleware.OptionalUser(s.sessions), s.GetUserProfile)
	app.Get("/users/search", s.SearchUsers)

	// Serve filesystem-stored media directly.
	if fsStore, ok := s.store.(*media.FilesystemStore); ok {
		app.Static(s.config.MediaBaseURL, fsStore.Root())
	}

	// Protected routes
	protected := app.Group("", middleware.AuthRequired(s.sessions))
	protected.Post("/upload", middleware.RateLimit(s.redis, 5, 5*time.Minute, "upload"), s.Upload)
	protected.Get("/my-images", s.GetMyImages)
	protected.Post("/like/:id", s.LikePost)
	protected.Delete("/like/:id", s.UnlikePost)
	protected.Post("/comment/:id", middleware.RateLimit(s.redis, 10, time.Minute, "comment"), s.CreateComment)
	protected.Delete("/delete/:id", s.DeletePost)
	protected.Delete("/delete-account", s.DeleteAccount)
	protected.Post("/user/:username/follow", s.FollowUser)
	protected.Delete("/user/:username/follow", s.UnfollowUser)
	protected.Post("/update-profile-picture", s.UpdateProfilePicture)
	protected.Put("/update-account", s.UpdateAccount)
	protected.Post("/update-bio", s.UpdateBio)

	groups := protected.Group("/api/groups")
	groups.Post("/create", s.CreateGroup)
	groups.Post("/join", s.JoinGroup)
	groups.Get("/", s.GetGroups)
	groups.Get("/:id", s.GetGroup)
	groups.Delete("/:id/leave", s.LeaveGroup)
}

// HealthCheck handles health check requests.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
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
	overall := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "PicPal",
		"status":  overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// currentUserID returns the authenticated account ID placed by AuthRequired,
// or zero when the request is anonymous.
func currentUserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}

// newApp builds the fiber app with middleware and routes attached.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "PicPal API",
		BodyLimit: (s.config.MediaMaxUploadMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fiberErr, ok := err.(*fiber.Error); ok {
				return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
			}
			middleware.Logger.Error("unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server.
func (s *Server) Start() error {
	app := s.newApp()
	s.app = app
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down http server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
