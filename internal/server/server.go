// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "chirp/docs" // swagger docs
	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/ratelimit"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-initialized collaborators of a Server. The bootstrap
// layer builds them; tests pass fakes.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client

	Posts    PostAPI
	Feed     FeedAPI
	Profiles ProfileAPI

	// ProfileLimiter guards the email lookup against enumeration.
	ProfileLimiter ratelimit.Limiter
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	posts          PostAPI
	feed           FeedAPI
	profiles       ProfileAPI
	profileLimiter ratelimit.Limiter
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config, deps Deps) *Server {
	limiter := deps.ProfileLimiter
	if limiter == nil {
		limiter = ratelimit.Disabled{}
	}
	middleware.InitMiddleware(cfg)
	return &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("chirp-api"),
		posts:          deps.Posts,
		feed:           deps.Feed,
		profiles:       deps.Profiles,
		profileLimiter: limiter,
	}
}

// App builds the fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Chirp API",
		BodyLimit:    64 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler renders errors that escape handlers, including fiber's own
// routing errors, in the standard error shape.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return models.RespondWithError(c, &models.AppError{Code: models.CodeNotFound, Message: "Route not found"})
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
			return models.RespondWithError(c, models.NewValidationError(fe.Message))
		case fiber.StatusMethodNotAllowed:
			return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
		}
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Retry-After, X-Trace-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", middleware.AuthRequired, s.CreatePost)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	posts.Get("/:id/likes", s.GetPostLikers)
	posts.Post("/:id/like", middleware.AuthRequired, s.ToggleLike)
	posts.Get("/:id", s.GetPost)

	api.Get("/users/:id/posts", s.GetUserPosts)

	profile := api.Group("/profile")
	profile.Get("/users", s.GetUsersByID)
	profile.Get("/", middleware.RateLimit(s.profileLimiter), s.GetProfileByEmail)
}

// LivenessCheck reports that the process is serving
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the datastore and Redis are reachable
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	switch {
	case s.redis != nil:
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	case s.config.RateLimitEnabled:
		// the post rate limiter cannot work without Redis
		redisStatus = "unavailable"
	default:
		redisStatus = "disabled"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" || redisStatus == "unavailable" {
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
	app := s.App()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and waits for in-flight ones. Closing
// the datastore and Redis is left to the owner of those clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app == nil {
		return nil
	}
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		return err
	}
	return nil
}
