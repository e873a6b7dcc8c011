package bootstrap

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	httpin "classifier_server/adapter/in/http"
	"classifier_server/config"
	"classifier_server/infra/middleware"
	"classifier_server/pkg/logger"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "classifier-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		Prefork:               false,
		StrictRouting:         false,
		CaseSensitive:         false,

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,

		// go-json is 2~3x faster than encoding/json on these payloads
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		// Emails can carry large HTML bodies
		BodyLimit: 10 * 1024 * 1024,

		Concurrency: 256 * 1024,

		ServerHeader:       "",
		DisableDefaultDate: true,
		DisableKeepalive:   false,

		StreamRequestBody:            true,
		DisablePreParseMultipartForm: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// AllowCredentials:true requires explicit origins (not "*")
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: allowCredentials,
	}))

	// Health endpoints
	healthHandler := httpin.NewHealthHandler(deps.Postgres, deps.Redis, deps.Mongo)
	healthHandler.Register(app)

	// API routes
	api := app.Group("/api/v1")

	classifyHandler := httpin.NewClassifyHandler(deps.Pipeline, deps.Producer, deps.ResultStore)
	classifyHandler.Register(api)

	// Admin routes behind service auth
	admin := api.Group("/admin", middleware.ServiceAuth(cfg.JWTSecret))
	adminHandler := httpin.NewAdminHandler(deps.VectorIndex, deps.AuditStore)
	adminHandler.Register(admin)

	return app, cleanup, nil
}
