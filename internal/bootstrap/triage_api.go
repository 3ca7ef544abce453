package bootstrap

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"triage_server/adapter/in/http"
	"triage_server/config"
	"triage_server/infra/middleware"
	"triage_server/pkg/logger"
)

// NewAPI initializes logging and dependencies and returns the HTTP app.
func NewAPI(ctx context.Context, cfg *config.Config) (*fiber.App, func(), error) {
	initLogger(cfg, "triage-api")

	deps, cleanup, err := NewDependencies(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := NewApp(cfg, deps)
	logger.Info("API server initialized (history=%s)", deps.HistoryRepo.Name())

	return app, cleanup, nil
}

// NewApp builds the fiber app with the middleware stack and routes.
func NewApp(cfg *config.Config, deps *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		StrictRouting:         false,
		CaseSensitive:         false,

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit:          cfg.BodyLimitBytes,
		DisableDefaultDate: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityHeaders())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  "GET,POST,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders: "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset",
		MaxAge:        86400,
	}))

	healthHandler := http.NewHealthHandler(deps.ReadinessChecks...)
	healthHandler.SetInfo(func() map[string]any {
		info := map[string]any{"history_backend": deps.HistoryRepo.Name()}
		if deps.Reasoner != nil {
			info["llm_breaker"] = deps.Reasoner.Breaker().Stats()
		}
		return info
	})
	healthHandler.Register(app)

	api := app.Group("/api/v1")
	api.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow).Handler())

	http.NewTriageHandler(deps.TriageService, deps.HistoryService).Register(api)

	return app
}

func initLogger(cfg *config.Config, service string) {
	level := logger.LevelInfo
	if cfg.IsDevelopment() {
		level = logger.LevelDebug
	}
	if cfg.LogLevel != "" {
		level = logger.ParseLevel(cfg.LogLevel)
	}
	logger.Init(logger.Config{
		Level:   level,
		Service: service,
		Console: cfg.IsDevelopment(),
	})
}
