package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/database"
)

type Dependencies struct {
	Monitor    handler.MonitorRunner
	Analyzer   handler.Analyzer
	DB         database.Pinger
	CronSecret string
	APISecret  string
	// AnalyzeRateLimit caps analyses per account per minute; 0 uses the default.
	AnalyzeRateLimit int
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "AdPilot API",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var db database.Pinger
	if r.deps != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	if r.deps.Monitor != nil {
		cronHandler := handler.NewCronHandler(r.deps.Monitor, r.logger)
		r.app.Get("/api/cron/budget-monitor", middleware.BearerSecret(r.deps.CronSecret), cronHandler.BudgetMonitor)
	}

	if r.deps.Analyzer != nil {
		v1 := r.app.Group("/v1", middleware.BearerSecret(r.deps.APISecret))

		r.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{Max: r.deps.AnalyzeRateLimit})
		analysisHandler := handler.NewAnalysisHandler(r.deps.Analyzer, r.logger)

		v1.Post("/accounts/:account_id/campaigns/:campaign_id/analyze", r.rateLimiter.Handler(), analysisHandler.Analyze)
		v1.Get("/insights", analysisHandler.ListInsights)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
