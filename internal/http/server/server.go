// Package server assembles the Fiber application: middleware, the
// conversion pipeline and its routes.
package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/config"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/http/handlers"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/http/middleware"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/cache"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/gotenberg"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/logging"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/tokens"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/pipeline"
)

// Deps are the optional collaborators of the app. Tokens enables API key
// auth; Redis enables the PDF cache; MemorySample overrides the admission
// guard's sampler (tests).
type Deps struct {
	Config       config.Config
	Tokens       *tokens.Store
	Redis        *redis.Client
	MemorySample func() uint64
}

// multipart framing overhead allowed on top of the configured upload limit;
// the validator's byte-level check stays authoritative.
const bodyOverhead = 1 << 20

// New creates and configures the Fiber app.
func New(deps Deps) *fiber.App {
	cfg := deps.Config

	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.Server.MaxUploadBytes + bodyOverhead,
		ReadTimeout:           time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal server error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": msg,
			})
		},
	})

	middleware.Register(app, cfg, deps.Tokens)
	registerRoutes(app, deps)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

func registerRoutes(app *fiber.App, deps Deps) {
	cfg := deps.Config

	guard := pipeline.NewGuard(cfg.Convert.MemoryCeilingMB, deps.MemorySample)
	limiter := pipeline.NewLimiter(cfg.Convert.Concurrency)
	renderer := gotenberg.NewClient(
		cfg.Gotenberg.URL,
		time.Duration(cfg.Gotenberg.TimeoutSecs)*time.Second,
		cfg.Gotenberg.HealthPath,
	)
	pipe := pipeline.New(guard, limiter, renderer, cfg.Server.MaxUploadBytes)

	var pdfCache *cache.PDFCache
	if cfg.Cache.Enabled && deps.Redis != nil {
		pdfCache = cache.New(deps.Redis, cfg.Cache.TTL)
	}

	convertSvc := handlers.NewConvertService(cfg, pipe, pdfCache)
	healthSvc := handlers.NewHealthService(renderer, guard)

	app.Post("/convert", convertSvc.HandleConvert)
	app.Get("/health", healthSvc.HandleHealth)
}
