package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/gotenberg"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/pipeline"
)

// HealthService serves GET /health with a bounded reachability probe of the
// renderer.
type HealthService struct {
	renderer *gotenberg.Client
	guard    *pipeline.Guard
	started  time.Time
}

// NewHealthService creates the health handler.
func NewHealthService(renderer *gotenberg.Client, guard *pipeline.Guard) *HealthService {
	return &HealthService{renderer: renderer, guard: guard, started: time.Now()}
}

// HandleHealth reports service status. 200 only when the renderer is
// reachable; anything else degrades the service to 503.
func (s *HealthService) HandleHealth(c *fiber.Ctx) error {
	renderer := s.renderer.Health(c.Context())

	status := "ok"
	code := fiber.StatusOK
	if renderer != gotenberg.StatusReachable {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"memoryMB":  s.guard.UsageMB(),
		"gotenberg": string(renderer),
	})
}
