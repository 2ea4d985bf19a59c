package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"kucukaslan/activity/buildinfo"
	"kucukaslan/activity/domain"
)

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports the store, the optional collaborators and the ingest backlog.
// A nil optional collaborator reports "disabled".
type HealthChecker struct {
	Store    Pinger
	Redis    Pinger
	Postgres Pinger
	NATS     Pinger
	Ingest   interface{ Health() domain.IngestHealth }
}

func ping(ctx context.Context, p Pinger) domain.ServiceStatus {
	if p == nil {
		return domain.ServiceStatus{Status: "disabled"}
	}
	if err := p.Ping(ctx); err != nil {
		return domain.ServiceStatus{Status: "unhealthy", Message: err.Error()}
	}
	return domain.ServiceStatus{Status: "healthy"}
}

// Check handles the /health endpoint
// @Summary Health check endpoint
// @Description Check the health status of the service and its dependencies. Optional dependencies that are down degrade the service without failing it.
// @Tags Health
// @Produce json
// @Success 200 {object} domain.HealthResponse "Service is healthy or degraded"
// @Success 503 {object} domain.HealthResponse "Activity store is unreachable"
// @Router /health [get]
func (h *HealthChecker) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	response := domain.HealthResponse{
		Timestamp: time.Now(),
		BuildInfo: buildinfo.GetInfo(),
		Services: domain.ServiceHealthStatus{
			Store:    ping(ctx, h.Store),
			Redis:    ping(ctx, h.Redis),
			Postgres: ping(ctx, h.Postgres),
			NATS:     ping(ctx, h.NATS),
		},
	}
	if h.Ingest != nil {
		response.Ingest = h.Ingest.Health()
	}

	// Determine overall status
	if response.Services.Store.Status != "healthy" {
		response.Status = "unhealthy"
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}
	response.Status = "healthy"
	for _, s := range []domain.ServiceStatus{response.Services.Redis, response.Services.Postgres, response.Services.NATS} {
		if s.Status == "unhealthy" {
			response.Status = "degraded"
		}
	}
	return c.Status(fiber.StatusOK).JSON(response)
}
