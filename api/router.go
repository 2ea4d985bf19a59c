package api

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"

	"kucukaslan/activity/auth"
	"kucukaslan/activity/config"
	_ "kucukaslan/activity/docs" // swagger spec
	"kucukaslan/activity/domain"
	"kucukaslan/activity/logging"
	"kucukaslan/activity/metrics"
	"kucukaslan/activity/session"
	"kucukaslan/activity/tracking"
)

const idleTimeout = 5 * time.Second

// Ingest is the write side the router needs: the service contract plus its backlog report.
type Ingest interface {
	domain.IngestService
	Health() domain.IngestHealth
}

// Deps wires the HTTP surface. Health may be nil; a checker with only the
// ingest backlog is built then.
type Deps struct {
	Config    *config.Config
	Ingest    Ingest
	Analytics domain.AnalyticsService
	Retention domain.RetentionService
	Auth      *auth.Authenticator
	Health    *HealthChecker
}

// NewApp builds the fiber application with every route registered.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		IdleTimeout:           idleTimeout,
		ErrorHandler:          ErrorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
	})

	app.Use(requestid.New(requestid.Config{Generator: logging.NewRequestID}))
	app.Use(func(c *fiber.Ctx) error {
		id, _ := c.Locals("requestid").(string)
		c.SetUserContext(logging.ContextWithRequestID(c.UserContext(), id))
		return c.Next()
	})
	app.Use(metrics.Middleware())
	app.Use(recover.New())
	app.Use(cors.New())

	health := d.Health
	if health == nil {
		health = &HealthChecker{}
	}
	if health.Ingest == nil {
		health.Ingest = d.Ingest
	}

	tracker := tracking.New(d.Ingest, session.NewResolver(), tracking.Config{
		CookieAge:    d.Config.Tracking.SessionCookieAge,
		SecureCookie: d.Config.IsProduction(),
		UserID:       auth.UserID,
		StatusOf:     StatusOf,
	})

	activities := NewActivityHandler(d.Ingest)
	analytics := NewAnalyticsHandler(d.Analytics, d.Auth)
	admin := NewAdminHandler(d.Retention)

	// redirect to swagger docs
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/swagger/", fiber.StatusMovedPermanently)
	})
	app.Get("/health", health.Check)
	app.Get("/metrics", metrics.Handler())
	app.Get("/swagger/*", swagger.HandlerDefault)

	apiGroup := app.Group("/api", d.Auth.Optional())
	apiGroup.Get("/session", tracker.Track(domain.PageView), activities.Session)

	act := apiGroup.Group("/activities")
	act.Post("/track", tracker.Session(), activities.Track)
	act.Post("/bulk", d.Auth.RequireAdmin(), activities.TrackBulk)
	act.Get("/user/:userId", d.Auth.Require(), analytics.UserHistory)
	act.Get("/journey/:sessionId", d.Auth.RequireAdmin(), analytics.Journey)
	act.Get("/stats", d.Auth.RequireAdmin(), analytics.Stats)
	act.Get("/popular-products", d.Auth.RequireAdmin(), analytics.PopularProducts)
	act.Get("/errors", d.Auth.RequireAdmin(), analytics.Errors)
	act.Get("/order/:orderId", d.Auth.Require(), analytics.OrderTimeline)

	adm := apiGroup.Group("/admin", d.Auth.RequireAdmin())
	adm.Post("/activities/cleanup", admin.Cleanup)
	adm.Post("/activities/purge", admin.Purge)

	return app
}
