package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/itop-report/internal/api/http/handlers"
	"github.com/spec-kit/itop-report/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Reports *handlers.ReportHandler
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Get("/", func(c *fiber.Ctx) error {
		target := "/reports/view"
		if q := c.Context().QueryArgs().String(); q != "" {
			target += "?" + q
		}
		return c.Redirect(target, fiber.StatusFound)
	})

	reports := app.Group("/reports")
	reports.Get("/view", cfg.Reports.View)
	reports.Get("/document", cfg.Reports.Document)
	reports.Get("/:id/document", cfg.Reports.StoredDocument)

	api := app.Group("/api")
	api.Get("/reports", cfg.Reports.Report)
}
