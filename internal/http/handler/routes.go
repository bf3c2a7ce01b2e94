package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"answerapi/internal/http/middleware"
	"answerapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, predictSvc service.PredictionService, gatherer prometheus.Gatherer) {
	app.Get("/health", HealthCheck())
	app.Get("/healthz", LivenessProbe())

	if gatherer != nil {
		app.Get(middleware.MetricsPath, Metrics(gatherer))
	}

	api := app.Group("/api")
	api.Post("/request", Predict(predictSvc, NewValidator()))
}

// HealthCheck reports that the service is able to serve requests.
// Upstream APIs are not probed: they are metered and called per request.
func HealthCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is the backward-compatible simple liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Metrics exposes the collected Prometheus metrics.
func Metrics(gatherer prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
