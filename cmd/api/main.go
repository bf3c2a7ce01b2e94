package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"answerapi/docs"
	"answerapi/internal/config"
	handlers "answerapi/internal/http/handler"
	"answerapi/internal/http/middleware"
	"answerapi/internal/llm"
	"answerapi/internal/logger"
	"answerapi/internal/otel"
	"answerapi/internal/search"
	"answerapi/internal/service"
)

const shutdownTimeout = 15 * time.Second

// @title Answer API
// @version 1.0
// @description Answers questions using web search and a large language model.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid APP_TIMEZONE %q: %v", cfg.Timezone, err)
	}

	zl, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Location:    loc,
	})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	if err := cfg.Validate(); err != nil {
		zl.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, zl)
	if err != nil {
		zl.Fatal("failed to initialize tracing", zap.Error(err))
	}

	// Upstream clients use traced HTTP transports with per-client timeouts
	searcher, err := search.NewYandex(cfg.Search, nil)
	if err != nil {
		zl.Fatal("failed to initialize search client", zap.Error(err))
	}
	generator, err := llm.NewDeepSeek(cfg.LLM, nil)
	if err != nil {
		zl.Fatal("failed to initialize llm client", zap.Error(err))
	}

	predictSvc := service.NewPredictionService(searcher, generator, zl)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		zl.Fatal("failed to register metrics", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:               "answerapi",
		ErrorHandler:          handlers.ErrorHandler(zl.Named("http")),
		DisableStartupMessage: true,
	})

	// Register global middleware
	// Tracing first so the request id and logs share the server span context
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// Structured request/response logging
	app.Use(middleware.Logger(zl.Named("http"), cfg.Log.MaxBodyBytes))
	app.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(app, predictSvc, reg)

	// Swagger UI with dynamic host and scheme
	// SwaggerInfo outlives the request, so header values are copied out of fasthttp's buffers.
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		docs.SwaggerInfo.Host = utils.CopyString(c.Get("Host"))
		docs.SwaggerInfo.Schemes = []string{utils.CopyString(scheme)}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", addr), zap.String("app_host", cfg.AppHost))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			zl.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		zl.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zl.Error("server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("tracing shutdown failed", zap.Error(err))
	}
	zl.Info("server stopped")
}
