package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout   = 10 * time.Second
	dataLoadTimeout = 30 * time.Second
	cacheMaxAge     = "public, max-age=300"
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func datasetSource(ctx context.Context, cfg config.DataConfig, logger *slog.Logger) (services.DatasetSource, error) {
	if cfg.CSVFile != "" {
		ctx, cancel := context.WithTimeout(ctx, dataLoadTimeout)
		defer cancel()
		return services.CSVSource(ctx, cfg.CSVFile, logger)
	}

	logger.Info("using synthetic dataset",
		"seed", cfg.Seed,
		"size", cfg.Size,
		"start_date", cfg.StartDate.Format("2006-01-02"),
	)
	return services.GeneratorSource(services.GeneratorConfig{
		Seed:      cfg.Seed,
		Size:      cfg.Size,
		StartDate: cfg.StartDate,
	}), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"log_level", cfg.Logger.Level,
	)

	source, err := datasetSource(context.Background(), cfg.Data, logger)
	if err != nil {
		logger.Error("failed to prepare dataset", "error", err)
		os.Exit(1)
	}

	store := services.NewSessionStore(source, services.SessionStoreConfig{
		TTL:           cfg.Session.TTL,
		MaxSessions:   cfg.Session.MaxSessions,
		SweepInterval: cfg.Session.SweepInterval,
	}, logger)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go store.Run(bgCtx)

	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	srv := server.NewServer(store, logger, templateHandlers, cfg.Session.CookieSecure)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	go rateLimiter.Run(bgCtx)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      middlewareChain(srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("stopping session janitor", "active_sessions", store.Len())
		stopBackground()
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
