package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payhook/internal/api"
	"payhook/internal/api/handlers"
	"payhook/internal/api/middleware"
	"payhook/internal/engine/dispatch"
	"payhook/internal/engine/flows"
	"payhook/internal/engine/links"
	"payhook/internal/engine/queue"
	"payhook/internal/engine/renderer"
	"payhook/internal/engine/scheduler"
	"payhook/internal/pkg/logger"
	"payhook/internal/platform/config"
	"payhook/internal/platform/database"
	"payhook/internal/platform/repositories"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(config.ResolvePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging, "payhook-server")

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if _, err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Repositories
	linkRepo := repositories.NewLinkRepository(db)
	templateRepo := repositories.NewTemplateRepository(db)
	flowRepo := repositories.NewFlowRepository(db)
	logRepo := repositories.NewDispatchLogRepository(db)
	jobStore := queue.NewStore(db)

	// Engine
	render := renderer.New(renderer.WithLocation(renderer.LoadLocation(cfg.Renderer.Timezone)))
	sender := links.SenderDefaults{FromName: cfg.Email.FromName, FromEmail: cfg.Email.FromAddress}

	dispatcher := dispatch.New(dispatch.Deps{
		Links:     links.NewCachedFinder(linkRepo, cfg.Cache.LinkTTL),
		Counters:  linkRepo,
		Templates: templateRepo,
		Flows:     flowRepo,
		Trigger:   flows.NewClient(cfg.Flows.BaseURL, cfg.Flows.JWTSecret, cfg.Flows.Timeout),
		Renderer:  render,
		Scheduler: scheduler.New(jobStore, cfg.Queue.EnqueueTimeout),
		Logs:      logRepo,
	}, dispatch.Options{
		CompanyName: cfg.Email.CompanyName,
		Sender:      links.DefaultEmailSettings(sender),
	})

	proxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid server.trusted_proxies")
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimit.WebhookPerMinute, proxies)

	router := api.NewRouter(&api.Dependencies{
		WebhookHandler: handlers.NewWebhookHandler(dispatcher, linkRepo, handlers.WebhookOptions{
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			Limiter:      limiter,
			Proxies:      proxies,
		}),
		LinkHandler:     handlers.NewLinkHandler(linkRepo),
		TemplateHandler: handlers.NewTemplateHandler(templateRepo, render),
		QueueHandler:    handlers.NewQueueHandler(jobStore),
		HealthHandler:   handlers.NewHealthHandler(db),
		RateLimiter:     limiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
