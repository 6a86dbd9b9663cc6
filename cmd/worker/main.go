package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"payhook/internal/engine/queue"
	"payhook/internal/pkg/logger"
	"payhook/internal/platform/config"
	"payhook/internal/platform/database"
	"payhook/internal/platform/repositories"
	"payhook/internal/workers"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(config.ResolvePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging, "payhook-worker")

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	jobs := workers.NewJobs(repositories.NewDispatchLogRepository(db), queue.NewStore(db), cfg.Workers)

	c := cron.New()
	if err := jobs.Schedule(c); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule jobs")
	}

	log.Info().Int("jobs", len(c.Entries())).Msg("worker starting")
	c.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("waiting for running jobs")
	<-c.Stop().Done()
}
