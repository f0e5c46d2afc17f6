package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tvoe/mediaserver/internal/api"
	"github.com/tvoe/mediaserver/internal/config"
	"github.com/tvoe/mediaserver/internal/delivery"
	"github.com/tvoe/mediaserver/internal/ffmpeg"
	"github.com/tvoe/mediaserver/internal/metrics"
	"github.com/tvoe/mediaserver/internal/profile"
	"github.com/tvoe/mediaserver/internal/store"
	"github.com/tvoe/mediaserver/internal/stream"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	database, err := store.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Initialize repositories
	mediaRepo := store.NewMediaRepository(database)
	jobRepo := store.NewJobRepository(database)
	statsRepo := store.NewUserStatsRepository(database)

	// Initialize metrics
	m := metrics.New()

	// Initialize the streaming pipeline
	supervisor := stream.NewSupervisor(logger)
	tracker := stream.NewSegmentTracker(logger, supervisor, cfg.Stream.SegmentWaitTimeout, func(_ uuid.UUID) {
		m.IncrementSegmentRespawns()
	})
	builder := ffmpeg.NewCommandBuilder(cfg.FFmpeg.BinaryPath)
	prober := ffmpeg.NewProber(cfg.FFmpeg.FFprobePath)
	resolver := profile.NewResolver(logger)
	files := delivery.NewFileServer(logger)
	relay := delivery.NewRelay(logger)

	// Initialize handler
	handler := api.NewHandler(
		cfg,
		database,
		mediaRepo,
		jobRepo,
		statsRepo,
		supervisor,
		tracker,
		builder,
		prober,
		resolver,
		files,
		relay,
		logger,
		m,
	)

	// Create router
	router := api.NewRouter(handler, logger)

	// Create server
	server := api.NewServer(cfg.API, router, logger)

	// End jobs whose last activity exceeds the inactivity window
	go inactivitySweep(ctx, cfg.Stream, handler, jobRepo, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("server error", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("media server started", zap.Int("port", cfg.API.Port))

	// Wait for shutdown signal
	select {
	case <-sigChan:
		logger.Info("received shutdown signal")
	case <-ctx.Done():
	}

	if err := server.Stop(ctx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	supervisor.Shutdown()

	logger.Info("media server stopped")
}

// inactivitySweep periodically ends jobs that have gone quiet.
func inactivitySweep(ctx context.Context, cfg config.StreamConfig, handler *api.Handler, jobRepo *store.JobRepository, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cutoff := time.Now().UTC().Add(-cfg.InactivityWindow)
		jobs, err := jobRepo.ListInactiveSince(ctx, cutoff)
		if err != nil {
			logger.Warn("inactivity sweep failed", zap.Error(err))
			continue
		}
		for _, job := range jobs {
			logger.Info("ending inactive job",
				zap.String("jobId", job.ID.String()),
				zap.Time("lastActiveAt", job.LastActiveAt))
			handler.EndJob(ctx, job.ID)
		}
	}
}
