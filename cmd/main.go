package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"focustube/internal/config"
	"focustube/internal/database"
	"focustube/internal/notes"
	"focustube/internal/scheduler"
	"focustube/internal/server"
	"focustube/internal/summarizer"
	"focustube/internal/summary"
	"focustube/internal/transcript"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	transcripts := transcript.NewYouTubeClient(cfg.TranscriptTimeout, cfg.TranscriptLanguages, log)
	log.InfoContext(ctx, "Transcript client is initialized",
		"languages", cfg.TranscriptLanguages,
		"timeout", cfg.TranscriptTimeout.String())

	s, err := initSummarizer(ctx, cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize summarizer",
			"error", err,
			"provider", cfg.Provider)

		return
	}

	var noteSaver summary.NoteSaver
	if cfg.ObsidianEnabled {
		noteSaver = notes.NewWriter(cfg.ObsidianVaultPath, log)
		log.InfoContext(ctx, "Note persistence is enabled",
			"vaultPath", cfg.ObsidianVaultPath,
			"useVideoTitle", cfg.ObsidianUseVideoTitle)
	} else {
		log.InfoContext(ctx, "Note persistence is disabled")
	}

	var (
		historyRecorder summary.HistoryRecorder
		historyLister   server.HistoryLister
	)
	if cfg.HistoryEnabled() {
		db, dbErr := database.New(ctx, cfg.HistoryDBPath, log)
		if dbErr != nil {
			log.ErrorContext(ctx, "Failed to initialize db",
				"error", dbErr,
				"dbPath", cfg.HistoryDBPath)

			return
		}
		defer func() {
			if err = db.Close(); err != nil {
				log.ErrorContext(ctx, "Failed to close db",
					"error", err,
					"dbPath", cfg.HistoryDBPath)
			}
		}()
		log.InfoContext(ctx, "DB is initialized",
			"dbPath", cfg.HistoryDBPath)

		historyRecorder = db
		historyLister = db

		if cfg.HistoryRetention > 0 {
			sched := scheduler.New(ctx, db, cfg.HistoryRetention, log)
			if err = sched.Start(); err != nil {
				log.ErrorContext(ctx, "Failed to start scheduler",
					"error", err,
					"spec", scheduler.HourlyRetentionSpec)

				return
			}
			defer sched.Stop()
			log.InfoContext(ctx, "Scheduler is started",
				"spec", scheduler.HourlyRetentionSpec,
				"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String(),
				"retention", cfg.HistoryRetention.String())
		}
	}

	svc := summary.New(transcripts, s, noteSaver, historyRecorder, summary.Options{
		CredentialEnvVar: cfg.APIKeyEnvVar(),
		UseVideoTitle:    cfg.ObsidianUseVideoTitle,
	}, log)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(svc, historyLister, log).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()
	log.InfoContext(ctx, "HTTP server is started",
		"addr", cfg.ListenAddr)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-c:
		log.InfoContext(ctx, "Shutdown signal is received",
			"signal", sig.String())
	case err = <-errCh:
		log.ErrorContext(ctx, "HTTP server failed",
			"error", err,
			"addr", cfg.ListenAddr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(ctx, "Failed to shut down HTTP server",
			"error", err)
	}
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())
}

// initSummarizer returns a nil summarizer without error when the provider key
// is missing, so requests report the missing variable. A set key that cannot
// build a client stops startup.
func initSummarizer(
	ctx context.Context,
	cfg config.Config,
	log *slog.Logger,
) (summarizer.Summarizer, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		log.WarnContext(ctx, "API key is missing so summary requests will fail",
			"provider", cfg.Provider,
			"envVar", cfg.APIKeyEnvVar())

		return nil, nil
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		s, err := summarizer.NewOpenAISummarizer(apiKey, cfg.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("create OpenAI summarizer: %w", err)
		}

		log.InfoContext(ctx, "Summarizer is initialized",
			"provider", cfg.Provider)

		return s, nil
	case config.ProviderGemini:
		s, err := summarizer.NewGeminiSummarizer(ctx, apiKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("create Gemini summarizer: %w", err)
		}

		log.InfoContext(ctx, "Summarizer is initialized",
			"provider", cfg.Provider)

		return s, nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", cfg.Provider)
	}
}
