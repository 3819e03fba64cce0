package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budget/internal/adapter/repo"
	"budget/internal/catalog"
	"budget/internal/domain"
	"budget/internal/infra"
)

const pollInterval = time.Minute

// maintenanceWorker purges expired verification tokens that have left the
// rate-limit window and reloads the project catalogue whenever the source
// file changes.
type maintenanceWorker struct {
	ctx          context.Context
	store        domain.Store
	logger       infra.Logger
	projectsPath string
	purgeEvery   time.Duration
	rateWindow   time.Duration

	lastPurge   time.Time
	lastModTime time.Time
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := infra.OpenDB(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer db.Close()

	if err := infra.Migrate(ctx, db, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker: migrate failed")
	}

	w := &maintenanceWorker{
		ctx:          ctx,
		store:        repo.NewStore(infra.NewSQLRunner(db, logger)),
		logger:       logger,
		projectsPath: cfg.ProjectsPath,
		purgeEvery:   time.Hour,
		rateWindow:   cfg.VerifyWindow,
	}
	if err := w.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *maintenanceWorker) Run() error {
	w.logger.Info().Str("projects", w.projectsPath).Msg("worker: started")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		w.tick(time.Now())
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *maintenanceWorker) tick(now time.Time) {
	if now.Sub(w.lastPurge) >= w.purgeEvery {
		n, err := w.store.Tokens().DeleteExpired(w.ctx, now.UTC(), now.Add(-w.rateWindow).UTC())
		if err != nil {
			w.logger.Error().Err(err).Msg("worker: purge expired tokens failed")
		} else {
			w.lastPurge = now
			if n > 0 {
				w.logger.Info().Int64("deleted", n).Msg("worker: purged expired tokens")
			}
		}
	}

	info, err := os.Stat(w.projectsPath)
	if err != nil {
		return
	}
	if !info.ModTime().After(w.lastModTime) {
		return
	}
	res, err := catalog.LoadFile(w.ctx, w.projectsPath, w.store, w.logger)
	if err != nil {
		w.logger.Error().Err(err).Msg("worker: catalogue reload failed")
		return
	}
	w.lastModTime = info.ModTime()
	w.logger.Info().Int("loaded", res.Loaded).Int("skipped", res.Skipped).Msg("worker: catalogue reloaded")
}
