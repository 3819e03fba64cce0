package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budget/internal/adapter/repo"
	"budget/internal/allocation"
	"budget/internal/catalog"
	"budget/internal/http/handlers"
	httpapi "budget/internal/http/httpapi"
	"budget/internal/infra"
	"budget/internal/mailer"
	"budget/internal/middleware"
	"budget/internal/verification"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	db, err := infra.OpenDB(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := infra.Migrate(ctx, db, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	store := repo.NewStore(infra.NewSQLRunner(db, logger))

	if _, err := os.Stat(cfg.ProjectsPath); err == nil {
		if _, err := catalog.LoadFile(ctx, cfg.ProjectsPath, store, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to load project catalogue")
		}
	} else {
		logger.Warn().Str("file", cfg.ProjectsPath).Msg("project file not found, serving stored catalogue")
	}

	var mail verification.Mailer = mailer.LogMailer{Logger: logger}
	if cfg.SMTPAddr != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailSubject, cfg.TokenTTL)
	}

	verifier := verification.NewService(store, mail, verification.Config{
		BaseURL:   cfg.BaseURL + "/verify",
		TokenTTL:  cfg.TokenTTL,
		Limit:     cfg.VerifyLimit,
		Window:    cfg.VerifyWindow,
		Allowlist: cfg.AllowedEmails,
		DevMode:   cfg.IsDevelopment(),
	}, logger)
	engine := allocation.NewEngine(store, allocation.Options{
		Budget:      cfg.TotalBudget,
		MaxProjects: cfg.MaxProjects,
		Logger:      logger,
	})

	app, err := handlers.NewApp(store.Projects(), verifier, engine, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build handlers")
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Sessions:        middleware.NewCookieStore(cfg.SessionSecret, time.Duration(cfg.SessionMaxAgeHours)*time.Hour, !cfg.IsDevelopment()),
		RateLimitPerMin: cfg.RateLimitPerMin,
		Logger:          logger,
	})

	server := infra.NewHTTPServer(cfg, router, logger)

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeExpiredTokens(purgeCtx, verifier, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func purgeExpiredTokens(ctx context.Context, svc *verification.Service, logger infra.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		n, err := svc.PurgeExpired(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("purge expired tokens")
		} else if n > 0 {
			logger.Info().Int64("deleted", n).Msg("purged expired tokens")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
