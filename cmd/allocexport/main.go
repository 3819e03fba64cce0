package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"budget/internal/adapter/repo"
	"budget/internal/allocation"
	"budget/internal/domain"
	"budget/internal/infra"
	"budget/internal/storage"
)

func main() {
	var (
		emailFlag string
		outFlag   string
		dirFlag   string
		allFlag   bool
		zipFlag   bool
	)

	flag.StringVar(&emailFlag, "email", "", "email of the user whose allocations to export")
	flag.BoolVar(&allFlag, "all", false, "export every verified user (requires -dir)")
	flag.StringVar(&outFlag, "out", "-", "output file for a single user (- for stdout)")
	flag.StringVar(&dirFlag, "dir", "", "directory receiving one export per user")
	flag.BoolVar(&zipFlag, "zip", false, "write a zip bundle with allocations.csv and categories.csv")
	flag.Parse()

	_ = godotenv.Load()

	email := strings.ToLower(strings.TrimSpace(emailFlag))
	switch {
	case allFlag && email != "":
		exitWithError(errors.New("use either -email or -all"))
	case !allFlag && email == "":
		exitWithError(errors.New("either -email or -all must be provided"))
	case allFlag && dirFlag == "":
		exitWithError(errors.New("-all needs -dir"))
	case zipFlag && dirFlag == "" && outFlag == "-":
		exitWithError(errors.New("-zip needs -out or -dir"))
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Exports may go to stdout, so logs go to stderr.
	logger := infra.NewLogger("cli").Output(os.Stderr).With().Str("cmd", "allocexport").Logger()
	store, closeDB, err := openStore(ctx, cfg, logger)
	if err != nil {
		exitWithError(err)
	}
	defer closeDB()

	engine := allocation.NewEngine(store, allocation.Options{
		Budget:      cfg.TotalBudget,
		MaxProjects: cfg.MaxProjects,
		Logger:      logger,
	})

	var users []domain.User
	if allFlag {
		if users, err = store.Users().ListVerified(ctx); err != nil {
			exitWithError(fmt.Errorf("failed to list users: %w", err))
		}
	} else {
		user, err := store.Users().GetByEmail(ctx, email)
		if err != nil {
			exitWithError(fmt.Errorf("failed to load user %s: %w", email, err))
		}
		users = []domain.User{*user}
	}

	var files *storage.FileStore
	if dirFlag != "" {
		if files, err = storage.NewFileStore(dirFlag); err != nil {
			exitWithError(err)
		}
	}

	for _, user := range users {
		data, name, err := export(ctx, engine, user.ID, zipFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to export %s: %w", user.Email, err))
		}
		switch {
		case files != nil:
			key, err := files.Write(ctx, storage.ExportKey(user.Email, name), data)
			if err != nil {
				exitWithError(err)
			}
			fmt.Fprintf(os.Stderr, "wrote %s/%s\n", files.BasePath(), key)
		case outFlag == "-":
			if _, err := os.Stdout.Write(data); err != nil {
				exitWithError(err)
			}
		default:
			if err := os.WriteFile(outFlag, data, 0o644); err != nil {
				exitWithError(err)
			}
		}

		summary, err := engine.Summary(ctx, user.ID)
		if err != nil {
			exitWithError(fmt.Errorf("failed to summarise: %w", err))
		}
		fmt.Fprintf(os.Stderr, "%s: %s allocated across %d projects, %s remaining\n",
			user.Email, allocation.FormatGBP(summary.TotalAllocated), summary.ProjectCount, allocation.FormatGBP(summary.Remaining))
	}
}

// openStore opens the configured database and migrates it, so a fresh
// DATABASE_PATH exports empty files instead of failing on missing tables.
func openStore(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*repo.Store, func() error, error) {
	db, err := infra.OpenDB(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := infra.Migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return repo.NewStore(infra.NewSQLRunner(db, logger)), db.Close, nil
}

func export(ctx context.Context, engine *allocation.Engine, userID string, bundle bool) ([]byte, string, error) {
	if bundle {
		data, err := engine.ExportBundle(ctx, userID)
		return data, "allocations.zip", err
	}
	var buf bytes.Buffer
	if err := engine.Export(ctx, userID, &buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "allocations.csv", nil
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
