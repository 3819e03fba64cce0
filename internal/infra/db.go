package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"budget/internal/migrations"
)

const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

// MemoryDSN opens a private in-memory SQLite database. Used by tests.
const MemoryDSN = ":memory:"

// OpenDB opens the database named by the configuration. SQLite is limited to
// a single open connection so writers are serialised by the pool and every
// operation borrows the connection only for the length of its statement or
// transaction.
func OpenDB(ctx context.Context, cfg *Config) (*sqlx.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	switch cfg.DatabaseDriver {
	case DriverPgx:
		return openPostgres(ctx, cfg.DatabaseURL)
	default:
		return OpenSQLite(ctx, cfg.DatabasePath)
	}
}

// OpenSQLite opens (or creates) the SQLite file at path with WAL, foreign
// keys and a busy timeout enabled.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if path != MemoryDSN {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

func openPostgres(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverPgx, url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded goose migrations. Running it against an
// up-to-date schema is a no-op.
func Migrate(ctx context.Context, db *sqlx.DB, logger zerolog.Logger) error {
	dialect := goose.DialectSQLite3
	if db.DriverName() == DriverPgx {
		dialect = goose.DialectPostgres
	}

	provider, err := goose.NewProvider(dialect, db.DB, migrations.FS)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		logger.Info().
			Int64("version", res.Source.Version).
			Str("file", filepath.Base(res.Source.Path)).
			Dur("took", res.Duration).
			Msg("migration applied")
	}
	return nil
}
