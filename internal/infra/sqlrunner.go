package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// SQLExecutor defines the contract required by repositories for executing SQL queries.
// Queries are written with `?` placeholders and rebound for the active driver.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Get(ctx context.Context, dest any, query string, args ...any) error
	Select(ctx context.Context, dest any, query string, args ...any) error
}

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// SQLRunner executes marked queries against the pool and logs each call by
// its marker.
type SQLRunner struct {
	DB     *sqlx.DB
	Logger zerolog.Logger
	exec   queryRunner
}

func NewSQLRunner(db *sqlx.DB, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{
		DB:     db,
		Logger: logger,
		exec:   queryRunner{ext: db, logger: logger},
	}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.exec.Exec(ctx, query, args...)
}

func (r *SQLRunner) Get(ctx context.Context, dest any, query string, args ...any) error {
	return r.exec.Get(ctx, dest, query, args...)
}

func (r *SQLRunner) Select(ctx context.Context, dest any, query string, args ...any) error {
	return r.exec.Select(ctx, dest, query, args...)
}

// WithTx begins a transaction, runs fn with a transactional executor, and
// commits on success or rolls back on error or panic. Panics are rethrown.
func (r *SQLRunner) WithTx(ctx context.Context, fn func(tx SQLExecutor) error) (err error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.Logger.Error().Err(rbErr).Msg("rollback failed")
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("commit tx: %w", cErr)
		}
	}()

	err = fn(queryRunner{ext: tx, logger: r.Logger})
	return err
}

type queryRunner struct {
	ext    sqlx.ExtContext
	logger zerolog.Logger
}

func (q queryRunner) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	marker, bound, args, err := q.prepare(query, args)
	if err != nil {
		return nil, err
	}
	q.logger.Debug().Msgf("sql[%s] exec", marker)
	res, err := q.ext.ExecContext(ctx, bound, args...)
	if err != nil {
		q.logger.Error().Err(err).Msgf("sql[%s] error", marker)
		return nil, err
	}
	return res, nil
}

func (q queryRunner) Get(ctx context.Context, dest any, query string, args ...any) error {
	marker, bound, args, err := q.prepare(query, args)
	if err != nil {
		return err
	}
	q.logger.Debug().Msgf("sql[%s] get", marker)
	err = sqlx.GetContext(ctx, q.ext, dest, bound, args...)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		q.logger.Error().Err(err).Msgf("sql[%s] scan error", marker)
	}
	return err
}

func (q queryRunner) Select(ctx context.Context, dest any, query string, args ...any) error {
	marker, bound, args, err := q.prepare(query, args)
	if err != nil {
		return err
	}
	q.logger.Debug().Msgf("sql[%s] select", marker)
	if err := sqlx.SelectContext(ctx, q.ext, dest, bound, args...); err != nil {
		q.logger.Error().Err(err).Msgf("sql[%s] error", marker)
		return err
	}
	return nil
}

// prepare strips the marker, expands slice arguments for IN clauses and
// rebinds placeholders for the driver.
func (q queryRunner) prepare(query string, args []any) (string, string, []any, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return "", "", nil, err
	}
	expanded, args, err := sqlx.In(trimmed, args...)
	if err != nil {
		return "", "", nil, fmt.Errorf("sql[%s] expand args: %w", marker, err)
	}
	return marker, q.ext.Rebind(expanded), args, nil
}

func extractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", errors.New("empty query")
	}
	lines := strings.Split(trimmed, "\n")
	markerLine := strings.TrimSpace(lines[0])
	if !markerRegexp.MatchString(markerLine) {
		return "", "", errors.New("sql marker missing or invalid")
	}
	return strings.TrimSpace(strings.TrimPrefix(markerLine, "--sql ")), strings.Join(lines[1:], "\n"), nil
}

// IsNoRows reports whether err signals an empty result.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

var _ SQLExecutor = (*SQLRunner)(nil)
var _ SQLExecutor = queryRunner{}
