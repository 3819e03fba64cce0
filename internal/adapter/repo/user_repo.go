package repo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"budget/internal/domain"
	"budget/internal/infra"
	"budget/internal/sqlinline"
)

// UserRepository implements domain.UserRepository.
type UserRepository struct {
	sql infra.SQLExecutor
	now func() time.Time
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(sql infra.SQLExecutor) *UserRepository {
	return &UserRepository{sql: sql, now: time.Now}
}

type userRow struct {
	ID         string       `db:"id"`
	Email      string       `db:"email"`
	VerifiedAt sql.NullTime `db:"verified_at"`
	CreatedAt  time.Time    `db:"created_at"`
}

func (u userRow) toDomain() *domain.User {
	user := &domain.User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
	if u.VerifiedAt.Valid {
		at := u.VerifiedAt.Time
		user.VerifiedAt = &at
	}
	return user
}

// Create inserts a user for email unless one exists, and returns the stored row.
func (r *UserRepository) Create(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertUser, uuid.NewString(), email, r.now().UTC()); err != nil {
		return nil, domain.NewStorageError("create user", err)
	}
	return r.GetByEmail(ctx, email)
}

// GetByEmail fetches a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, "get user by email", sqlinline.QSelectUserByEmail, strings.ToLower(strings.TrimSpace(email)))
}

// GetByID fetches a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, "get user", sqlinline.QSelectUserByID, id)
}

// MarkVerified records the first verification time; later calls keep it.
func (r *UserRepository) MarkVerified(ctx context.Context, id string, at time.Time) error {
	res, err := r.sql.Exec(ctx, sqlinline.QMarkUserVerified, at.UTC(), id)
	if err != nil {
		return domain.NewStorageError("mark user verified", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListVerified returns every verified user ordered by email.
func (r *UserRepository) ListVerified(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := r.sql.Select(ctx, &rows, sqlinline.QListVerifiedUsers); err != nil {
		return nil, domain.NewStorageError("list users", err)
	}
	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.toDomain())
	}
	return out, nil
}

func (r *UserRepository) get(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	var row userRow
	if err := r.sql.Get(ctx, &row, query, arg); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStorageError(op, err)
	}
	return row.toDomain(), nil
}
