package repo

import (
	"context"
	"database/sql"
	"time"

	"budget/internal/domain"
	"budget/internal/infra"
	"budget/internal/sqlinline"
)

// TokenRepository implements domain.TokenRepository.
type TokenRepository struct {
	sql infra.SQLExecutor
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(sql infra.SQLExecutor) *TokenRepository {
	return &TokenRepository{sql: sql}
}

type tokenRow struct {
	Token      string       `db:"token"`
	Email      string       `db:"email"`
	IssuedAt   time.Time    `db:"issued_at"`
	ExpiresAt  time.Time    `db:"expires_at"`
	ConsumedAt sql.NullTime `db:"consumed_at"`
}

// Save persists a newly issued token.
func (r *TokenRepository) Save(ctx context.Context, t domain.VerificationToken) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertToken, t.Token, t.Email, t.IssuedAt.UTC(), t.ExpiresAt.UTC())
	return domain.NewStorageError("save token", err)
}

// Get looks up a token by value.
func (r *TokenRepository) Get(ctx context.Context, token string) (*domain.VerificationToken, error) {
	var row tokenRow
	if err := r.sql.Get(ctx, &row, sqlinline.QSelectToken, token); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStorageError("get token", err)
	}
	t := &domain.VerificationToken{
		Token:     row.Token,
		Email:     row.Email,
		IssuedAt:  row.IssuedAt,
		ExpiresAt: row.ExpiresAt,
	}
	if row.ConsumedAt.Valid {
		at := row.ConsumedAt.Time
		t.ConsumedAt = &at
	}
	return t, nil
}

// Consume marks the token used. It fails with ErrTokenAlreadyUsed when the
// token has no unconsumed row left.
func (r *TokenRepository) Consume(ctx context.Context, token string, at time.Time) error {
	res, err := r.sql.Exec(ctx, sqlinline.QConsumeToken, at.UTC(), token)
	if err != nil {
		return domain.NewStorageError("consume token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError("consume token", err)
	}
	if n == 0 {
		return domain.ErrTokenAlreadyUsed
	}
	return nil
}

// CountIssuedSince counts tokens issued for email strictly after since.
func (r *TokenRepository) CountIssuedSince(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	if err := r.sql.Get(ctx, &n, sqlinline.QCountTokensIssuedSince, email, since.UTC()); err != nil {
		return 0, domain.NewStorageError("count tokens", err)
	}
	return n, nil
}

// DeleteExpired removes tokens that expired before expiredBefore and were
// issued no later than issuedBefore.
func (r *TokenRepository) DeleteExpired(ctx context.Context, expiredBefore, issuedBefore time.Time) (int64, error) {
	res, err := r.sql.Exec(ctx, sqlinline.QDeleteExpiredTokens, expiredBefore.UTC(), issuedBefore.UTC())
	if err != nil {
		return 0, domain.NewStorageError("delete expired tokens", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
