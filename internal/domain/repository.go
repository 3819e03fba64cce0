package domain

import (
	"context"
	"time"
)

// ProjectRepository gives read access to the project catalogue plus the bulk
// load used at startup.
type ProjectRepository interface {
	List(ctx context.Context, filter ProjectFilter) ([]Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	Count(ctx context.Context) (int, error)
	Categories(ctx context.Context) ([]string, error)
	Statuses(ctx context.Context) ([]string, error)
	UpsertAll(ctx context.Context, projects []Project) error
}

// UserRepository persists verified users.
type UserRepository interface {
	Create(ctx context.Context, email string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	MarkVerified(ctx context.Context, id string, at time.Time) error
	ListVerified(ctx context.Context) ([]User, error)
}

// TokenRepository persists verification tokens.
type TokenRepository interface {
	Save(ctx context.Context, token VerificationToken) error
	Get(ctx context.Context, token string) (*VerificationToken, error)
	Consume(ctx context.Context, token string, at time.Time) error
	CountIssuedSince(ctx context.Context, email string, since time.Time) (int, error)
	DeleteExpired(ctx context.Context, expiredBefore, issuedBefore time.Time) (int64, error)
}

// AllocationRepository persists per-user allocations.
type AllocationRepository interface {
	ListByUser(ctx context.Context, userID string) (map[string]int64, error)
	Upsert(ctx context.Context, userID, projectID string, amount int64, at time.Time) error
	TotalExcluding(ctx context.Context, userID, projectID string) (int64, error)
	CategoryBreakdown(ctx context.Context, userID string) ([]CategoryTotal, error)
	ExportRows(ctx context.Context, userID string) ([]AllocationRow, error)
}

// Repositories bundles the repositories bound to one executor.
type Repositories interface {
	Projects() ProjectRepository
	Users() UserRepository
	Tokens() TokenRepository
	Allocations() AllocationRepository
}

// Store is the data store. WithTx runs fn against repositories bound to a
// single transaction that commits when fn returns nil.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
}
