package repo

import (
	"context"

	"budget/internal/domain"
	"budget/internal/infra"
)

// Store implements domain.Store on top of an infra.SQLRunner. Each call
// outside WithTx borrows a pooled connection for one statement only.
type Store struct {
	runner *infra.SQLRunner
	repos
}

type repos struct {
	projects    *ProjectRepository
	users       *UserRepository
	tokens      *TokenRepository
	allocations *AllocationRepository
}

// NewStore creates a Store bound to runner.
func NewStore(runner *infra.SQLRunner) *Store {
	return &Store{runner: runner, repos: newRepos(runner)}
}

func newRepos(sql infra.SQLExecutor) repos {
	return repos{
		projects:    NewProjectRepository(sql),
		users:       NewUserRepository(sql),
		tokens:      NewTokenRepository(sql),
		allocations: NewAllocationRepository(sql),
	}
}

func (r repos) Projects() domain.ProjectRepository       { return r.projects }
func (r repos) Users() domain.UserRepository             { return r.users }
func (r repos) Tokens() domain.TokenRepository           { return r.tokens }
func (r repos) Allocations() domain.AllocationRepository { return r.allocations }

// WithTx runs fn against repositories bound to a single transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	return s.runner.WithTx(ctx, func(tx infra.SQLExecutor) error {
		return fn(newRepos(tx))
	})
}

var _ domain.Store = (*Store)(nil)
