// Package repotest opens migrated in-memory stores for tests.
package repotest

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"budget/internal/adapter/repo"
	"budget/internal/domain"
	"budget/internal/infra"
)

// NewStore returns a Store over a fresh, migrated in-memory SQLite database.
func NewStore(t testing.TB) *repo.Store {
	t.Helper()
	ctx := context.Background()
	db, err := infra.OpenSQLite(ctx, infra.MemoryDSN)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := infra.Migrate(ctx, db, zerolog.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.NewStore(infra.NewSQLRunner(db, zerolog.Nop()))
}

// SeedProjects loads projects into store.
func SeedProjects(t testing.TB, store domain.Store, projects ...domain.Project) {
	t.Helper()
	if err := store.Projects().UpsertAll(context.Background(), projects); err != nil {
		t.Fatalf("seed projects: %v", err)
	}
}

// SampleProjects is a small catalogue spanning two categories and statuses.
func SampleProjects() []domain.Project {
	return []domain.Project{
		{ID: "P1", Name: "Open Council Data", Description: "Publishes council spending", Category: "Transparency", Status: "active"},
		{ID: "P2", Name: "Vote Finder", Description: "Polling station lookup", Category: "Elections", Status: "active"},
		{ID: "P3", Name: "Petition Tracker", Description: "Tracks petition signatures", Category: "Transparency", Status: "archived"},
		{ID: "P4", Name: "Ballot Explainer", Description: "Plain-language referendum guides", Category: "Elections", Status: "prototype"},
	}
}
