package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/adapter/repo/repotest"
	"budget/internal/domain"
)

func projectIDs(projects []domain.Project) []string {
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestProjectRepository_ListFilters(t *testing.T) {
	store := repotest.NewStore(t)
	repotest.SeedProjects(t, store, repotest.SampleProjects()...)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter domain.ProjectFilter
		want   []string
	}{
		{name: "no filter", filter: domain.ProjectFilter{}, want: []string{"P1", "P2", "P3", "P4"}},
		{name: "query matches name case-insensitively", filter: domain.ProjectFilter{Query: "VOTE"}, want: []string{"P2"}},
		{name: "query matches description", filter: domain.ProjectFilter{Query: "petition"}, want: []string{"P3"}},
		{name: "category", filter: domain.ProjectFilter{Categories: []string{"Elections"}}, want: []string{"P2", "P4"}},
		{name: "status set", filter: domain.ProjectFilter{Statuses: []string{"archived", "prototype"}}, want: []string{"P3", "P4"}},
		{name: "combined", filter: domain.ProjectFilter{Query: "council", Categories: []string{"Transparency"}, Statuses: []string{"active"}}, want: []string{"P1"}},
		{name: "no match", filter: domain.ProjectFilter{Query: "zzz"}, want: []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.Projects().List(ctx, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, projectIDs(got))
		})
	}
}

func TestProjectRepository_ListQueryIsLiteral(t *testing.T) {
	store := repotest.NewStore(t)
	repotest.SeedProjects(t, store,
		domain.Project{ID: "A1", Name: "50% Match Fund", Description: "Matches donations"},
		domain.Project{ID: "A2", Name: "500 Trees", Description: "Planting scheme"},
		domain.Project{ID: "A3", Name: "open_data portal", Description: "Datasets"},
		domain.Project{ID: "A4", Name: "Open Data Hub", Description: `Paths like C:\data`},
		domain.Project{ID: "A5", Name: "ÉCOLE Numérique", Description: "Digital schools"},
	)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "percent is literal", query: "50%", want: []string{"A1"}},
		{name: "underscore is literal", query: "open_data", want: []string{"A3"}},
		{name: "lone underscore", query: "_", want: []string{"A3"}},
		{name: "backslash is literal", query: `c:\data`, want: []string{"A4"}},
		{name: "non-ascii folds case", query: "école numérique", want: []string{"A5"}},
		{name: "non-ascii upper query", query: "NUMÉRIQUE", want: []string{"A5"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.Projects().List(ctx, domain.ProjectFilter{Query: tc.query})
			require.NoError(t, err)
			assert.Equal(t, tc.want, projectIDs(got))
		})
	}
}

func TestProjectRepository_GetCountAndFacets(t *testing.T) {
	store := repotest.NewStore(t)
	repotest.SeedProjects(t, store, repotest.SampleProjects()...)
	ctx := context.Background()

	p, err := store.Projects().Get(ctx, "P2")
	require.NoError(t, err)
	assert.Equal(t, "Vote Finder", p.Name)

	_, err = store.Projects().Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := store.Projects().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	cats, err := store.Projects().Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Elections", "Transparency"}, cats)

	statuses, err := store.Projects().Statuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"active", "archived", "prototype"}, statuses)
}

func TestProjectRepository_UpsertAllRefreshesRows(t *testing.T) {
	store := repotest.NewStore(t)
	ctx := context.Background()
	repotest.SeedProjects(t, store, repotest.SampleProjects()...)

	updated := domain.Project{ID: "P1", Name: "Open Council Data v2", Category: "Transparency", Status: "funded"}
	require.NoError(t, store.Projects().UpsertAll(ctx, []domain.Project{updated}))

	p, err := store.Projects().Get(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, updated, *p)

	n, err := store.Projects().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
