package allocation_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/adapter/repo/repotest"
	"budget/internal/allocation"
	"budget/internal/domain"
)

func newEngine(t *testing.T) (*allocation.Engine, domain.Store, string) {
	t.Helper()
	store := repotest.NewStore(t)
	repotest.SeedProjects(t, store, repotest.SampleProjects()...)
	user, err := store.Users().Create(context.Background(), "a@b.com")
	require.NoError(t, err)
	clock := func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return allocation.NewEngine(store, allocation.Options{Clock: clock, Logger: zerolog.Nop()}), store, user.ID
}

func TestAllocate_BudgetExceededLeavesStateUnchanged(t *testing.T) {
	engine, _, userID := newEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Allocate(ctx, userID, "P1", 2_000_000))

	err := engine.Allocate(ctx, userID, "P2", 3_500_000)
	require.ErrorIs(t, err, domain.ErrBudgetExceeded)
	var be *domain.BudgetExceededError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, int64(3_000_000), be.Remaining)
	assert.Equal(t, int64(3_500_000), be.Requested)

	got, err := engine.Allocations(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"P1": 2_000_000}, got)
}

func TestAllocate_ExactBudgetAllowed(t *testing.T) {
	engine, _, userID := newEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Allocate(ctx, userID, "P1", 2_000_000))
	require.NoError(t, engine.Allocate(ctx, userID, "P2", 3_000_000))
	require.ErrorIs(t, engine.Allocate(ctx, userID, "P3", 1), domain.ErrBudgetExceeded)

	// Replacing an existing amount only counts the new value.
	require.NoError(t, engine.Allocate(ctx, userID, "P1", 1_000_000))
	require.NoError(t, engine.Allocate(ctx, userID, "P3", 1_000_000))
}

func TestAllocate_Idempotent(t *testing.T) {
	engine, _, userID := newEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Allocate(ctx, userID, "P1", 750_000))
	first, err := engine.Allocations(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, engine.Allocate(ctx, userID, "P1", 750_000))
	second, err := engine.Allocations(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAllocate_InvalidInput(t *testing.T) {
	engine, _, userID := newEngine(t)
	ctx := context.Background()

	assert.ErrorIs(t, engine.Allocate(ctx, userID, "P1", -1), domain.ErrInvalidAmount)

	err := engine.Allocate(ctx, userID, "NOPE", 10)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, domain.ErrUnknownProject)
}

func TestAllocateAll(t *testing.T) {
	engine, _, userID := newEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Allocate(ctx, userID, "P1", 1_000_000))

	err := engine.AllocateAll(ctx, userID, map[string]int64{"P2": 2_000_000, "P3": 2_500_000})
	require.ErrorIs(t, err, domain.ErrBudgetExceeded)
	got, err := engine.Allocations(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"P1": 1_000_000}, got)

	// Lowering P1 in the same batch frees room for the others.
	require.NoError(t, engine.AllocateAll(ctx, userID, map[string]int64{"P1": 500_000, "P2": 2_000_000, "P3": 2_500_000}))
	got, err = engine.Allocations(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"P1": 500_000, "P2": 2_000_000, "P3": 2_500_000}, got)

	assert.ErrorIs(t, engine.AllocateAll(ctx, userID, map[string]int64{"P4": -5}), domain.ErrInvalidAmount)
	assert.ErrorIs(t, engine.AllocateAll(ctx, userID, map[string]int64{"P4": 0, "ZZ": 0}), domain.ErrUnknownProject)
}

func TestAllocate_HugeAmountsRejected(t *testing.T) {
	engine, _, userID := newEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Allocate(ctx, userID, "P1", 1))

	err := engine.Allocate(ctx, userID, "P2", math.MaxInt64)
	require.ErrorIs(t, err, domain.ErrBudgetExceeded)
	var be *domain.BudgetExceededError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, int64(4_999_999), be.Remaining)

	err = engine.AllocateAll(ctx, userID, map[string]int64{"P3": math.MaxInt64, "P4": 2})
	require.ErrorIs(t, err, domain.ErrBudgetExceeded)
	require.ErrorAs(t, err, &be)
	assert.Equal(t, int64(math.MaxInt64), be.Requested)

	err = engine.AllocateAll(ctx, userID, map[string]int64{"P3": math.MaxInt64 - 1, "P4": math.MaxInt64 - 1})
	require.ErrorIs(t, err, domain.ErrBudgetExceeded)

	got, err := engine.Allocations(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"P1": 1}, got)

	summary, err := engine.Summary(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalAllocated)
	assert.Equal(t, int64(4_999_999), summary.Remaining)
}

func TestSummary(t *testing.T) {
	engine, store, userID := newEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Allocate(ctx, userID, "P1", 1_000_000))
	require.NoError(t, engine.Allocate(ctx, userID, "P3", 500_000))
	require.NoError(t, engine.Allocate(ctx, userID, "P2", 250_000))
	require.NoError(t, engine.Allocate(ctx, userID, "P4", 0))

	s, err := engine.Summary(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.TotalBudget, s.Budget)
	assert.Equal(t, int64(1_750_000), s.TotalAllocated)
	assert.Equal(t, int64(3_250_000), s.Remaining)
	assert.Equal(t, 3, s.ProjectCount)
	assert.Equal(t, domain.DefaultMaxProjects, s.MaxProjects)
	assert.Equal(t, []domain.CategoryTotal{
		{Category: "Elections", Amount: 250_000, Projects: 1},
		{Category: "Transparency", Amount: 1_500_000, Projects: 2},
	}, s.ByCategory)

	// Another user's allocations are invisible.
	other, err := store.Users().Create(ctx, "c@d.com")
	require.NoError(t, err)
	s, err = engine.Summary(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.TotalAllocated)
	assert.Equal(t, domain.TotalBudget, s.Remaining)
	assert.Empty(t, s.ByCategory)
}

func TestExport(t *testing.T) {
	engine, _, userID := newEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Allocate(ctx, userID, "P2", 1_000))
	require.NoError(t, engine.Allocate(ctx, userID, "P1", 2_000))

	var buf bytes.Buffer
	require.NoError(t, engine.Export(ctx, userID, &buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"project_id", "name", "category", "status", "amount"},
		{"P1", "Open Council Data", "Transparency", "active", "2000"},
		{"P2", "Vote Finder", "Elections", "active", "1000"},
	}, records)
}

func TestExportBundle(t *testing.T) {
	engine, _, userID := newEngine(t)
	ctx := context.Background()
	require.NoError(t, engine.Allocate(ctx, userID, "P1", 2_000))

	data, err := engine.ExportBundle(ctx, userID)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = string(b)
	}
	assert.Equal(t, "project_id,name,category,status,amount\nP1,Open Council Data,Transparency,active,2000\n", contents["allocations.csv"])
	assert.Equal(t, "category,amount,projects\nTransparency,2000,1\n", contents["categories.csv"])
}
