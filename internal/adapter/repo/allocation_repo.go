package repo

import (
	"context"
	"time"

	"budget/internal/domain"
	"budget/internal/infra"
	"budget/internal/sqlinline"
)

// AllocationRepository implements domain.AllocationRepository.
type AllocationRepository struct {
	sql infra.SQLExecutor
}

// NewAllocationRepository creates a new AllocationRepository.
func NewAllocationRepository(sql infra.SQLExecutor) *AllocationRepository {
	return &AllocationRepository{sql: sql}
}

type allocationRow struct {
	ProjectID string `db:"project_id"`
	Amount    int64  `db:"amount"`
}

// ListByUser returns the user's allocations keyed by project id.
func (r *AllocationRepository) ListByUser(ctx context.Context, userID string) (map[string]int64, error) {
	var rows []allocationRow
	if err := r.sql.Select(ctx, &rows, sqlinline.QListAllocationsByUser, userID); err != nil {
		return nil, domain.NewStorageError("list allocations", err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ProjectID] = row.Amount
	}
	return out, nil
}

// Upsert writes the amount for (user, project), replacing any previous value.
func (r *AllocationRepository) Upsert(ctx context.Context, userID, projectID string, amount int64, at time.Time) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertAllocation, userID, projectID, amount, at.UTC())
	return domain.NewStorageError("upsert allocation", err)
}

// TotalExcluding sums the user's allocations other than projectID.
func (r *AllocationRepository) TotalExcluding(ctx context.Context, userID, projectID string) (int64, error) {
	var total int64
	if err := r.sql.Get(ctx, &total, sqlinline.QSumAllocationsExcluding, userID, projectID); err != nil {
		return 0, domain.NewStorageError("sum allocations", err)
	}
	return total, nil
}

// CategoryBreakdown aggregates the user's allocations by project category.
func (r *AllocationRepository) CategoryBreakdown(ctx context.Context, userID string) ([]domain.CategoryTotal, error) {
	out := []domain.CategoryTotal{}
	if err := r.sql.Select(ctx, &out, sqlinline.QAllocationsByCategory, userID); err != nil {
		return nil, domain.NewStorageError("category breakdown", err)
	}
	return out, nil
}

// ExportRows joins the user's allocations with project details.
func (r *AllocationRepository) ExportRows(ctx context.Context, userID string) ([]domain.AllocationRow, error) {
	out := []domain.AllocationRow{}
	if err := r.sql.Select(ctx, &out, sqlinline.QExportAllocations, userID); err != nil {
		return nil, domain.NewStorageError("export allocations", err)
	}
	return out, nil
}
