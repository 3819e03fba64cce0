package allocation

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"budget/internal/domain"
	"budget/pkg/zip"
)

// ExportHeader is the first line of the allocation export.
var ExportHeader = []string{"project_id", "name", "category", "status", "amount"}

// CategoryHeader is the first line of the per-category export.
var CategoryHeader = []string{"category", "amount", "projects"}

// Export writes the user's allocations as CSV.
func (e *Engine) Export(ctx context.Context, userID string, w io.Writer) error {
	rows, err := e.store.Allocations().ExportRows(ctx, userID)
	if err != nil {
		return fmt.Errorf("export allocations: %w", err)
	}
	return writeAllocations(w, rows)
}

// ExportBundle packages allocations.csv and categories.csv into a zip archive.
func (e *Engine) ExportBundle(ctx context.Context, userID string) ([]byte, error) {
	var (
		rows []domain.AllocationRow
		cats []domain.CategoryTotal
	)
	err := e.store.WithTx(ctx, func(tx domain.Repositories) error {
		var err error
		if rows, err = tx.Allocations().ExportRows(ctx, userID); err != nil {
			return err
		}
		cats, err = tx.Allocations().CategoryBreakdown(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("export bundle: %w", err)
	}

	var allocs, categories bytes.Buffer
	if err := writeAllocations(&allocs, rows); err != nil {
		return nil, err
	}
	if err := writeCategories(&categories, cats); err != nil {
		return nil, err
	}
	now := e.now().UTC()
	return zip.Archive([]zip.File{
		{Name: "allocations.csv", Data: allocs.Bytes(), Modified: now},
		{Name: "categories.csv", Data: categories.Bytes(), Modified: now},
	})
}

func writeAllocations(w io.Writer, rows []domain.AllocationRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.ProjectID, r.Name, r.Category, r.Status, strconv.FormatInt(r.Amount, 10)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeCategories(w io.Writer, cats []domain.CategoryTotal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CategoryHeader); err != nil {
		return err
	}
	for _, c := range cats {
		if err := cw.Write([]string{c.Category, strconv.FormatInt(c.Amount, 10), strconv.Itoa(c.Projects)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
