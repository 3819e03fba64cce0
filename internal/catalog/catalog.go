// Package catalog loads the project catalogue from its delimited source file.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"budget/internal/domain"
)

// RequiredColumns lists the header columns every project file must carry.
var RequiredColumns = []string{"project_id", "name", "description", "category", "status"}

// Result reports how a load went.
type Result struct {
	Loaded  int
	Skipped int
}

// SkippedRow describes one rejected input row.
type SkippedRow struct {
	Line   int
	Reason string
}

// Parse reads projects from r. Rows with a missing project_id, a short
// field count, a malformed quote or a duplicate id are skipped and returned
// alongside the accepted projects. A header without the required columns is
// an error.
func Parse(r io.Reader) ([]domain.Project, []SkippedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("catalog: empty project file")
		}
		return nil, nil, fmt.Errorf("catalog: read header: %w", err)
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, nil, err
	}

	var (
		projects []domain.Project
		skipped  []SkippedRow
		seen     = map[string]struct{}{}
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped = append(skipped, SkippedRow{Line: perr.StartLine, Reason: perr.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("catalog: read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) < len(header) {
			skipped = append(skipped, SkippedRow{Line: line, Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(record))})
			continue
		}
		p := domain.Project{
			ID:          strings.TrimSpace(record[index["project_id"]]),
			Name:        strings.TrimSpace(record[index["name"]]),
			Description: strings.TrimSpace(record[index["description"]]),
			Category:    strings.TrimSpace(record[index["category"]]),
			Status:      strings.TrimSpace(record[index["status"]]),
		}
		if p.ID == "" {
			skipped = append(skipped, SkippedRow{Line: line, Reason: "missing project_id"})
			continue
		}
		if _, dup := seen[p.ID]; dup {
			skipped = append(skipped, SkippedRow{Line: line, Reason: "duplicate project_id " + p.ID})
			continue
		}
		seen[p.ID] = struct{}{}
		projects = append(projects, p)
	}
	return projects, skipped, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if _, ok := index[col]; !ok {
			index[col] = i
		}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("catalog: missing required columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

// Load parses r and upserts the accepted projects in one transaction.
// Skipped rows are logged individually and counted in the result.
func Load(ctx context.Context, r io.Reader, store domain.Store, logger zerolog.Logger) (Result, error) {
	projects, skipped, err := Parse(r)
	if err != nil {
		return Result{}, err
	}
	for _, s := range skipped {
		logger.Warn().Int("line", s.Line).Str("reason", s.Reason).Msg("skipping project row")
	}
	err = store.WithTx(ctx, func(tx domain.Repositories) error {
		return tx.Projects().UpsertAll(ctx, projects)
	})
	if err != nil {
		return Result{}, fmt.Errorf("catalog: store projects: %w", err)
	}
	res := Result{Loaded: len(projects), Skipped: len(skipped)}
	logger.Info().Int("loaded", res.Loaded).Int("skipped", res.Skipped).Msg("project catalogue loaded")
	return res, nil
}

// LoadFile opens path and calls Load.
func LoadFile(ctx context.Context, path string, store domain.Store, logger zerolog.Logger) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(ctx, f, store, logger.With().Str("file", path).Logger())
}
