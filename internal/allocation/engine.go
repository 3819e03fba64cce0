// Package allocation enforces the per-user budget and produces the read-side
// summaries and exports.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"budget/internal/domain"
)

// Options configures an Engine. Zero values fall back to the domain defaults.
type Options struct {
	Budget      int64
	MaxProjects int
	Clock       func() time.Time
	Logger      zerolog.Logger
}

// Engine validates and persists allocations.
type Engine struct {
	store       domain.Store
	budget      int64
	maxProjects int
	now         func() time.Time
	logger      zerolog.Logger
}

// NewEngine returns an Engine bound to store.
func NewEngine(store domain.Store, opts Options) *Engine {
	e := &Engine{
		store:       store,
		budget:      opts.Budget,
		maxProjects: opts.MaxProjects,
		now:         opts.Clock,
		logger:      opts.Logger,
	}
	if e.budget <= 0 {
		e.budget = domain.TotalBudget
	}
	if e.maxProjects <= 0 {
		e.maxProjects = domain.DefaultMaxProjects
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Budget returns the per-user ceiling.
func (e *Engine) Budget() int64 { return e.budget }

// Allocate sets the user's amount for projectID. The budget check and the
// write share one transaction; a rejected call leaves stored state unchanged.
func (e *Engine) Allocate(ctx context.Context, userID, projectID string, amount int64) error {
	if amount < 0 {
		return domain.ErrInvalidAmount
	}
	return e.store.WithTx(ctx, func(tx domain.Repositories) error {
		if err := e.requireProject(ctx, tx, projectID); err != nil {
			return err
		}
		others, err := tx.Allocations().TotalExcluding(ctx, userID, projectID)
		if err != nil {
			return err
		}
		if amount > e.budget-others {
			return &domain.BudgetExceededError{
				Budget:    e.budget,
				Requested: amount,
				Remaining: e.budget - others,
			}
		}
		if err := tx.Allocations().Upsert(ctx, userID, projectID, amount, e.now().UTC()); err != nil {
			return err
		}
		e.logger.Debug().Str("user_id", userID).Str("project_id", projectID).Int64("amount", amount).Msg("allocation saved")
		return nil
	})
}

// AllocateAll applies several amounts at once. Either every amount is stored
// or none is; the budget is checked against the combined result.
func (e *Engine) AllocateAll(ctx context.Context, userID string, amounts map[string]int64) error {
	if len(amounts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(amounts))
	for id, amount := range amounts {
		if amount < 0 {
			return domain.ErrInvalidAmount
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return e.store.WithTx(ctx, func(tx domain.Repositories) error {
		current, err := tx.Allocations().ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		var total, requested int64
		for id, amount := range current {
			if _, replaced := amounts[id]; !replaced {
				total += amount
			}
		}
		for _, id := range ids {
			if err := e.requireProject(ctx, tx, id); err != nil {
				return err
			}
		}
		for _, id := range ids {
			if amounts[id] > e.budget-total-requested {
				return &domain.BudgetExceededError{
					Budget:    e.budget,
					Requested: sumAmounts(amounts),
					Remaining: e.budget - total,
				}
			}
			requested += amounts[id]
		}
		at := e.now().UTC()
		for _, id := range ids {
			old, ok := current[id]
			if (ok && old == amounts[id]) || (!ok && amounts[id] == 0) {
				continue
			}
			if err := tx.Allocations().Upsert(ctx, userID, id, amounts[id], at); err != nil {
				return err
			}
		}
		return nil
	})
}

// sumAmounts adds non-negative amounts, saturating at math.MaxInt64.
func sumAmounts(amounts map[string]int64) int64 {
	var sum int64
	for _, amount := range amounts {
		if amount > math.MaxInt64-sum {
			return math.MaxInt64
		}
		sum += amount
	}
	return sum
}

func (e *Engine) requireProject(ctx context.Context, tx domain.Repositories, projectID string) error {
	if _, err := tx.Projects().Get(ctx, projectID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.StorageError{Op: "allocate " + projectID, Err: domain.ErrUnknownProject}
		}
		return err
	}
	return nil
}

// Allocations returns the user's amounts keyed by project id.
func (e *Engine) Allocations(ctx context.Context, userID string) (map[string]int64, error) {
	return e.store.Allocations().ListByUser(ctx, userID)
}

// Summary aggregates the user's allocations.
func (e *Engine) Summary(ctx context.Context, userID string) (domain.Summary, error) {
	var (
		allocs map[string]int64
		cats   []domain.CategoryTotal
	)
	err := e.store.WithTx(ctx, func(tx domain.Repositories) error {
		var err error
		if allocs, err = tx.Allocations().ListByUser(ctx, userID); err != nil {
			return err
		}
		cats, err = tx.Allocations().CategoryBreakdown(ctx, userID)
		return err
	})
	if err != nil {
		return domain.Summary{}, fmt.Errorf("allocation summary: %w", err)
	}

	s := domain.Summary{
		Budget:      e.budget,
		MaxProjects: e.maxProjects,
		ByCategory:  cats,
	}
	for _, amount := range allocs {
		s.TotalAllocated += amount
		if amount > 0 {
			s.ProjectCount++
		}
	}
	s.Remaining = e.budget - s.TotalAllocated
	return s, nil
}
