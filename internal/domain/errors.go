package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrStorage          = errors.New("storage failure")
	ErrUnknownProject   = errors.New("unknown project")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrNotAllowed       = errors.New("email not allowed")
	ErrRateLimited      = errors.New("too many verification requests")
	ErrInvalidToken     = errors.New("invalid verification token")
	ErrTokenExpired     = errors.New("verification token expired")
	ErrTokenAlreadyUsed = errors.New("verification token already used")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrBudgetExceeded   = errors.New("budget exceeded")
)

// StorageError reports an I/O or constraint failure in the data store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError wraps err as a StorageError. Nil, not-found and already
// wrapped errors pass through untouched.
func NewStorageError(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// BudgetExceededError is returned when an allocation would push a user's
// total past the budget.
type BudgetExceededError struct {
	Budget    int64
	Requested int64
	Remaining int64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: requested %d, remaining %d of %d", e.Requested, e.Remaining, e.Budget)
}

func (e *BudgetExceededError) Is(target error) bool { return target == ErrBudgetExceeded }
