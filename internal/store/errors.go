package store

import (
	"context"
	"errors"
	"fmt"
)

// Failure taxonomy surfaced to callers. Every gateway error wraps exactly
// one of these sentinels, so callers branch with errors.Is.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("concurrent modification detected")
	ErrTimeout  = errors.New("store deadline exceeded")
	ErrBackend  = errors.New("store backend failure")
)

// classify wraps an underlying failure into the taxonomy. Errors already
// carrying a sentinel pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrTimeout) || errors.Is(err, ErrBackend) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrBackend, err)
}
