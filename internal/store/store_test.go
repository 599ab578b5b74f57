package store

import (
	"errors"
	"fmt"
	"testing"
)

// Compile-time checks that the interfaces are importable and usable.
func TestStoreInterfaceExists(t *testing.T) {
	var _ Store
	var _ Repository
	_ = LimitChangeParams{}
	_ = CharityFilter{}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrConcurrentModification,
		ErrDuplicateReference,
		ErrInsufficientLimit,
		ErrInsufficientPoints,
		ErrUserNotFound,
		ErrCharityNotFound,
		ErrCharityRetained,
		ErrVoteNotFound,
		ErrNftNotFound,
	}
	for i, a := range sentinels {
		wrapped := fmt.Errorf("failed to do something: %w", a)
		for j, b := range sentinels {
			if got := errors.Is(wrapped, b); got != (i == j) {
				t.Errorf("errors.Is(%v, %v) = %v", wrapped, b, got)
			}
		}
	}
}
