// Sentinel error tests: every error must be defined, distinct, and
// usable with errors.Is.
package h2undo

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsAreDistinctAndNonNil(t *testing.T) {
	errs := []error{
		ErrCodec,
		ErrScratchIO,
		ErrNotEligible,
		ErrNotStored,
		ErrEmptyLog,
		ErrClosed,
		ErrInvariant,
	}

	for i, err := range errs {
		if err == nil {
			t.Errorf("error at index %d is nil", i)
		}
	}

	seen := make(map[string]int)
	for i, err := range errs {
		msg := err.Error()
		if prev, ok := seen[msg]; ok {
			t.Errorf("error at index %d has the same message as index %d: %q", i, prev, msg)
		}
		seen[msg] = i
	}
}

func TestErrorsWorkWithErrorsIs(t *testing.T) {
	// Mirrors the %w-wrapping pattern used throughout codec.go and
	// scratch.go (e.g. fmt.Errorf("%w: marshal: %w", ErrCodec, err)).
	wrapped := fmt.Errorf("%w: marshal failed", ErrCodec)
	if !errors.Is(wrapped, ErrCodec) {
		t.Error("wrapped codec error should satisfy errors.Is(_, ErrCodec)")
	}
}
