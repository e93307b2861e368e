package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/diewo77/fairscanner/internal/validation"
)

var (
	ErrNoActiveOrder = errors.New("no active order")
	ErrBusy          = errors.New("another cart operation is in progress")
	ErrEmptyOrder    = errors.New("order has no items")
)

// ValidationError is returned when input is rejected before any write.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f, reason := range e.Violations {
		fields = append(fields, f+": "+reason)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

func checkViolations(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}
