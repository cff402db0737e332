package orders

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("order not found")
	ErrAlreadyExists         = errors.New("order already exists")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrUpstreamTimeout       = errors.New("upstream call timed out")
)

// ValidationError reports a malformed order payload. It indicates a caller
// bug, never a transient condition, so it is not retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid order: " + e.Reason }

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConsistencyError reports that a compensating release failed after a
// reservation had already landed in the inventory service. The reserved
// quantities are leaked until reconciled out of band, so this is surfaced
// distinctly instead of being folded into the original failure.
type ConsistencyError struct {
	OrderID string
	Err     error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inventory leak for order %s: compensating release failed: %v", e.OrderID, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }
