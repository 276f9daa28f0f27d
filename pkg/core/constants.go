package core

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrOrderExists          = errors.New("order exists")
	ErrNonexistentOrder     = errors.New("nonexistent order")
	ErrReplaceTargetExists  = errors.New("replace target exists")
	ErrInsufficientVolume   = errors.New("insufficient volume")
	ErrTradeMismatch        = errors.New("trade mismatch")
	ErrUnsupportedMessage   = errors.New("unsupported message")
	ErrConsistencyViolation = errors.New("consistency violation")
)

// Invariant names a book or ledger rule an event would break.
type Invariant string

// Invariants
const (
	InvariantUniqueOrderRef    Invariant = "unique-order-ref"
	InvariantLiveOrder         Invariant = "live-order"
	InvariantReplaceTarget     Invariant = "replace-target-absent"
	InvariantPositiveVolume    Invariant = "positive-volume"
	InvariantNonNegativeVolume Invariant = "non-negative-volume"
	InvariantTradeAgreement    Invariant = "trade-agreement"
)

// ViolationError is returned when an event would leave the book or the ledger
// inconsistent. The state is left exactly as it was before the event.
type ViolationError struct {
	Invariant Invariant
	// Key is the order reference number or match number involved.
	Key    uint64
	Err    error
	Detail string
}

func (e *ViolationError) Error() string {
	msg := fmt.Sprintf("%v: %s (key %d): %v", ErrConsistencyViolation, e.Invariant, e.Key, e.Err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ViolationError) Unwrap() error {
	return e.Err
}

// Is makes every ViolationError match ErrConsistencyViolation.
func (e *ViolationError) Is(target error) bool {
	return target == ErrConsistencyViolation
}

func violation(inv Invariant, key uint64, err error, format string, args ...any) *ViolationError {
	v := &ViolationError{Invariant: inv, Key: key, Err: err}
	if format != "" {
		v.Detail = fmt.Sprintf(format, args...)
	}
	return v
}
