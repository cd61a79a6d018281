package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the caller lacks the role an operation requires.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidPartner is returned when a partner id is not registered.
	ErrInvalidPartner = errors.New("invalid partner")

	// ErrInvalidParameter is returned for zero amounts, empty addresses and non-future timestamps.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrIndexOutOfRange is returned when a task id or partner index is beyond bounds.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidState is returned when a task is not in the state an operation requires.
	ErrInvalidState = errors.New("invalid task state")

	// ErrTaskExpired is returned when funds arrive after the task deadline.
	ErrTaskExpired = errors.New("task expired")

	// ErrTimelockNotReached is returned when a burn is attempted before the timelock ends.
	ErrTimelockNotReached = errors.New("timelock not reached")

	// ErrDepositNotFound is returned when the oracle does not attest the deposit.
	ErrDepositNotFound = errors.New("deposit not found")

	// ErrAmountMismatch is returned when the reported amount differs from the task amount.
	ErrAmountMismatch = errors.New("amount mismatch")

	// ErrReentrantCall is returned when an operation is invoked from within another operation.
	ErrReentrantCall = errors.New("reentrant call")

	// ErrLedgerNotFound is returned by a store that holds no snapshot yet.
	ErrLedgerNotFound = errors.New("ledger not found")
)

// ParameterError describes a single rejected input.
type ParameterError struct {
	Field  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", ErrInvalidParameter, e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidParameter).
func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

var reasons = []struct {
	err    error
	reason string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrInvalidPartner, "invalid_partner"},
	{ErrInvalidParameter, "invalid_parameter"},
	{ErrIndexOutOfRange, "index_out_of_range"},
	{ErrInvalidState, "invalid_state"},
	{ErrTaskExpired, "task_expired"},
	{ErrTimelockNotReached, "timelock_not_reached"},
	{ErrDepositNotFound, "deposit_not_found"},
	{ErrAmountMismatch, "amount_mismatch"},
	{ErrReentrantCall, "reentrant_call"},
	{ErrLedgerNotFound, "ledger_not_found"},
}

// Reason maps an error to a stable snake_case label.
// Errors outside the domain vocabulary map to "internal".
func Reason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "internal"
}
