package workflow

import (
	"errors"
	"fmt"
)

// Business-rule violations. Surfaced to the caller verbatim and never retried
// internally; they describe a request that cannot succeed as stated.
var (
	ErrInvalidAmount            = errors.New("invalid payment amount")
	ErrPaymentAccountRequired   = errors.New("payment account required")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrInsufficientCredit       = errors.New("insufficient supplier credit")
	ErrPurchaseAlreadyCommitted = errors.New("purchase already reconciled")
)

// ReconciliationError wraps ledger-adapter failures that are not one of the
// typed business errors above: driver errors, lock conflicts, timeouts. A
// caller may retry these; the engine itself does not loop.
type ReconciliationError struct {
	Op  string
	Err error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation failed at %s: %v", e.Op, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// IsBusinessError reports whether err is one of the typed business-rule
// violations, as opposed to a wrapped adapter failure.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrPaymentAccountRequired) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInsufficientCredit) ||
		errors.Is(err, ErrPurchaseAlreadyCommitted)
}

// wrapReconciliation passes typed business errors through untouched and wraps
// everything else.
func wrapReconciliation(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsBusinessError(err) {
		return err
	}
	return &ReconciliationError{Op: op, Err: err}
}
