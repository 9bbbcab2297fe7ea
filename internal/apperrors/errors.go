// Package apperrors defines the sentinel error taxonomy shared by every
// layer of the grid trader. Core logic distinguishes recoverable,
// per-rung errors from fatal ones with errors.Is/errors.As; nothing in
// this package carries retry semantics of its own.
package apperrors

import (
	"errors"
)

// Sentinel kinds. Wrap these with fmt.Errorf("...: %w", ErrX) at the
// call site to attach context; callers match with errors.Is.
var (
	// ErrNotEnoughCoin is returned by an exchange port when the account
	// lacks the balance to place an order. Recoverable: the rung is
	// skipped and the ladder proceeds partial.
	ErrNotEnoughCoin = errors.New("not enough coin")

	// ErrDustTrade is returned when an order's notional is below the
	// venue's minimum tradable lot. Recoverable, same treatment as
	// ErrNotEnoughCoin.
	ErrDustTrade = errors.New("dust trade")

	// ErrInvalidConfig marks a missing section/key, malformed decimal,
	// or zero numberOfOrders. Fatal.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrTransport marks a network/HTTP/decoding failure from the
	// exchange port. Fatal to the current invocation.
	ErrTransport = errors.New("transport error")

	// ErrSnapshotMissing is returned by the store when monitor runs
	// without a prior init. Fatal.
	ErrSnapshotMissing = errors.New("snapshot missing, run init first")

	// ErrInvariantViolation marks an internal consistency failure
	// (e.g. orderIds longer than rungs). Fatal, reported to admin.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrLocked is returned when the persistence lock for an account
	// is already held by another invocation.
	ErrLocked = errors.New("account is locked by another invocation")

	// ErrInvalidArgument marks a command-line argument that failed
	// input validation before reaching the dispatcher.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Recoverable reports whether err represents a per-rung failure that
// grid.PlaceOrders should absorb rather than propagate.
func Recoverable(err error) bool {
	return errors.Is(err, ErrNotEnoughCoin) || errors.Is(err, ErrDustTrade)
}

// Fatal wraps err to mark it as something the dispatcher must abort
// the invocation for, formatted with the given stage name.
func Fatal(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: stage, err: err}
}

// stageError is the error Fatal returns: it renders as "stage: err"
// and keeps the stage name so Stage can recover it whole.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// Stage extracts the leading "stage: " segment Fatal attaches, e.g.
// "poll: take-profit sell BTC-ETH" out of a fully wrapped error. It
// returns the empty string if err was never passed through Fatal, so
// callers building an alert from an arbitrary error degrade cleanly.
func Stage(err error) string {
	if err == nil {
		return ""
	}
	var se *stageError
	if !errors.As(err, &se) {
		return ""
	}
	return se.stage
}
