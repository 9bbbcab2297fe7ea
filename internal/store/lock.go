package store

import (
	"fmt"
	"os"
	"syscall"

	"github.com/tommy-ca/gridtrader/internal/apperrors"
)

// AccountLock is an exclusive, non-blocking advisory lock on one
// account's state, taken for the duration of a single invocation so
// two concurrent runs against the same account never race on the
// snapshot or on live exchange orders.
type AccountLock struct {
	f *os.File
}

// Acquire takes an exclusive lock on path (typically
// "<account>.lock" beside the account's database), creating it if
// absent. Returns apperrors.ErrLocked (wrapped) immediately if another
// process already holds it — callers do not queue or retry.
func Acquire(path string) (*AccountLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("store: open lock file %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("store: account busy: %w", apperrors.ErrLocked)
	}
	return &AccountLock{f: f}, nil
}

// Release unlocks and closes the lock file. Safe to call once; the
// lock is also released implicitly if the process exits.
func (l *AccountLock) Release() error {
	if err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("store: release lock: %w", err)
	}
	return l.f.Close()
}
