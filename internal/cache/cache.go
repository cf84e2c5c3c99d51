// Package cache holds the client-side state for one signed-in user. Each store
// keeps the rows it last fetched in memory and in a JSON mirror on disk, talks
// to the service through a remote API, and records the last failure in Err.
package cache

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrNoHousehold       = errors.New("no household selected")
	ErrInvalidInviteCode = errors.New("invalid invite code")
	ErrUnknownChore      = errors.New("chore not in cache")
	ErrInvalidRange      = errors.New("start date is after end date")
	ErrRangeTooLong      = errors.New("date range too long")
	ErrInvalidExpense    = errors.New("expense needs a positive amount and at least one member")
	ErrNotSignedIn       = errors.New("not signed in")
)

// Identity reports the signed-in user, 0 when signed out.
type Identity interface {
	UserID() int64
}

// base carries the lock, last error and mirror shared by every store.
type base struct {
	mu     sync.RWMutex
	err    string
	mirror *Mirror
	logger *slog.Logger
}

func newBase(mirror *Mirror, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{mirror: mirror, logger: logger}
}

// Err returns the message of the last failed operation, or "" after a success.
func (b *base) Err() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// fail records err for op and returns it. Callers must not hold mu.
func (b *base) fail(op string, err error, attrs ...any) error {
	b.logger.Error(op, append(attrs, "error", err)...)
	b.mu.Lock()
	b.err = err.Error()
	b.mu.Unlock()
	return err
}

// persist writes v to the mirror. Callers hold mu. A write failure is logged
// and does not fail the operation.
func (b *base) persist(v any) {
	if err := b.mirror.Save(v); err != nil {
		b.logger.Warn("save mirror", "path", b.mirror.Path(), "error", err)
	}
}
