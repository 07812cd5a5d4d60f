// Package lock provides the storage capability behind seat holds: a registry
// of per-seat exclusive claims with a TTL.  Two implementations exist, an
// in-process one and a Redis-backed one for deployments with several server
// processes.  The coordinator selects one at startup; no client-observable
// behavior differs between them.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable signals that the lock store could not be reached.  The
// coordinator folds it into a per-seat retryable failure rather than failing
// the whole batch.
var ErrUnavailable = errors.New("lock backend unavailable")

// Backend records which client holds the claim on a seat and until when.
//
// Acquire grants a fresh claim when the seat has no live claim, returning
// false on contention.  Refresh extends the claim only when clientID already
// owns it.  Release drops the claim only when clientID owns it and is a no-op
// otherwise.  Snapshot lists the live claims as seat id -> holder client id,
// used to reconcile state after a restart.
type Backend interface {
	Acquire(ctx context.Context, seatID, clientID string, ttl time.Duration) (bool, error)
	Refresh(ctx context.Context, seatID, clientID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, seatID, clientID string) error
	Snapshot(ctx context.Context) (map[string]string, error)
}
