// Package hold implements the seat-hold coordination core: granting and
// refreshing time-bounded exclusive holds, releasing them, converting them
// into sales exactly once per request id, and reclaiming expired ones.
package hold

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/concert-seat-selection/internal/broadcast"
	"github.com/iliyamo/concert-seat-selection/internal/catalog"
	"github.com/iliyamo/concert-seat-selection/internal/lock"
	"github.com/iliyamo/concert-seat-selection/internal/model"
)

// Store is the durable side of accepted mutations.  A nil Store is valid and
// leaves the service memory-only.
type Store interface {
	SaveSeat(ctx context.Context, seat model.Seat) error
	SavePurchase(ctx context.Context, rec model.ConfirmationRecord, prices map[string]int) error
}

// Result is the per-seat partition of one acquireOrRefresh call.  ExpireAt is
// shared by every seat in Held and Refreshed: they were granted under one
// decision instant.
type Result struct {
	Held      []string   `json:"held"`
	Refreshed []string   `json:"refreshed"`
	Conflicts []string   `json:"conflicts"`
	ExpireAt  *time.Time `json:"expire_at"`
}

// Coordinator grants, refreshes and releases per-seat holds.  All seat state
// transitions go through the catalog's per-seat exclusive sections, so the
// five mutating pathways never interleave on one seat.
type Coordinator struct {
	catalog *catalog.Catalog
	locks   lock.Backend
	events  *broadcast.Broadcaster
	store   Store
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithStore attaches a durable store.
func WithStore(s Store) Option {
	return func(c *Coordinator) { c.store = s }
}

// NewCoordinator builds a coordinator with the given hold TTL.
func NewCoordinator(cat *catalog.Catalog, locks lock.Backend, events *broadcast.Broadcaster, ttl time.Duration, opts ...Option) *Coordinator {
	c := &Coordinator{catalog: cat, locks: locks, events: events, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the configured hold lifetime.
func (c *Coordinator) TTL() time.Duration { return c.ttl }

// AcquireOrRefresh processes each seat id independently; a multi-seat claim
// is expected to partially fail and carries no cross-seat atomicity.  Newly
// granted and refreshed holds share one expiry.  Contention, unknown seat
// ids and per-seat lock timeouts all land in Conflicts; nothing here is an
// error at the batch level.
func (c *Coordinator) AcquireOrRefresh(ctx context.Context, seatIDs []string, clientID string) Result {
	res := Result{Held: []string{}, Refreshed: []string{}, Conflicts: []string{}}
	if len(seatIDs) == 0 {
		return res
	}
	expireAt := c.now().Add(c.ttl)
	for _, seatID := range dedupe(seatIDs) {
		switch c.acquireOne(ctx, seatID, clientID, expireAt) {
		case outcomeHeld:
			res.Held = append(res.Held, seatID)
		case outcomeRefreshed:
			res.Refreshed = append(res.Refreshed, seatID)
		default:
			res.Conflicts = append(res.Conflicts, seatID)
		}
	}
	if len(res.Held) > 0 || len(res.Refreshed) > 0 {
		res.ExpireAt = &expireAt
	}
	return res
}

type acquireOutcome int

const (
	outcomeConflict acquireOutcome = iota
	outcomeHeld
	outcomeRefreshed
)

func (c *Coordinator) acquireOne(ctx context.Context, seatID, clientID string, expireAt time.Time) acquireOutcome {
	outcome := outcomeConflict
	err := c.catalog.Mutate(ctx, seatID, func(seat *model.Seat) error {
		now := c.now()
		switch {
		case seat.Status == model.StatusSold || seat.Status == model.StatusBlocked:
			return nil
		case seat.HeldBy(clientID, now):
			ok, err := c.locks.Refresh(ctx, seatID, clientID, expireAt.Sub(now))
			if err != nil || !ok {
				return err
			}
			updated := *seat
			updated.Hold = &model.HoldInfo{ClientID: clientID, ExpiresAt: expireAt}
			updated.UpdatedAt = now
			if err := c.saveSeat(ctx, updated); err != nil {
				return err
			}
			*seat = updated
			outcome = outcomeRefreshed
			return nil
		case seat.Status == model.StatusHold && !seat.HoldExpired(now):
			return nil // live hold owned by someone else
		default:
			// AVAILABLE, or a hold whose expiry has elapsed: logically free.
			if seat.Hold != nil {
				_ = c.locks.Release(ctx, seatID, seat.Hold.ClientID)
			}
			ok, err := c.locks.Acquire(ctx, seatID, clientID, expireAt.Sub(now))
			if err != nil || !ok {
				return err
			}
			from := seat.Status
			updated := *seat
			updated.Status = model.StatusHold
			updated.Hold = &model.HoldInfo{ClientID: clientID, ExpiresAt: expireAt}
			updated.UpdatedAt = now
			if err := c.saveSeat(ctx, updated); err != nil {
				_ = c.locks.Release(ctx, seatID, clientID)
				return err
			}
			*seat = updated
			c.events.Publish(model.NewSeatUpdate(seatID, from, model.StatusHold, clientID, now))
			outcome = outcomeHeld
			return nil
		}
	})
	if err != nil {
		c.logSeatError("acquire", seatID, err)
		return outcomeConflict
	}
	return outcome
}

// Release transitions the targeted seats back to AVAILABLE when they are held
// by clientID.  A nil seatIDs targets every seat the client currently holds.
// Targets not held by the caller are skipped silently: release is idempotent
// and never errors on a no-op.
func (c *Coordinator) Release(ctx context.Context, seatIDs []string, clientID string) []string {
	targets := seatIDs
	if targets == nil {
		targets = c.catalog.HeldBy(ctx, clientID, c.now())
	} else {
		targets = dedupe(targets)
	}
	released := []string{}
	for _, seatID := range targets {
		err := c.catalog.Mutate(ctx, seatID, func(seat *model.Seat) error {
			now := c.now()
			if !seat.HeldBy(clientID, now) {
				return nil
			}
			updated := *seat
			updated.Status = model.StatusAvailable
			updated.Hold = nil
			updated.UpdatedAt = now
			if err := c.saveSeat(ctx, updated); err != nil {
				return err
			}
			_ = c.locks.Release(ctx, seatID, clientID)
			*seat = updated
			c.events.Publish(model.NewSeatUpdate(seatID, model.StatusHold, model.StatusAvailable, clientID, now))
			released = append(released, seatID)
			return nil
		})
		if err != nil && !errors.Is(err, catalog.ErrSeatNotFound) {
			c.logSeatError("release", seatID, err)
		}
	}
	return released
}

// reapOne reclaims one seat if it is still in HOLD with an elapsed expiry at
// the moment the exclusive section is entered.  The re-check closes the race
// between the reaper's scan and a concurrent refresh or confirmation.
func (c *Coordinator) reapOne(ctx context.Context, seatID string) (bool, error) {
	reclaimed := false
	err := c.catalog.Mutate(ctx, seatID, func(seat *model.Seat) error {
		now := c.now()
		if seat.Status != model.StatusHold || !seat.HoldExpired(now) {
			return nil
		}
		holder := seat.Hold.ClientID
		updated := *seat
		updated.Status = model.StatusAvailable
		updated.Hold = nil
		updated.UpdatedAt = now
		if err := c.saveSeat(ctx, updated); err != nil {
			return err
		}
		_ = c.locks.Release(ctx, seatID, holder)
		*seat = updated
		c.events.Publish(model.NewSeatUpdate(seatID, model.StatusHold, model.StatusAvailable, model.BySystem, now))
		reclaimed = true
		return nil
	})
	return reclaimed, err
}

func (c *Coordinator) saveSeat(ctx context.Context, seat model.Seat) error {
	if c.store == nil {
		return nil
	}
	return c.store.SaveSeat(ctx, seat)
}

func (c *Coordinator) logSeatError(op, seatID string, err error) {
	if errors.Is(err, catalog.ErrSeatNotFound) {
		return // unknown ids are reported through the result partition
	}
	log.Printf("hold: %s %s: %v", op, seatID, err)
}

// dedupe preserves first-occurrence order while removing repeated seat ids.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
