// Package catalog holds the authoritative in-memory seat arena.  Every
// mutating pathway (hold, release, confirm, admin update, reap) enters a
// seat's exclusive section through Mutate, which serializes all writers on
// that seat while leaving distinct seats fully parallel.
package catalog

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/iliyamo/concert-seat-selection/internal/model"
)

var (
	// ErrSeatNotFound is returned for seat ids absent from the catalog.
	ErrSeatNotFound = errors.New("seat not found")
	// ErrLockTimeout is returned when a seat's exclusive section could not
	// be entered within the bounded wait.  Callers treat it as a retryable
	// per-seat failure, never as failure of a whole batch.
	ErrLockTimeout = errors.New("timed out waiting for seat lock")
)

// defaultLockWait bounds how long a caller may block on one seat's section.
const defaultLockWait = 2 * time.Second

type entry struct {
	gate chan struct{} // 1-slot token; holding the token = owning the section
	seat model.Seat
}

// Catalog is the arena of seats addressed by id.  The seat set is fixed at
// load time; only status, tier, price and hold mutate afterwards.
type Catalog struct {
	seats    map[string]*entry
	lockWait time.Duration
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLockWait overrides the bounded wait for entering a seat's section.
func WithLockWait(d time.Duration) Option {
	return func(c *Catalog) {
		if d > 0 {
			c.lockWait = d
		}
	}
}

// New builds a catalog over the given seats.  Later duplicates of a seat id
// replace earlier ones.
func New(seats []model.Seat, opts ...Option) *Catalog {
	c := &Catalog{seats: make(map[string]*entry, len(seats)), lockWait: defaultLockWait}
	for _, s := range seats {
		e := &entry{gate: make(chan struct{}, 1), seat: s}
		e.gate <- struct{}{}
		c.seats[s.SeatID] = e
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Mutate runs fn inside the exclusive section of one seat.  fn receives the
// live seat record and may modify its mutable fields; an error from fn leaves
// any changes it already made in place (fn is expected to mutate only on
// success).  The wait for the section is bounded by the catalog's lock wait
// and by ctx.
func (c *Catalog) Mutate(ctx context.Context, seatID string, fn func(seat *model.Seat) error) error {
	e, ok := c.seats[seatID]
	if !ok {
		return ErrSeatNotFound
	}
	timer := time.NewTimer(c.lockWait)
	defer timer.Stop()
	select {
	case <-e.gate:
	case <-timer.C:
		return ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { e.gate <- struct{}{} }()
	return fn(&e.seat)
}

// Get returns a reader-normalized copy of one seat.
func (c *Catalog) Get(ctx context.Context, seatID string, now time.Time) (model.Seat, error) {
	var out model.Seat
	err := c.Mutate(ctx, seatID, func(seat *model.Seat) error {
		out = seat.View(now)
		return nil
	})
	return out, err
}

// Floor returns the seats of one floor ordered by their position in the
// ingested chart, normalized for readers.
func (c *Catalog) Floor(ctx context.Context, floor int, now time.Time) []model.Seat {
	out := make([]model.Seat, 0)
	for id, e := range c.seats {
		if e.seat.Floor != floor {
			continue
		}
		if s, err := c.Get(ctx, id, now); err == nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExcelRow != out[j].ExcelRow {
			return out[i].ExcelRow < out[j].ExcelRow
		}
		return out[i].ExcelCol < out[j].ExcelCol
	})
	return out
}

// All returns every seat normalized for readers, in unspecified order.
func (c *Catalog) All(ctx context.Context, now time.Time) []model.Seat {
	out := make([]model.Seat, 0, len(c.seats))
	for id := range c.seats {
		if s, err := c.Get(ctx, id, now); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// HeldBy lists the seat ids currently held by clientID.  Used by release
// when the caller omits an explicit seat list.
func (c *Catalog) HeldBy(ctx context.Context, clientID string, now time.Time) []string {
	var ids []string
	for id := range c.seats {
		_ = c.Mutate(ctx, id, func(seat *model.Seat) error {
			if seat.HeldBy(clientID, now) {
				ids = append(ids, seat.SeatID)
			}
			return nil
		})
	}
	sort.Strings(ids)
	return ids
}

// ExpiredHolds lists seats whose hold expiry has elapsed.  The reaper
// re-checks each seat inside its exclusive section before reclaiming, so a
// refresh racing this scan is never clobbered.
func (c *Catalog) ExpiredHolds(ctx context.Context, now time.Time) []string {
	var ids []string
	for id := range c.seats {
		_ = c.Mutate(ctx, id, func(seat *model.Seat) error {
			if seat.Status == model.StatusHold && seat.HoldExpired(now) {
				ids = append(ids, seat.SeatID)
			}
			return nil
		})
	}
	sort.Strings(ids)
	return ids
}

// Contains reports whether the seat id exists in the catalog.
func (c *Catalog) Contains(seatID string) bool {
	_, ok := c.seats[seatID]
	return ok
}

// Len returns the number of seats.
func (c *Catalog) Len() int { return len(c.seats) }
