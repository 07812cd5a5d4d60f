package hold

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-seat-selection/internal/broadcast"
	"github.com/iliyamo/concert-seat-selection/internal/catalog"
	"github.com/iliyamo/concert-seat-selection/internal/lock"
	"github.com/iliyamo/concert-seat-selection/internal/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	cat    *catalog.Catalog
	coord  *Coordinator
	events *broadcast.Broadcaster
	sub    *broadcast.Subscriber
	clock  *fakeClock
}

func tierB() *string {
	t := "B"
	return &t
}

func testSeats(ids ...string) []model.Seat {
	seats := make([]model.Seat, 0, len(ids))
	for i, id := range ids {
		seats = append(seats, model.Seat{
			SeatID:   id,
			Floor:    1,
			ExcelRow: 1,
			ExcelCol: i + 1,
			Zone:     "stage-front",
			Tier:     tierB(),
			Price:    880,
			Status:   model.StatusAvailable,
		})
	}
	return seats
}

func newFixture(t *testing.T, ttl time.Duration, ids ...string) *fixture {
	t.Helper()
	clk := newFakeClock()
	events := broadcast.New()
	sub := events.Subscribe("observer")
	t.Cleanup(func() { events.Unsubscribe(sub) })
	cat := catalog.New(testSeats(ids...))
	coord := NewCoordinator(cat, lock.NewMemory(), events, ttl, WithClock(clk.Now))
	return &fixture{cat: cat, coord: coord, events: events, sub: sub, clock: clk}
}

func (f *fixture) drainEvents() []model.SeatUpdatePayload {
	var out []model.SeatUpdatePayload
	for {
		select {
		case ev := <-f.sub.C():
			out = append(out, ev.Payload)
		default:
			return out
		}
	}
}

func (f *fixture) seat(t *testing.T, id string) model.Seat {
	t.Helper()
	s, err := f.cat.Get(context.Background(), id, f.clock.Now())
	require.NoError(t, err)
	return s
}

func TestAcquireGrantsHold(t *testing.T) {
	f := newFixture(t, 2*time.Minute, "1-1-A", "1-1-B")
	ctx := context.Background()

	res := f.coord.AcquireOrRefresh(ctx, []string{"1-1-A", "1-1-B"}, "c1")
	require.Equal(t, []string{"1-1-A", "1-1-B"}, res.Held)
	require.Empty(t, res.Refreshed)
	require.Empty(t, res.Conflicts)
	require.NotNil(t, res.ExpireAt)
	require.Equal(t, f.clock.Now().Add(2*time.Minute), *res.ExpireAt)

	for _, id := range []string{"1-1-A", "1-1-B"} {
		seat := f.seat(t, id)
		require.Equal(t, model.StatusHold, seat.Status)
		require.NotNil(t, seat.Hold)
		require.Equal(t, "c1", seat.Hold.ClientID)
		require.Equal(t, *res.ExpireAt, seat.Hold.ExpiresAt, "batch shares a single expiry")
	}

	events := f.drainEvents()
	require.Len(t, events, 2)
	for _, ev := range events {
		require.Equal(t, string(model.StatusAvailable), ev.From)
		require.Equal(t, string(model.StatusHold), ev.To)
		require.Equal(t, "c1", ev.By)
	}
}

func TestAcquireEmptyAndUnknown(t *testing.T) {
	f := newFixture(t, 2*time.Minute, "1-1-A")
	ctx := context.Background()

	res := f.coord.AcquireOrRefresh(ctx, nil, "c1")
	require.Empty(t, res.Held)
	require.Nil(t, res.ExpireAt)

	res = f.coord.AcquireOrRefresh(ctx, []string{"9-9-Z", "1-1-A"}, "c1")
	require.Equal(t, []string{"1-1-A"}, res.Held)
	require.Equal(t, []string{"9-9-Z"}, res.Conflicts, "unknown seat ids are conflicts, not errors")
}

func TestRefreshExtendsExpiry(t *testing.T) {
	f := newFixture(t, 2*time.Minute, "1-1-A")
	ctx := context.Background()

	first := f.coord.AcquireOrRefresh(ctx, []string{"1-1-A"}, "c1")
	require.Equal(t, []string{"1-1-A"}, first.Held)

	f.clock.Advance(time.Minute)
	second := f.coord.AcquireOrRefresh(ctx, []string{"1-1-A"}, "c1")
	require.Empty(t, second.Held)
	require.Equal(t, []string{"1-1-A"}, second.Refreshed, "own hold refreshes, never conflicts")
	require.Empty(t, second.Conflicts)
	require.True(t, second.ExpireAt.After(*first.ExpireAt))

	seat := f.seat(t, "1-1-A")
	require.Equal(t, *second.ExpireAt, seat.Hold.ExpiresAt)

	f.drainEvents()
}

func TestAcquireConflicts(t *testing.T) {
	f := newFixture(t, 2*time.Minute, "1-1-A", "1-1-B", "1-1-C")
	ctx := context.Background()

	f.coord.AcquireOrRefresh(ctx, []string{"1-1-A"}, "c1")
	require.NoError(t, f.cat.Mutate(ctx, "1-1-B", func(seat *model.Seat) error {
		seat.Status = model.StatusSold
		return nil
	}))
	require.NoError(t, f.cat.Mutate(ctx, "1-1-C", func(seat *model.Seat) error {
		seat.Status = model.StatusBlocked
		return nil
	}))

	res := f.coord.AcquireOrRefresh(ctx, []string{"1-1-A", "1-1-B", "1-1-C"}, "c2")
	require.Empty(t, res.Held)
	require.Empty(t, res.Refreshed)
	require.Equal(t, []string{"1-1-A", "1-1-B", "1-1-C"}, res.Conflicts)
	require.Nil(t, res.ExpireAt)

	// No mutation happened on the conflicting seats.
	require.Equal(t, "c1", f.seat(t, "1-1-A").Hold.ClientID)
}

func TestAcquireAfterExpiryStealsSeat(t *testing.T) {
	f := newFixture(t, 2*time.Minute, "1-1-A")
	ctx := context.Background()

	f.coord.AcquireOrRefresh(ctx, []string{"1-1-A"}, "c1")
	f.clock.Advance(3 * time.Minute)

	res := f.coord.AcquireOrRefresh(ctx, []string{"1-1-A"}, "c2")
	require.Equal(t, []string{"1-1-A"}, res.Held, "elapsed hold is logically absent")
	require.Equal(t, "c2", f.seat(t, "1-1-A").Hold.ClientID)
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	f := newFixture(t, 2*time.Minute, "1-1-A")
	ctx := context.Background()

	const claimants = 8
	results := make(chan Result, claimants)
	var wg sync.WaitGroup
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		clientID := string(rune('a' + i))
		go func() {
			defer wg.Done()
			results <- f.coord.AcquireOrRefresh(ctx, []string{"1-1-A"}, clientID)
		}()
	}
	wg.Wait()
	close(results)

	held, conflicts := 0, 0
	for res := range results {
		switch {
		case len(res.Held) == 1:
			held++
		case len(res.Conflicts) == 1:
			conflicts++
		}
	}
	require.Equal(t, 1, held, "exactly one claimant wins")
	require.Equal(t, claimants-1, conflicts)

	events := f.drainEvents()
	require.Len(t, events, 1, "exactly one transition is broadcast")
}

func TestReleaseSelective(t *testing.T) {
	f := newFixture(t, 2*time.Minute, "1-1-A", "1-1-B")
	ctx := context.Background()

	f.coord.AcquireOrRefresh(ctx, []string{"1-1-A", "1-1-B"}, "c1")
	f.drainEvents()

	released := f.coord.Release(ctx, []string{"1-1-A", "9-9-Z"}, "c1")
	require.Equal(t, []string{"1-1-A"}, released)
	require.Equal(t, model.StatusAvailable, f.seat(t, "1-1-A").Status)
	require.Equal(t, model.StatusHold, f.seat(t, "1-1-B").Status)

	events := f.drainEvents()
	require.Len(t, events, 1)
	require.Equal(t, string(model.StatusAvailable), events[0].To)
	require.Equal(t, "c1", events[0].By)
}

func TestReleaseAllForClient(t *testing.T) {
	f := newFixture(t, 2*time.Minute, "1-1-A", "1-1-B", "1-1-C")
	ctx := context.Background()

	f.coord.AcquireOrRefresh(ctx, []string{"1-1-A", "1-1-C"}, "c1")
	f.coord.AcquireOrRefresh(ctx, []string{"1-1-B"}, "c2")

	released := f.coord.Release(ctx, nil, "c1")
	require.Equal(t, []string{"1-1-A", "1-1-C"}, released)
	require.Equal(t, model.StatusHold, f.seat(t, "1-1-B").Status, "other clients' holds are untouched")
}

func TestReleaseIsIdempotent(t *testing.T) {
	f := newFixture(t, 2*time.Minute, "1-1-A")
	ctx := context.Background()

	f.coord.AcquireOrRefresh(ctx, []string{"1-1-A"}, "c1")

	require.Equal(t, []string{"1-1-A"}, f.coord.Release(ctx, []string{"1-1-A"}, "c1"))
	require.Empty(t, f.coord.Release(ctx, []string{"1-1-A"}, "c1"), "releasing a released seat is a silent no-op")
	require.Empty(t, f.coord.Release(ctx, []string{"1-1-A"}, "c2"), "releasing someone else's target is a silent no-op")
}

func TestHoldInvariantAtEveryRead(t *testing.T) {
	f := newFixture(t, 2*time.Minute, "1-1-A")
	ctx := context.Background()

	f.coord.AcquireOrRefresh(ctx, []string{"1-1-A"}, "c1")
	seat := f.seat(t, "1-1-A")
	require.Equal(t, model.StatusHold, seat.Status)
	require.NotNil(t, seat.Hold)
	require.True(t, seat.Hold.ExpiresAt.After(f.clock.Now()))

	f.clock.Advance(3 * time.Minute)
	seat = f.seat(t, "1-1-A")
	require.Equal(t, model.StatusAvailable, seat.Status, "status HOLD implies a live hold, at every instant")
	require.Nil(t, seat.Hold)
}
