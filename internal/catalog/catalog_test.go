package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-seat-selection/internal/model"
)

func seatFixture(id string, floor, row, col int) model.Seat {
	return model.Seat{
		SeatID:   id,
		Floor:    floor,
		ExcelRow: row,
		ExcelCol: col,
		Zone:     "stage-front",
		Status:   model.StatusAvailable,
	}
}

func TestMutateUnknownSeat(t *testing.T) {
	c := New([]model.Seat{seatFixture("1-1-A", 1, 1, 1)})
	err := c.Mutate(context.Background(), "9-9-Z", func(*model.Seat) error { return nil })
	require.ErrorIs(t, err, ErrSeatNotFound)
}

func TestMutateSerializesOneSeat(t *testing.T) {
	c := New([]model.Seat{seatFixture("1-1-A", 1, 1, 1)})
	const workers = 16
	done := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_ = c.Mutate(context.Background(), "1-1-A", func(seat *model.Seat) error {
				seat.Price++ // not atomic; only safe if Mutate serializes
				return nil
			})
		}()
	}
	for i := 0; i < workers; i++ {
		<-done
	}
	got, err := c.Get(context.Background(), "1-1-A", time.Now())
	require.NoError(t, err)
	require.Equal(t, workers, got.Price)
}

func TestMutateBoundedWait(t *testing.T) {
	c := New([]model.Seat{seatFixture("1-1-A", 1, 1, 1)}, WithLockWait(20*time.Millisecond))

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = c.Mutate(context.Background(), "1-1-A", func(*model.Seat) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	err := c.Mutate(context.Background(), "1-1-A", func(*model.Seat) error { return nil })
	require.ErrorIs(t, err, ErrLockTimeout, "contended section must fail fast, not pile up")
	close(release)
}

func TestMutateHonorsContext(t *testing.T) {
	c := New([]model.Seat{seatFixture("1-1-A", 1, 1, 1)}, WithLockWait(time.Minute))

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = c.Mutate(context.Background(), "1-1-A", func(*model.Seat) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.Mutate(ctx, "1-1-A", func(*model.Seat) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFloorOrdering(t *testing.T) {
	c := New([]model.Seat{
		seatFixture("1-2-B", 1, 2, 2),
		seatFixture("1-1-B", 1, 1, 2),
		seatFixture("1-1-A", 1, 1, 1),
		seatFixture("2-1-A", 2, 1, 1),
	})
	seats := c.Floor(context.Background(), 1, time.Now())
	ids := make([]string, 0, len(seats))
	for _, s := range seats {
		ids = append(ids, s.SeatID)
	}
	require.Equal(t, []string{"1-1-A", "1-1-B", "1-2-B"}, ids)
}

func TestGetNormalizesExpiredHold(t *testing.T) {
	now := time.Now()
	seat := seatFixture("1-1-A", 1, 1, 1)
	seat.Status = model.StatusHold
	seat.Hold = &model.HoldInfo{ClientID: "c1", ExpiresAt: now.Add(-time.Second)}
	c := New([]model.Seat{seat})

	got, err := c.Get(context.Background(), "1-1-A", now)
	require.NoError(t, err)
	require.Equal(t, model.StatusAvailable, got.Status, "elapsed hold reads as AVAILABLE before the reaper runs")
	require.Nil(t, got.Hold)

	// The live hold is presented while its expiry is in the future.
	got2, err := c.Get(context.Background(), "1-1-A", now.Add(-2*time.Second))
	require.NoError(t, err)
	require.Equal(t, model.StatusHold, got2.Status)
	require.NotNil(t, got2.Hold)
}

func TestHeldByAndExpiredHolds(t *testing.T) {
	now := time.Now()
	live := seatFixture("1-1-A", 1, 1, 1)
	live.Status = model.StatusHold
	live.Hold = &model.HoldInfo{ClientID: "c1", ExpiresAt: now.Add(time.Minute)}
	stale := seatFixture("1-1-B", 1, 1, 2)
	stale.Status = model.StatusHold
	stale.Hold = &model.HoldInfo{ClientID: "c1", ExpiresAt: now.Add(-time.Minute)}
	other := seatFixture("1-1-C", 1, 1, 3)
	other.Status = model.StatusHold
	other.Hold = &model.HoldInfo{ClientID: "c2", ExpiresAt: now.Add(time.Minute)}
	c := New([]model.Seat{live, stale, other})

	require.Equal(t, []string{"1-1-A"}, c.HeldBy(context.Background(), "c1", now))
	require.Equal(t, []string{"1-1-B"}, c.ExpiredHolds(context.Background(), now))
}
