// Package loader bootstraps the seat catalog at process start: from the
// durable store when one is configured, otherwise from the seats.json file
// produced by the out-of-scope seating chart ingestion.  In-flight hold TTLs
// are re-validated against the wall clock here — a hold whose expiry passed
// while the process was down is reclaimed, never resurrected.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/iliyamo/concert-seat-selection/internal/catalog"
	"github.com/iliyamo/concert-seat-selection/internal/lock"
	"github.com/iliyamo/concert-seat-selection/internal/model"
	"github.com/iliyamo/concert-seat-selection/internal/store"
)

// ReadSeatsFile parses a seats.json catalog file.  Seats with no status are
// loaded as AVAILABLE.
func ReadSeatsFile(path string) ([]model.Seat, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seats file: %w", err)
	}
	var seats []model.Seat
	if err := json.Unmarshal(raw, &seats); err != nil {
		return nil, fmt.Errorf("parse seats file %s: %w", path, err)
	}
	now := time.Now().UTC()
	for i := range seats {
		if seats[i].Status == "" {
			seats[i].Status = model.StatusAvailable
		}
		if seats[i].UpdatedAt.IsZero() {
			seats[i].UpdatedAt = now
		}
	}
	return seats, nil
}

// Revalidate clears holds whose expiry has already passed and returns the
// seat ids that were reclaimed.  It mutates the slice in place; the catalog
// has not been built yet so no exclusion is needed.
func Revalidate(seats []model.Seat, now time.Time) []string {
	var reclaimed []string
	for i := range seats {
		s := &seats[i]
		if s.Status == model.StatusHold && (s.Hold == nil || !s.Hold.ExpiresAt.After(now)) {
			s.Status = model.StatusAvailable
			s.Hold = nil
			s.UpdatedAt = now
			reclaimed = append(reclaimed, s.SeatID)
		}
		if s.Status != model.StatusHold {
			s.Hold = nil
		}
	}
	return reclaimed
}

// Bootstrap assembles the catalog.  With a store it loads persisted seats,
// falling back to the seats file when the store is empty (and seeding the
// store from it).  Live holds are re-registered with the lock backend so the
// claim registry agrees with the catalog from the first request on.
func Bootstrap(ctx context.Context, seatsPath string, st *store.SeatStore, locks lock.Backend) (*catalog.Catalog, error) {
	var seats []model.Seat
	var err error
	if st != nil {
		seats, err = st.LoadSeats(ctx)
		if err != nil {
			return nil, err
		}
	}
	seeding := false
	if len(seats) == 0 {
		seats, err = ReadSeatsFile(seatsPath)
		if err != nil {
			return nil, err
		}
		seeding = st != nil
	}

	now := time.Now().UTC()
	reclaimed := Revalidate(seats, now)
	if len(reclaimed) > 0 {
		log.Printf("loader: reclaimed %d hold(s) that expired while down", len(reclaimed))
	}
	reclaimedSet := make(map[string]struct{}, len(reclaimed))
	for _, id := range reclaimed {
		reclaimedSet[id] = struct{}{}
	}

	for i := range seats {
		s := seats[i]
		if s.Hold != nil {
			ttl := s.Hold.ExpiresAt.Sub(now)
			if ok, err := locks.Acquire(ctx, s.SeatID, s.Hold.ClientID, ttl); err != nil || !ok {
				log.Printf("loader: re-register hold %s: ok=%v err=%v", s.SeatID, ok, err)
			}
		}
		if st == nil {
			continue
		}
		_, wasReclaimed := reclaimedSet[s.SeatID]
		if seeding || wasReclaimed {
			if err := st.SaveSeat(ctx, s); err != nil {
				return nil, err
			}
		}
	}

	log.Printf("loader: catalog ready with %d seat(s)", len(seats))
	return catalog.New(seats), nil
}
