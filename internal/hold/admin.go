package hold

import (
	"context"
	"time"

	"github.com/iliyamo/concert-seat-selection/internal/model"
)

// AdminUpdate is the optional field set applied by the admin endpoints.  A
// nil field leaves the corresponding seat attribute untouched.
type AdminUpdate struct {
	Status *model.SeatStatus
	Tier   *string
	Price  *int
}

// Empty reports whether the update would change nothing by construction.
func (u AdminUpdate) Empty() bool {
	return u.Status == nil && u.Tier == nil && u.Price == nil
}

// Mutator applies privileged seat updates, bypassing hold ownership checks
// entirely.  It shares the coordinator's exclusion, persistence and broadcast
// paths, so admin writes serialize with holds, confirmations and the reaper
// on each seat.
type Mutator struct {
	coord        *Coordinator
	priceForTier func(*string) int
}

// NewMutator builds an admin mutator.  priceForTier supplies the price used
// when a tier is changed without an explicit price.
func NewMutator(coord *Coordinator, priceForTier func(*string) int) *Mutator {
	return &Mutator{coord: coord, priceForTier: priceForTier}
}

// Update applies the field set to one seat and returns the updated record.
// Unknown seat ids surface as catalog.ErrSeatNotFound.  When the new status
// is anything but HOLD and the seat carries a hold, the hold is cleared.  A
// status change emits one broadcast event with "admin" as the originator.
func (m *Mutator) Update(ctx context.Context, seatID string, upd AdminUpdate) (model.Seat, error) {
	var out model.Seat
	err := m.coord.catalog.Mutate(ctx, seatID, func(seat *model.Seat) error {
		now := m.coord.now()
		updated, from, statusChanged := m.apply(*seat, upd, now)
		if err := m.coord.saveSeat(ctx, updated); err != nil {
			return err
		}
		if seat.Hold != nil && updated.Hold == nil {
			_ = m.coord.locks.Release(ctx, seatID, seat.Hold.ClientID)
		}
		*seat = updated
		if statusChanged {
			m.coord.events.Publish(model.NewSeatUpdate(seatID, from, updated.Status, model.ByAdmin, now))
		}
		out = updated.View(now)
		return nil
	})
	return out, err
}

// BulkUpdate applies the same field set to every seat id present in the
// catalog and reports absent ids in missing.  There is no cross-seat
// atomicity; partial completion with accurate reporting is the contract.
func (m *Mutator) BulkUpdate(ctx context.Context, seatIDs []string, upd AdminUpdate) (updated []model.Seat, missing []string) {
	updated = []model.Seat{}
	missing = []string{}
	for _, seatID := range dedupe(seatIDs) {
		if !m.coord.catalog.Contains(seatID) {
			missing = append(missing, seatID)
			continue
		}
		seat, err := m.Update(ctx, seatID, upd)
		if err != nil {
			m.coord.logSeatError("admin update", seatID, err)
			continue
		}
		updated = append(updated, seat)
	}
	return updated, missing
}

// apply computes the updated seat without touching shared state.  Tier
// changes without an explicit price re-derive the price from the tier table.
func (m *Mutator) apply(seat model.Seat, upd AdminUpdate, now time.Time) (out model.Seat, from model.SeatStatus, statusChanged bool) {
	out = seat
	from = seat.Status
	changed := false
	if upd.Status != nil && *upd.Status != seat.Status {
		out.Status = *upd.Status
		statusChanged = true
		changed = true
		if *upd.Status != model.StatusHold {
			out.Hold = nil
		}
	}
	if upd.Tier != nil {
		tier := upd.Tier
		if *tier == "" {
			tier = nil
		}
		out.Tier = tier
		changed = true
		if upd.Price == nil {
			out.Price = m.priceForTier(tier)
		}
	}
	if upd.Price != nil && *upd.Price != out.Price {
		out.Price = *upd.Price
		changed = true
	}
	if changed {
		out.UpdatedAt = now
	}
	return out, from, statusChanged
}
