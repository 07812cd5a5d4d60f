package hold

import (
	"context"
	"log"
	"time"
)

// Reaper reclaims expired holds on a fixed interval.  The interval must stay
// strictly below the hold TTL so an abandoned hold is reclaimed within one
// TTL window; config.Load enforces that relation.
type Reaper struct {
	coord     *Coordinator
	processor *Processor
	interval  time.Duration
}

// NewReaper builds a reaper.  processor may be nil when confirmation-record
// retention is managed elsewhere.
func NewReaper(coord *Coordinator, processor *Processor, interval time.Duration) *Reaper {
	return &Reaper{coord: coord, processor: processor, interval: interval}
}

// Run blocks until ctx is cancelled, ticking at the configured interval.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick performs one reclamation pass.  Each expired seat is re-checked inside
// its exclusive section, so a hold refreshed or confirmed between the scan
// and the transition is left untouched.  Every successful reclamation emits
// exactly one system-originated broadcast event.
func (r *Reaper) Tick(ctx context.Context) int {
	now := r.coord.now()
	reclaimed := 0
	for _, seatID := range r.coord.catalog.ExpiredHolds(ctx, now) {
		ok, err := r.coord.reapOne(ctx, seatID)
		if err != nil {
			log.Printf("reaper: reclaim %s: %v", seatID, err)
			continue
		}
		if ok {
			reclaimed++
		}
	}
	if reclaimed > 0 {
		log.Printf("reaper: reclaimed %d expired hold(s)", reclaimed)
	}
	if r.processor != nil {
		r.processor.PurgeExpired(now)
	}
	return reclaimed
}
