package hold

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/concert-seat-selection/internal/model"
)

// ErrRequestIDClaimed is returned when a request id is replayed by a client
// other than the one that first used it.
var ErrRequestIDClaimed = errors.New("request_id already used by another client")

// Processor converts held seats into sold seats, idempotently.  The outcome
// of the first call carrying a request id is stored before it is returned and
// replayed verbatim to retries, so a client that lost the response can retry
// without risking a second sale.
type Processor struct {
	coord     *Coordinator
	retention time.Duration

	mu      sync.Mutex
	records map[string]*recordEntry
}

// recordEntry pins one request id.  Concurrent calls with the same id wait on
// done; exactly one of them evaluates seat state.
type recordEntry struct {
	once sync.Once
	done chan struct{}
	rec  model.ConfirmationRecord
}

// NewProcessor builds a processor whose records outlive at least one hold TTL
// window (twice the TTL, to keep a margin for clock drift between retries).
func NewProcessor(coord *Coordinator) *Processor {
	return &Processor{
		coord:     coord,
		retention: 2 * coord.ttl,
		records:   make(map[string]*recordEntry),
	}
}

// Confirm processes each seat id independently: a seat currently held by
// clientID transitions to SOLD, anything else (expired, stolen, already sold,
// blocked, unknown) is skipped.  The confirmed/skipped partition is recorded
// under requestID before returning.  The second return value is true when
// this call performed the evaluation, false on a replay.
func (p *Processor) Confirm(ctx context.Context, seatIDs []string, clientID, requestID string) (model.ConfirmationRecord, bool, error) {
	p.mu.Lock()
	e, ok := p.records[requestID]
	if !ok {
		e = &recordEntry{done: make(chan struct{})}
		p.records[requestID] = e
	}
	p.mu.Unlock()

	fresh := false
	e.once.Do(func() {
		defer close(e.done)
		fresh = true
		e.rec = p.evaluate(ctx, seatIDs, clientID, requestID)
	})
	select {
	case <-e.done:
	case <-ctx.Done():
		return model.ConfirmationRecord{}, false, ctx.Err()
	}
	if e.rec.ClientID != clientID {
		return model.ConfirmationRecord{}, false, ErrRequestIDClaimed
	}
	return e.rec, fresh, nil
}

func (p *Processor) evaluate(ctx context.Context, seatIDs []string, clientID, requestID string) model.ConfirmationRecord {
	now := p.coord.now()
	rec := model.ConfirmationRecord{
		RequestID: requestID,
		ClientID:  clientID,
		Confirmed: []string{},
		Skipped:   []string{},
		CreatedAt: now,
	}
	prices := make(map[string]int)
	for _, seatID := range dedupe(seatIDs) {
		confirmed := false
		err := p.coord.catalog.Mutate(ctx, seatID, func(seat *model.Seat) error {
			at := p.coord.now()
			if !seat.HeldBy(clientID, at) {
				return nil
			}
			updated := *seat
			updated.Status = model.StatusSold
			updated.Hold = nil
			updated.UpdatedAt = at
			if err := p.coord.saveSeat(ctx, updated); err != nil {
				return err
			}
			_ = p.coord.locks.Release(ctx, seatID, clientID)
			*seat = updated
			p.coord.events.Publish(model.NewSeatUpdate(seatID, model.StatusHold, model.StatusSold, clientID, at))
			prices[seatID] = updated.Price
			confirmed = true
			return nil
		})
		if err != nil {
			p.coord.logSeatError("confirm", seatID, err)
		}
		if confirmed {
			rec.Confirmed = append(rec.Confirmed, seatID)
		} else {
			rec.Skipped = append(rec.Skipped, seatID)
		}
	}
	if p.coord.store != nil && len(rec.Confirmed) > 0 {
		if err := p.coord.store.SavePurchase(ctx, rec, prices); err != nil {
			log.Printf("hold: save purchase %s: %v", requestID, err)
		}
	}
	return rec
}

// Seed preloads confirmation records, used after a restart to keep retried
// request ids idempotent across the retention window.
func (p *Processor) Seed(records []model.ConfirmationRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range records {
		e := &recordEntry{done: make(chan struct{}), rec: rec}
		e.once.Do(func() {})
		close(e.done)
		p.records[rec.RequestID] = e
	}
}

// PurgeExpired drops records older than the retention window.  Called from
// the reaper tick.
func (p *Processor) PurgeExpired(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	purged := 0
	for id, e := range p.records {
		select {
		case <-e.done:
		default:
			continue // still being evaluated
		}
		if now.Sub(e.rec.CreatedAt) > p.retention {
			delete(p.records, id)
			purged++
		}
	}
	return purged
}
