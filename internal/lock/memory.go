package lock

import (
	"context"
	"sync"
	"time"
)

type memoryClaim struct {
	clientID  string
	expiresAt time.Time
}

// Memory is the in-process lock backend.  Expired claims are treated as
// absent on every operation, so no sweeper is needed here; the seat reaper
// drives reclamation at the catalog level.
type Memory struct {
	mu     sync.Mutex
	claims map[string]memoryClaim
	now    func() time.Time
}

// NewMemory returns an empty in-process backend.
func NewMemory() *Memory {
	return &Memory{claims: make(map[string]memoryClaim), now: time.Now}
}

func (m *Memory) live(seatID string) (memoryClaim, bool) {
	c, ok := m.claims[seatID]
	if !ok || !c.expiresAt.After(m.now()) {
		return memoryClaim{}, false
	}
	return c, true
}

// Acquire grants the claim when the seat has no live claim or the caller
// already owns it.
func (m *Memory) Acquire(_ context.Context, seatID, clientID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.live(seatID); ok && c.clientID != clientID {
		return false, nil
	}
	m.claims[seatID] = memoryClaim{clientID: clientID, expiresAt: m.now().Add(ttl)}
	return true, nil
}

// Refresh extends the claim only for its current owner.
func (m *Memory) Refresh(_ context.Context, seatID, clientID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.live(seatID)
	if !ok || c.clientID != clientID {
		return false, nil
	}
	m.claims[seatID] = memoryClaim{clientID: clientID, expiresAt: m.now().Add(ttl)}
	return true, nil
}

// Release drops the claim only when clientID owns it.
func (m *Memory) Release(_ context.Context, seatID, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.claims[seatID]; ok && c.clientID == clientID {
		delete(m.claims, seatID)
	}
	return nil
}

// Snapshot returns the live claims.
func (m *Memory) Snapshot(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.claims))
	for seatID := range m.claims {
		if c, ok := m.live(seatID); ok {
			out[seatID] = c.clientID
		}
	}
	return out, nil
}
