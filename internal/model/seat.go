package model

import "time"

// SeatStatus enumerates the lifecycle states of a seat.  Seats are never
// destroyed; only their status cycles between these four values.
type SeatStatus string

const (
	StatusAvailable SeatStatus = "AVAILABLE" // free to be held
	StatusHold      SeatStatus = "HOLD"      // exclusively held by one client, time-bounded
	StatusSold      SeatStatus = "SOLD"      // purchased; terminal unless an admin intervenes
	StatusBlocked   SeatStatus = "BLOCKED"   // withheld from sale by an admin
)

// Valid reports whether s is one of the four known statuses.
func (s SeatStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusHold, StatusSold, StatusBlocked:
		return true
	}
	return false
}

// HoldInfo is the client-visible view of an active hold.  The server is the
// sole authority on expiry: every hold or refresh response carries this
// timestamp so clients never have to estimate it.
type HoldInfo struct {
	ClientID  string    `json:"client_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Seat describes one seat in the catalog.
//
// Fields:
//
//	SeatID    – stable unique identifier, encodes at least the floor.
//	Floor     – floor number; immutable after catalog load.
//	ExcelRow  – source row in the ingested seating chart (display only).
//	ExcelCol  – source column in the ingested seating chart (display only).
//	LayoutRow – optional display row; opaque to the core, passed through.
//	LayoutCol – optional display column; opaque to the core, passed through.
//	Zone      – seating zone label.
//	Tier      – pricing tier, nullable.
//	Price     – price in the smallest currency unit, never negative.
//	Status    – current lifecycle state.
//	UpdatedAt – timestamp of the last accepted mutation.
//	Hold      – present exactly while Status is HOLD and the hold is live.
type Seat struct {
	SeatID    string     `json:"seat_id"`
	Floor     int        `json:"floor"`
	ExcelRow  int        `json:"excel_row"`
	ExcelCol  int        `json:"excel_col"`
	LayoutRow *int       `json:"layout_row"`
	LayoutCol *int       `json:"layout_col"`
	Zone      string     `json:"zone"`
	Tier      *string    `json:"tier"`
	Price     int        `json:"price"`
	Status    SeatStatus `json:"status"`
	UpdatedAt time.Time  `json:"updated_at"`
	Hold      *HoldInfo  `json:"hold,omitempty"`
}

// HoldExpired reports whether the seat carries a hold whose expiry has passed
// at the given instant.  A seat without a hold is never expired.
func (s *Seat) HoldExpired(now time.Time) bool {
	return s.Hold != nil && !s.Hold.ExpiresAt.After(now)
}

// HeldBy reports whether the seat is in HOLD status with a live hold owned by
// clientID at the given instant.  An elapsed hold is treated as absent even
// before the reaper has physically reclaimed the seat.
func (s *Seat) HeldBy(clientID string, now time.Time) bool {
	return s.Status == StatusHold && s.Hold != nil &&
		s.Hold.ClientID == clientID && s.Hold.ExpiresAt.After(now)
}

// View returns a copy of the seat normalized for readers: an elapsed hold is
// presented as AVAILABLE with no hold attached, upholding the invariant that
// status HOLD implies a hold with expiry in the future at every read.
func (s *Seat) View(now time.Time) Seat {
	out := *s
	if out.Status == StatusHold && (out.Hold == nil || !out.Hold.ExpiresAt.After(now)) {
		out.Status = StatusAvailable
		out.Hold = nil
	} else if out.Hold != nil {
		h := *out.Hold
		out.Hold = &h
	}
	return out
}
