package model

import "time"

// Originators recorded in the "by" field of a seat update event.  Client
// originated transitions carry the raw client id instead.
const (
	ByAdmin  = "admin"  // privileged mutation through the admin endpoints
	BySystem = "system" // reaper reclaiming an expired hold
)

// SeatUpdatePayload describes a single accepted status transition of one seat.
// For any given seat the stream of payloads forms a totally ordered log
// consistent with the linearized mutation order on that seat.
type SeatUpdatePayload struct {
	SeatID string    `json:"seat_id"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	By     string    `json:"by"`
	At     time.Time `json:"at"`
}

// SeatUpdateEvent is the frame delivered to live subscribers.  Event is always
// "seat_update"; other frame kinds (the connected greeting) are built ad hoc
// by the transport layer.
type SeatUpdateEvent struct {
	Event   string            `json:"event"`
	Payload SeatUpdatePayload `json:"payload"`
}

// NewSeatUpdate builds the canonical seat_update frame.
func NewSeatUpdate(seatID string, from, to SeatStatus, by string, at time.Time) SeatUpdateEvent {
	return SeatUpdateEvent{
		Event: "seat_update",
		Payload: SeatUpdatePayload{
			SeatID: seatID,
			From:   string(from),
			To:     string(to),
			By:     by,
			At:     at,
		},
	}
}
