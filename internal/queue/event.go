// Package queue defines the sale event published after a confirmation batch
// and the background consumer that records it.
package queue

// SaleRecordedEvent is published once per successful confirmation batch.  It
// carries enough for downstream consumers to log or feed analytics without
// querying the catalog.
type SaleRecordedEvent struct {
	RequestID   string   `json:"request_id"`
	ClientID    string   `json:"client_id"`
	SeatIDs     []string `json:"seat_ids"`
	TotalAmount int      `json:"total_amount"`
	ConfirmedAt string   `json:"confirmed_at"`
}
