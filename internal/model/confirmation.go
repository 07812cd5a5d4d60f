package model

import "time"

// ConfirmationRecord stores the outcome of the first confirmation call that
// carried a given request id.  A retried call with the same request id returns
// this outcome verbatim without re-evaluating live seat state, so a client can
// safely retry after a network failure with no risk of a second sale.
//
// Records are retained at least as long as one hold TTL window.
type ConfirmationRecord struct {
	RequestID string    `json:"request_id"`
	ClientID  string    `json:"client_id"`
	Confirmed []string  `json:"confirmed"`
	Skipped   []string  `json:"skipped"`
	CreatedAt time.Time `json:"created_at"`
}
