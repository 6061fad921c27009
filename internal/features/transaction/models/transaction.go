package models

import "time"

// Transaction is one token transfer observed on-chain. Entries are
// append-only; nothing in the system updates or deletes them.
type Transaction struct {
	ID string `json:"id"`

	// EventID is the chain-level identity of the source event
	// (transaction hash plus log index), used to skip redeliveries.
	EventID string `json:"event_id"`

	From string `json:"from"`
	To   string `json:"to"`

	// Amount in base token units, as a decimal string. ERC-20 amounts
	// do not fit in uint64.
	Amount string `json:"amount"`

	Timestamp time.Time `json:"timestamp"`
}
