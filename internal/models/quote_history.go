package models

import "time"

// QuoteHistory is an append-only audit entry for a quote chain. Entries are
// never updated or deleted; one entry per meaningful transition.
type QuoteHistory struct {
	ID        int       `json:"id"`
	QuoteID   int       `json:"quote_id"`
	UserID    int       `json:"user_id"`
	OldStatus *string   `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}
