package repositories

import (
	"context"
	"database/sql"

	"qurylysBack/internal/models"
)

// QuoteHistoryRepository reads the append-only audit log. Writes happen inside
// the quote repository transactions so a history entry can never be committed
// without its state change.
type QuoteHistoryRepository struct {
	DB *sql.DB
}

// ListChain returns the audit log of a whole negotiation chain, every version
// rooted at rootID included, in insertion order.
func (r *QuoteHistoryRepository) ListChain(ctx context.Context, rootID int) ([]models.QuoteHistory, error) {
	return listChainHistory(ctx, r.DB, rootID)
}

func listChainHistory(ctx context.Context, db *sql.DB, rootID int) ([]models.QuoteHistory, error) {
	rows, err := db.QueryContext(ctx, `
               SELECT h.id, h.quote_id, h.user_id, h.old_status, h.new_status, h.notes, h.created_at
               FROM quote_history h
               JOIN quotes q ON h.quote_id = q.id
               WHERE q.id = ? OR q.parent_quote_id = ?
               ORDER BY h.created_at, h.id`, rootID, rootID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []models.QuoteHistory{}
	for rows.Next() {
		var h models.QuoteHistory
		if err := rows.Scan(&h.ID, &h.QuoteID, &h.UserID, &h.OldStatus, &h.NewStatus, &h.Notes, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
