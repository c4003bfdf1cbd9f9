package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qurylysBack/internal/fsm"
	"qurylysBack/internal/models"
)

type QuoteRepository struct {
	DB *sql.DB
}

const quoteColumns = `id, customer_id, contractor_id, project_id, details, budget, location, start_date,
       response, price_quote, status, version, parent_quote_id, is_latest, otp_code, otp_expires_at,
       attachments, conversation_id, created_at, updated_at`

func scanQuote(row interface{ Scan(dest ...interface{}) error }) (models.QuoteRequest, error) {
	var q models.QuoteRequest
	var attachments sql.NullString
	var conversationID sql.NullInt64
	err := row.Scan(
		&q.ID, &q.CustomerID, &q.ContractorID, &q.ProjectID, &q.Details, &q.Budget, &q.Location, &q.StartDate,
		&q.Response, &q.PriceQuote, &q.Status, &q.Version, &q.ParentQuoteID, &q.IsLatest, &q.OtpCode, &q.OtpExpiresAt,
		&attachments, &conversationID, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	if conversationID.Valid {
		q.ConversationID = int(conversationID.Int64)
	}
	if attachments.Valid && attachments.String != "" {
		if err := json.Unmarshal([]byte(attachments.String), &q.Attachments); err != nil {
			return models.QuoteRequest{}, err
		}
	}
	return q, nil
}

func marshalAttachments(attachments []string) (interface{}, error) {
	if len(attachments) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullInt(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

// CreateQuote inserts the chain root (version 1, latest) together with its
// first history entry in one transaction.
func (r *QuoteRepository) CreateQuote(ctx context.Context, q models.QuoteRequest) (models.QuoteRequest, error) {
	attachments, err := marshalAttachments(q.Attachments)
	if err != nil {
		return models.QuoteRequest{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
               INSERT INTO quotes (customer_id, contractor_id, project_id, details, budget, location, start_date,
                                   status, version, parent_quote_id, is_latest, attachments, conversation_id, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, NULL, 1, ?, ?, ?)`,
		q.CustomerID, q.ContractorID, q.ProjectID, q.Details, q.Budget, q.Location, q.StartDate,
		fsm.QuotePending, attachments, nullInt(q.ConversationID), now,
	)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.QuoteRequest{}, err
	}
	q.ID = int(id)
	q.Status = fsm.QuotePending
	q.Version = 1
	q.IsLatest = true
	q.CreatedAt = now

	if err := insertHistoryTx(ctx, tx, models.QuoteHistory{
		QuoteID:   q.ID,
		UserID:    q.CustomerID,
		NewStatus: fsm.QuotePending,
		Notes:     "quote request created",
	}); err != nil {
		return models.QuoteRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.QuoteRequest{}, err
	}
	return q, nil
}

func (r *QuoteRepository) GetQuoteByID(ctx context.Context, id int) (models.QuoteRequest, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, id)
	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.QuoteRequest{}, models.ErrQuoteNotFound
	}
	return q, err
}

// GetQuoteWithRelations returns the quote with its items, milestones and the
// full chain history.
func (r *QuoteRepository) GetQuoteWithRelations(ctx context.Context, id int) (models.QuoteRequest, error) {
	q, err := r.GetQuoteByID(ctx, id)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	if q.Items, err = r.listItems(ctx, q.ID); err != nil {
		return models.QuoteRequest{}, err
	}
	if q.Milestones, err = r.listMilestones(ctx, q.ID); err != nil {
		return models.QuoteRequest{}, err
	}
	rootID := q.ID
	if q.ParentQuoteID != nil {
		rootID = *q.ParentQuoteID
	}
	if q.History, err = listChainHistory(ctx, r.DB, rootID); err != nil {
		return models.QuoteRequest{}, err
	}
	return q, nil
}

func (r *QuoteRepository) ListQuotesByCustomer(ctx context.Context, customerID int) ([]models.QuoteRequest, error) {
	return r.listQuotes(ctx, `customer_id = ?`, customerID)
}

func (r *QuoteRepository) ListQuotesByContractor(ctx context.Context, contractorID int) ([]models.QuoteRequest, error) {
	return r.listQuotes(ctx, `contractor_id = ?`, contractorID)
}

func (r *QuoteRepository) listQuotes(ctx context.Context, where string, arg interface{}) ([]models.QuoteRequest, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE `+where+` AND is_latest = 1 ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := []models.QuoteRequest{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// ReplyInPlace applies contractor pricing to a still-pending record. The
// pending -> replied transition is a compare-and-swap, so a concurrent reply
// or customer decision makes this fail instead of double-applying.
func (r *QuoteRepository) ReplyInPlace(ctx context.Context, q models.QuoteRequest, items []models.QuoteItem, milestones []models.PaymentMilestone) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fsm.Apply(ctx, tx, "quotes", q.ID, fsm.QuotePending, fsm.QuoteReplied); err != nil {
		if errors.Is(err, fsm.ErrStaleStatus) {
			return fmt.Errorf("%w: quote is no longer awaiting a first reply", models.ErrStateConflict)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE quotes SET price_quote = ?, response = ? WHERE id = ?`,
		q.PriceQuote, q.Response, q.ID,
	); err != nil {
		return err
	}
	if err := insertItemsTx(ctx, tx, q.ID, items); err != nil {
		return err
	}
	if err := insertMilestonesTx(ctx, tx, q.ID, milestones); err != nil {
		return err
	}
	oldStatus := fsm.QuotePending
	if err := insertHistoryTx(ctx, tx, models.QuoteHistory{
		QuoteID:   q.ID,
		UserID:    q.ContractorID,
		OldStatus: &oldStatus,
		NewStatus: fsm.QuoteReplied,
		Notes:     "contractor submitted pricing",
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// SpawnVersion creates the next version of a chain and un-flags the
// predecessor, all in one transaction. The is_latest flip is guarded so two
// concurrent revisions cannot both chain off the same parent.
func (r *QuoteRepository) SpawnVersion(ctx context.Context, parent models.QuoteRequest, next models.QuoteRequest, items []models.QuoteItem, milestones []models.PaymentMilestone) (models.QuoteRequest, error) {
	attachments, err := marshalAttachments(next.Attachments)
	if err != nil {
		return models.QuoteRequest{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE quotes SET is_latest = 0 WHERE id = ? AND is_latest = 1`, parent.ID)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return models.QuoteRequest{}, err
	}
	if rows == 0 {
		return models.QuoteRequest{}, fmt.Errorf("%w", models.ErrQuoteSuperseded)
	}

	rootID := parent.ID
	if parent.ParentQuoteID != nil {
		rootID = *parent.ParentQuoteID
	}
	now := time.Now()
	ins, err := tx.ExecContext(ctx, `
               INSERT INTO quotes (customer_id, contractor_id, project_id, details, budget, location, start_date,
                                   response, price_quote, status, version, parent_quote_id, is_latest,
                                   attachments, conversation_id, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		parent.CustomerID, parent.ContractorID, parent.ProjectID, parent.Details, parent.Budget, parent.Location, parent.StartDate,
		next.Response, next.PriceQuote, fsm.QuoteReplied, parent.Version+1, rootID,
		attachments, nullInt(parent.ConversationID), now,
	)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return models.QuoteRequest{}, err
	}

	next.ID = int(id)
	next.CustomerID = parent.CustomerID
	next.ContractorID = parent.ContractorID
	next.ProjectID = parent.ProjectID
	next.Details = parent.Details
	next.Budget = parent.Budget
	next.Location = parent.Location
	next.StartDate = parent.StartDate
	next.Status = fsm.QuoteReplied
	next.Version = parent.Version + 1
	next.ParentQuoteID = &rootID
	next.IsLatest = true
	next.ConversationID = parent.ConversationID
	next.CreatedAt = now

	if err := insertItemsTx(ctx, tx, next.ID, items); err != nil {
		return models.QuoteRequest{}, err
	}
	if err := insertMilestonesTx(ctx, tx, next.ID, milestones); err != nil {
		return models.QuoteRequest{}, err
	}
	oldStatus := parent.Status
	if err := insertHistoryTx(ctx, tx, models.QuoteHistory{
		QuoteID:   next.ID,
		UserID:    next.ContractorID,
		OldStatus: &oldStatus,
		NewStatus: fsm.QuoteReplied,
		Notes:     fmt.Sprintf("contractor issued revised pricing (version %d)", next.Version),
	}); err != nil {
		return models.QuoteRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.QuoteRequest{}, err
	}
	return next, nil
}

// SetOtp stores a fresh confirmation code with its expiry and records the
// issuance in the history log.
func (r *QuoteRepository) SetOtp(ctx context.Context, q models.QuoteRequest, code string, expiresAt time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE quotes SET otp_code = ?, otp_expires_at = ?, updated_at = NOW() WHERE id = ?`,
		code, expiresAt, q.ID,
	); err != nil {
		return err
	}
	oldStatus := q.Status
	if err := insertHistoryTx(ctx, tx, models.QuoteHistory{
		QuoteID:   q.ID,
		UserID:    q.CustomerID,
		OldStatus: &oldStatus,
		NewStatus: q.Status,
		Notes:     "confirmation code issued",
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// Decide moves a quote to a terminal customer decision via compare-and-swap
// and appends the matching history entry.
func (r *QuoteRepository) Decide(ctx context.Context, q models.QuoteRequest, toStatus string, actorID int, notes string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fsm.Apply(ctx, tx, "quotes", q.ID, q.Status, toStatus); err != nil {
		if errors.Is(err, fsm.ErrStaleStatus) {
			return fmt.Errorf("%w: cannot move quote from %s to %s", models.ErrStateConflict, q.Status, toStatus)
		}
		return err
	}
	oldStatus := q.Status
	if err := insertHistoryTx(ctx, tx, models.QuoteHistory{
		QuoteID:   q.ID,
		UserID:    actorID,
		OldStatus: &oldStatus,
		NewStatus: toStatus,
		Notes:     notes,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *QuoteRepository) listItems(ctx context.Context, quoteID int) ([]models.QuoteItem, error) {
	rows, err := r.DB.QueryContext(ctx, `
               SELECT id, quote_id, description, quantity, unit, unit_price, total_price, category
               FROM quote_items WHERE quote_id = ? ORDER BY id`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.QuoteItem{}
	for rows.Next() {
		var it models.QuoteItem
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.Description, &it.Quantity, &it.Unit, &it.UnitPrice, &it.TotalPrice, &it.Category); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *QuoteRepository) listMilestones(ctx context.Context, quoteID int) ([]models.PaymentMilestone, error) {
	rows, err := r.DB.QueryContext(ctx, `
               SELECT id, quote_id, name, percentage, amount, ord, status, paid_at, evidence_url, created_at
               FROM payment_milestones WHERE quote_id = ? ORDER BY ord`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	milestones := []models.PaymentMilestone{}
	for rows.Next() {
		var m models.PaymentMilestone
		if err := rows.Scan(&m.ID, &m.QuoteID, &m.Name, &m.Percentage, &m.Amount, &m.Order, &m.Status, &m.PaidAt, &m.EvidenceURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

func insertItemsTx(ctx context.Context, tx *sql.Tx, quoteID int, items []models.QuoteItem) error {
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `
                       INSERT INTO quote_items (quote_id, description, quantity, unit, unit_price, total_price, category)
                       VALUES (?, ?, ?, ?, ?, ?, ?)`,
			quoteID, it.Description, it.Quantity, it.Unit, it.UnitPrice, it.TotalPrice, it.Category,
		); err != nil {
			return err
		}
	}
	return nil
}

func insertMilestonesTx(ctx context.Context, tx *sql.Tx, quoteID int, milestones []models.PaymentMilestone) error {
	for _, m := range milestones {
		if _, err := tx.ExecContext(ctx, `
                       INSERT INTO payment_milestones (quote_id, name, percentage, amount, ord, status, created_at)
                       VALUES (?, ?, ?, ?, ?, ?, NOW())`,
			quoteID, m.Name, m.Percentage, m.Amount, m.Order, fsm.MilestonePending,
		); err != nil {
			return err
		}
	}
	return nil
}

func insertHistoryTx(ctx context.Context, tx *sql.Tx, h models.QuoteHistory) error {
	_, err := tx.ExecContext(ctx, `
               INSERT INTO quote_history (quote_id, user_id, old_status, new_status, notes, created_at)
               VALUES (?, ?, ?, ?, ?, NOW())`,
		h.QuoteID, h.UserID, h.OldStatus, h.NewStatus, h.Notes,
	)
	return err
}
