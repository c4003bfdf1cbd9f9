package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"qurylysBack/internal/fsm"
	"qurylysBack/internal/models"
)

type MilestoneRepository struct {
	DB    *sql.DB
	Users *UserRepository
}

func (r *MilestoneRepository) GetMilestoneByID(ctx context.Context, id int) (models.PaymentMilestone, error) {
	var m models.PaymentMilestone
	err := r.DB.QueryRowContext(ctx, `
               SELECT id, quote_id, name, percentage, amount, ord, status, paid_at, evidence_url, created_at
               FROM payment_milestones WHERE id = ?`, id).
		Scan(&m.ID, &m.QuoteID, &m.Name, &m.Percentage, &m.Amount, &m.Order, &m.Status, &m.PaidAt, &m.EvidenceURL, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PaymentMilestone{}, models.ErrMilestoneNotFound
	}
	return m, err
}

// GetMilestoneWithQuote loads a milestone together with its owning quote row,
// which carries the party ids needed for authorization.
func (r *MilestoneRepository) GetMilestoneWithQuote(ctx context.Context, id int) (models.PaymentMilestone, models.QuoteRequest, error) {
	m, err := r.GetMilestoneByID(ctx, id)
	if err != nil {
		return models.PaymentMilestone{}, models.QuoteRequest{}, err
	}
	row := r.DB.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, m.QuoteID)
	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PaymentMilestone{}, models.QuoteRequest{}, models.ErrQuoteNotFound
	}
	if err != nil {
		return models.PaymentMilestone{}, models.QuoteRequest{}, err
	}
	return m, q, nil
}

// MarkDeposited moves a milestone pending -> escrow_paid. The transition is a
// compare-and-swap so two concurrent deposits cannot both succeed.
func (r *MilestoneRepository) MarkDeposited(ctx context.Context, id int, paidAt time.Time, ev models.Evidence) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fsm.Apply(ctx, tx, "payment_milestones", id, fsm.MilestonePending, fsm.MilestoneEscrowPaid); err != nil {
		if errors.Is(err, fsm.ErrStaleStatus) {
			return fmt.Errorf("%w: milestone already paid or in progress", models.ErrStateConflict)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE payment_milestones SET paid_at = ?, evidence_url = COALESCE(?, evidence_url) WHERE id = ?`,
		paidAt, ev.ProofURL, id,
	); err != nil {
		return err
	}
	if err := insertEvidenceTx(ctx, tx, ev); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkReleased moves a milestone escrow_paid -> released via compare-and-swap
// and applies the contractor trust reward in the same transaction, so the
// status flip and the reward commit or roll back together. The
// approved-evidence gate is checked by the caller before this, but the CAS
// guarantees a second Release can never double-process.
func (r *MilestoneRepository) MarkReleased(ctx context.Context, id int, contractorID int, ev models.Evidence) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fsm.Apply(ctx, tx, "payment_milestones", id, fsm.MilestoneEscrowPaid, fsm.MilestoneReleased); err != nil {
		if errors.Is(err, fsm.ErrStaleStatus) {
			return fmt.Errorf("%w: milestone is not held in escrow", models.ErrStateConflict)
		}
		return err
	}
	if err := insertEvidenceTx(ctx, tx, ev); err != nil {
		return err
	}
	if err := r.Users.ApplyReleaseReward(ctx, tx, contractorID); err != nil {
		return err
	}
	return tx.Commit()
}

// VerificationCounts returns worker report counters for a milestone.
func (r *MilestoneRepository) VerificationCounts(ctx context.Context, milestoneID int) (models.VerificationCounts, error) {
	var c models.VerificationCounts
	err := r.DB.QueryRowContext(ctx, `
               SELECT COUNT(*),
                      COALESCE(SUM(customer_status = 'approved'), 0),
                      COALESCE(SUM(customer_status = 'pending'), 0)
               FROM worker_reports WHERE milestone_id = ?`, milestoneID).
		Scan(&c.Total, &c.Approved, &c.Pending)
	return c, err
}

func (r *MilestoneRepository) ListEvidence(ctx context.Context, milestoneID int) ([]models.Evidence, error) {
	rows, err := r.DB.QueryContext(ctx, `
               SELECT id, milestone_id, author_id, kind, note, payment_method, proof_url, created_at
               FROM milestone_evidence WHERE milestone_id = ? ORDER BY created_at, id`, milestoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evidence := []models.Evidence{}
	for rows.Next() {
		var ev models.Evidence
		if err := rows.Scan(&ev.ID, &ev.MilestoneID, &ev.AuthorID, &ev.Kind, &ev.Note, &ev.PaymentMethod, &ev.ProofURL, &ev.CreatedAt); err != nil {
			return nil, err
		}
		evidence = append(evidence, ev)
	}
	return evidence, rows.Err()
}

func insertEvidenceTx(ctx context.Context, tx *sql.Tx, ev models.Evidence) error {
	_, err := tx.ExecContext(ctx, `
               INSERT INTO milestone_evidence (milestone_id, author_id, kind, note, payment_method, proof_url, created_at)
               VALUES (?, ?, ?, ?, ?, ?, NOW())`,
		ev.MilestoneID, ev.AuthorID, ev.Kind, ev.Note, ev.PaymentMethod, ev.ProofURL,
	)
	return err
}
