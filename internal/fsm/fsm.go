package fsm

import (
	"context"
	"database/sql"
	"errors"
)

// Status constants used by the quote negotiation state machine.
const (
	QuotePending   = "pending"
	QuoteReplied   = "replied"
	QuoteAccepted  = "accepted"
	QuoteRejected  = "rejected"
	QuoteCancelled = "cancelled"
)

// Status constants used by the milestone escrow state machine.
const (
	MilestonePending    = "pending"
	MilestoneEscrowPaid = "escrow_paid"
	MilestoneReleased   = "released"
)

var quoteTransitions = map[string]map[string]struct{}{
	QuotePending: {
		QuoteReplied:   {},
		QuoteCancelled: {},
	},
	QuoteReplied: {
		QuoteAccepted:  {},
		QuoteRejected:  {},
		QuoteCancelled: {},
	},
	QuoteAccepted:  {},
	QuoteRejected:  {},
	QuoteCancelled: {},
}

// Milestone statuses are strictly monotonic: pending -> escrow_paid -> released.
var milestoneTransitions = map[string]map[string]struct{}{
	MilestonePending:    {MilestoneEscrowPaid: {}},
	MilestoneEscrowPaid: {MilestoneReleased: {}},
	MilestoneReleased:   {},
}

// QuoteCanTransition returns whether a quote can move from the current status to the target status.
func QuoteCanTransition(from, to string) bool {
	allowed, ok := quoteTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// MilestoneCanTransition returns whether a milestone can move from the current status to the target status.
func MilestoneCanTransition(from, to string) bool {
	allowed, ok := milestoneTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// QuoteTerminal reports whether a quote status has no outgoing transitions.
func QuoteTerminal(status string) bool {
	return len(quoteTransitions[status]) == 0
}

// Execer is the subset of *sql.DB / *sql.Tx used by Apply.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ErrStaleStatus is returned when the persisted status no longer matches fromStatus,
// i.e. a concurrent caller already moved the row.
var ErrStaleStatus = errors.New("fsm: status changed concurrently")

var applyQueries = map[string]string{
	"quotes":             `UPDATE quotes SET status = ?, updated_at = NOW() WHERE id = ? AND status = ?`,
	"payment_milestones": `UPDATE payment_milestones SET status = ? WHERE id = ? AND status = ?`,
}

// Apply updates a row status using an atomic compare-and-swap. The precondition
// check and the write happen in a single UPDATE so concurrent callers cannot
// both pass the same guard.
func Apply(ctx context.Context, ex Execer, table string, id int, fromStatus, toStatus string) error {
	switch table {
	case "quotes":
		if !QuoteCanTransition(fromStatus, toStatus) {
			return ErrStaleStatus
		}
	case "payment_milestones":
		if !MilestoneCanTransition(fromStatus, toStatus) {
			return ErrStaleStatus
		}
	default:
		return errors.New("fsm: unknown table " + table)
	}
	res, err := ex.ExecContext(ctx, applyQueries[table], toStatus, id, fromStatus)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrStaleStatus
	}
	return nil
}
