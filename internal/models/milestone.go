package models

import "time"

// PaymentMilestone is a phased payment slice of a specific quote version.
// Amount is computed once from the quote total at creation and never recomputed.
type PaymentMilestone struct {
	ID          int        `json:"id"`
	QuoteID     int        `json:"quote_id"`
	Name        string     `json:"name"`
	Percentage  float64    `json:"percentage"`
	Amount      int64      `json:"amount"`
	Order       int        `json:"order"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	EvidenceURL *string    `json:"evidence_url,omitempty"`
	Evidence    []Evidence `json:"evidence,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Evidence is one structured audit entry attached to a milestone transition.
type Evidence struct {
	ID            int       `json:"id"`
	MilestoneID   int       `json:"milestone_id"`
	AuthorID      int       `json:"author_id"`
	Kind          string    `json:"kind"`
	Note          string    `json:"note"`
	PaymentMethod *string   `json:"payment_method,omitempty"`
	ProofURL      *string   `json:"proof_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Evidence kinds.
const (
	EvidenceDeposit = "deposit"
	EvidenceRelease = "release"
)

// VerificationCounts summarizes worker reports attached to a milestone.
type VerificationCounts struct {
	Total    int `json:"total_reports"`
	Approved int `json:"approved_reports"`
	Pending  int `json:"pending_reports"`
}

// EscrowStatus is the read-only projection returned by the STATUS action.
type EscrowStatus struct {
	MilestoneID     int    `json:"milestone_id"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	IsDeposited     bool   `json:"is_deposited"`
	IsReleased      bool   `json:"is_released"`
	CanRelease      bool   `json:"can_release"`
	TotalReports    int    `json:"total_reports"`
	ApprovedReports int    `json:"approved_reports"`
	PendingReports  int    `json:"pending_reports"`

	Evidence []Evidence `json:"evidence,omitempty"`
}

// EscrowActionRequest is the POST /milestones/{id}/escrow body.
type EscrowActionRequest struct {
	Action        string  `json:"action"`
	Amount        *int64  `json:"amount,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`
	ProofURL      *string `json:"proof_url,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// EscrowActionResponse is the envelope for escrow actions.
type EscrowActionResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
