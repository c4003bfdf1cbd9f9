package services

import (
	"context"
	"fmt"
	"time"

	"qurylysBack/internal/fsm"
	"qurylysBack/internal/models"
)

// MilestoneStore is the persistence surface the escrow engine needs. The
// deposit/release writes are compare-and-swap inside the store, so a stale
// pre-check here can never double-process a milestone.
type MilestoneStore interface {
	GetMilestoneWithQuote(ctx context.Context, id int) (models.PaymentMilestone, models.QuoteRequest, error)
	MarkDeposited(ctx context.Context, id int, paidAt time.Time, ev models.Evidence) error
	MarkReleased(ctx context.Context, id int, contractorID int, ev models.Evidence) error
	VerificationCounts(ctx context.Context, id int) (models.VerificationCounts, error)
	ListEvidence(ctx context.Context, id int) ([]models.Evidence, error)
}

type EscrowService struct {
	Milestones MilestoneStore
	Notifier   Notifier
}

// Deposit marks a pending milestone as held in escrow.
func (s *EscrowService) Deposit(ctx context.Context, auth models.AuthContext, milestoneID int, req models.EscrowActionRequest) (models.PaymentMilestone, error) {
	m, quote, err := s.Milestones.GetMilestoneWithQuote(ctx, milestoneID)
	if err != nil {
		return models.PaymentMilestone{}, err
	}
	if auth.UserID != quote.CustomerID {
		return models.PaymentMilestone{}, fmt.Errorf("%w: only the customer may deposit into escrow", models.ErrForbidden)
	}
	if m.Status != fsm.MilestonePending {
		return models.PaymentMilestone{}, fmt.Errorf("%w: milestone already paid or in progress", models.ErrStateConflict)
	}
	if req.Amount == nil {
		return models.PaymentMilestone{}, fmt.Errorf("%w: amount is required", models.ErrValidation)
	}
	if *req.Amount < m.Amount {
		return models.PaymentMilestone{}, fmt.Errorf("%w: minimum required amount is %d", models.ErrValidation, m.Amount)
	}

	now := time.Now()
	ev := models.Evidence{
		MilestoneID:   m.ID,
		AuthorID:      auth.UserID,
		Kind:          models.EvidenceDeposit,
		Note:          depositNote(*req.Amount, req.PaymentMethod, req.Notes),
		PaymentMethod: req.PaymentMethod,
		ProofURL:      req.ProofURL,
	}
	if err := s.Milestones.MarkDeposited(ctx, m.ID, now, ev); err != nil {
		return models.PaymentMilestone{}, err
	}
	m.Status = fsm.MilestoneEscrowPaid
	m.PaidAt = &now
	if req.ProofURL != nil {
		m.EvidenceURL = req.ProofURL
	}

	s.Notifier.Notify(ctx, quote.ContractorID, "Milestone funded",
		fmt.Sprintf("Milestone %q is now held in escrow", m.Name), milestonePayload(m))
	return m, nil
}

// Release pays out an escrowed milestone. It requires at least one worker
// report approved by the customer. The contractor trust reward is written by
// the store inside the release transaction, so a released milestone always
// carries its reward.
func (s *EscrowService) Release(ctx context.Context, auth models.AuthContext, milestoneID int, req models.EscrowActionRequest) (models.PaymentMilestone, error) {
	m, quote, err := s.Milestones.GetMilestoneWithQuote(ctx, milestoneID)
	if err != nil {
		return models.PaymentMilestone{}, err
	}
	if auth.UserID != quote.CustomerID {
		return models.PaymentMilestone{}, fmt.Errorf("%w: only the customer may release escrow", models.ErrForbidden)
	}
	if m.Status != fsm.MilestoneEscrowPaid {
		return models.PaymentMilestone{}, fmt.Errorf("%w: milestone is not held in escrow", models.ErrStateConflict)
	}
	counts, err := s.Milestones.VerificationCounts(ctx, m.ID)
	if err != nil {
		return models.PaymentMilestone{}, err
	}
	if counts.Approved == 0 {
		return models.PaymentMilestone{}, fmt.Errorf("%w: no approved work evidence", models.ErrStateConflict)
	}

	ev := models.Evidence{
		MilestoneID: m.ID,
		AuthorID:    auth.UserID,
		Kind:        models.EvidenceRelease,
		Note:        releaseNote(req.Notes),
	}
	if err := s.Milestones.MarkReleased(ctx, m.ID, quote.ContractorID, ev); err != nil {
		return models.PaymentMilestone{}, err
	}
	m.Status = fsm.MilestoneReleased

	s.Notifier.Notify(ctx, quote.ContractorID, "Milestone released",
		fmt.Sprintf("Payment for milestone %q has been released", m.Name), milestonePayload(m))
	s.Notifier.Notify(ctx, quote.CustomerID, "Milestone released",
		fmt.Sprintf("You released the payment for milestone %q", m.Name), milestonePayload(m))
	return m, nil
}

// Status returns the read-only escrow projection for a milestone.
func (s *EscrowService) Status(ctx context.Context, auth models.AuthContext, milestoneID int) (models.EscrowStatus, error) {
	m, quote, err := s.Milestones.GetMilestoneWithQuote(ctx, milestoneID)
	if err != nil {
		return models.EscrowStatus{}, err
	}
	if !isParty(auth, quote) {
		return models.EscrowStatus{}, fmt.Errorf("%w: not a party to this quote", models.ErrForbidden)
	}
	counts, err := s.Milestones.VerificationCounts(ctx, m.ID)
	if err != nil {
		return models.EscrowStatus{}, err
	}
	status := buildEscrowStatus(m, counts)
	if status.Evidence, err = s.Milestones.ListEvidence(ctx, m.ID); err != nil {
		return models.EscrowStatus{}, err
	}
	return status, nil
}

func buildEscrowStatus(m models.PaymentMilestone, counts models.VerificationCounts) models.EscrowStatus {
	return models.EscrowStatus{
		MilestoneID:     m.ID,
		Status:          m.Status,
		Amount:          m.Amount,
		IsDeposited:     m.Status == fsm.MilestoneEscrowPaid || m.Status == fsm.MilestoneReleased,
		IsReleased:      m.Status == fsm.MilestoneReleased,
		CanRelease:      m.Status == fsm.MilestoneEscrowPaid && counts.Approved > 0,
		TotalReports:    counts.Total,
		ApprovedReports: counts.Approved,
		PendingReports:  counts.Pending,
	}
}

func depositNote(amount int64, method, notes *string) string {
	note := fmt.Sprintf("deposit of %d received", amount)
	if method != nil && *method != "" {
		note += " via " + *method
	}
	if notes != nil && *notes != "" {
		note += ": " + *notes
	}
	return note
}

func releaseNote(notes *string) string {
	if notes != nil && *notes != "" {
		return "released: " + *notes
	}
	return "released after approved work evidence"
}

func milestonePayload(m models.PaymentMilestone) map[string]string {
	return map[string]string{
		"milestone_id": fmt.Sprint(m.ID),
		"quote_id":     fmt.Sprint(m.QuoteID),
		"status":       m.Status,
	}
}
