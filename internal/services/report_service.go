package services

import (
	"context"
	"fmt"

	"qurylysBack/internal/models"
)

// ReportStore is the persistence surface for worker reports.
type ReportStore interface {
	CreateReport(ctx context.Context, rep models.WorkerReport) (models.WorkerReport, error)
	GetReportByID(ctx context.Context, id int) (models.WorkerReport, error)
	SetCustomerStatus(ctx context.Context, id int, status string) error
	ListByMilestone(ctx context.Context, milestoneID int) ([]models.WorkerReport, error)
}

// ReportService handles work evidence: contractors submit reports against a
// milestone, customers approve or reject them. An approved report is what
// unlocks the escrow release.
type ReportService struct {
	ReportRepo ReportStore
	Milestones MilestoneStore
	Notifier   Notifier
}

func (s *ReportService) Submit(ctx context.Context, auth models.AuthContext, milestoneID int, req models.CreateReportRequest) (models.WorkerReport, error) {
	if req.Description == "" {
		return models.WorkerReport{}, fmt.Errorf("%w: description is required", models.ErrValidation)
	}
	m, quote, err := s.Milestones.GetMilestoneWithQuote(ctx, milestoneID)
	if err != nil {
		return models.WorkerReport{}, err
	}
	if auth.UserID != quote.ContractorID {
		return models.WorkerReport{}, fmt.Errorf("%w: only the contractor may submit work reports", models.ErrForbidden)
	}

	report, err := s.ReportRepo.CreateReport(ctx, models.WorkerReport{
		MilestoneID: m.ID,
		WorkerID:    auth.UserID,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		return models.WorkerReport{}, err
	}

	s.Notifier.Notify(ctx, quote.CustomerID, "Work report submitted",
		fmt.Sprintf("The contractor reported progress on milestone %q", m.Name), milestonePayload(m))
	return report, nil
}

func (s *ReportService) Review(ctx context.Context, auth models.AuthContext, reportID int, req models.ReviewReportRequest) (models.WorkerReport, error) {
	if req.Status != models.ReportApproved && req.Status != models.ReportRejected {
		return models.WorkerReport{}, fmt.Errorf("%w: status must be approved or rejected", models.ErrValidation)
	}
	report, err := s.ReportRepo.GetReportByID(ctx, reportID)
	if err != nil {
		return models.WorkerReport{}, err
	}
	m, quote, err := s.Milestones.GetMilestoneWithQuote(ctx, report.MilestoneID)
	if err != nil {
		return models.WorkerReport{}, err
	}
	if auth.UserID != quote.CustomerID {
		return models.WorkerReport{}, fmt.Errorf("%w: only the customer may review work reports", models.ErrForbidden)
	}
	if report.CustomerStatus != models.ReportPending {
		return models.WorkerReport{}, fmt.Errorf("%w: report already reviewed", models.ErrStateConflict)
	}

	if err := s.ReportRepo.SetCustomerStatus(ctx, report.ID, req.Status); err != nil {
		return models.WorkerReport{}, err
	}
	report.CustomerStatus = req.Status

	s.Notifier.Notify(ctx, report.WorkerID, "Work report "+req.Status,
		fmt.Sprintf("The customer %s your report on milestone %q", req.Status, m.Name), milestonePayload(m))
	return report, nil
}

func (s *ReportService) ListByMilestone(ctx context.Context, auth models.AuthContext, milestoneID int) ([]models.WorkerReport, error) {
	_, quote, err := s.Milestones.GetMilestoneWithQuote(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if !isParty(auth, quote) {
		return nil, fmt.Errorf("%w: not a party to this quote", models.ErrForbidden)
	}
	return s.ReportRepo.ListByMilestone(ctx, milestoneID)
}
