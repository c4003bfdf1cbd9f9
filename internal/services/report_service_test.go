package services

import (
	"context"
	"errors"
	"testing"

	"qurylysBack/internal/fsm"
	"qurylysBack/internal/models"
)

type stubReportStore struct {
	reports map[int]models.WorkerReport
	nextID  int

	reviewed map[int]string
}

func newStubReportStore() *stubReportStore {
	return &stubReportStore{reports: map[int]models.WorkerReport{}, nextID: 1, reviewed: map[int]string{}}
}

func (s *stubReportStore) CreateReport(ctx context.Context, rep models.WorkerReport) (models.WorkerReport, error) {
	rep.ID = s.nextID
	rep.Status = models.ReportPending
	rep.CustomerStatus = models.ReportPending
	s.nextID++
	s.reports[rep.ID] = rep
	return rep, nil
}

func (s *stubReportStore) GetReportByID(ctx context.Context, id int) (models.WorkerReport, error) {
	rep, ok := s.reports[id]
	if !ok {
		return models.WorkerReport{}, models.ErrReportNotFound
	}
	return rep, nil
}

func (s *stubReportStore) SetCustomerStatus(ctx context.Context, id int, status string) error {
	rep, ok := s.reports[id]
	if !ok {
		return models.ErrReportNotFound
	}
	rep.CustomerStatus = status
	s.reports[id] = rep
	s.reviewed[id] = status
	return nil
}

func (s *stubReportStore) ListByMilestone(ctx context.Context, milestoneID int) ([]models.WorkerReport, error) {
	var out []models.WorkerReport
	for _, rep := range s.reports {
		if rep.MilestoneID == milestoneID {
			out = append(out, rep)
		}
	}
	return out, nil
}

func newReportFixture() (*ReportService, *stubReportStore, *stubNotifier) {
	milestones := &stubMilestoneStore{
		milestone: models.PaymentMilestone{ID: 7, QuoteID: 3, Name: "Advance", Amount: 3000000, Status: fsm.MilestoneEscrowPaid},
		quote:     models.QuoteRequest{ID: 3, CustomerID: 10, ContractorID: 20},
	}
	reports := newStubReportStore()
	notifier := &stubNotifier{}
	return &ReportService{ReportRepo: reports, Milestones: milestones, Notifier: notifier}, reports, notifier
}

func TestSubmitReport(t *testing.T) {
	svc, _, notifier := newReportFixture()
	contractor := models.AuthContext{UserID: 20, Role: models.RoleContractor}

	report, err := svc.Submit(context.Background(), contractor, 7, models.CreateReportRequest{
		Description: "Foundation poured, formwork removed",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.CustomerStatus != models.ReportPending {
		t.Errorf("customer_status = %s, want pending", report.CustomerStatus)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != 10 {
		t.Errorf("customer not notified: %v", notifier.sent)
	}

	t.Run("customer cannot submit", func(t *testing.T) {
		_, err := svc.Submit(context.Background(), models.AuthContext{UserID: 10, Role: models.RoleCustomer}, 7,
			models.CreateReportRequest{Description: "x"})
		if !errors.Is(err, models.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("empty description", func(t *testing.T) {
		_, err := svc.Submit(context.Background(), contractor, 7, models.CreateReportRequest{})
		if !errors.Is(err, models.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestReviewReport(t *testing.T) {
	svc, store, _ := newReportFixture()
	contractor := models.AuthContext{UserID: 20, Role: models.RoleContractor}
	customer := models.AuthContext{UserID: 10, Role: models.RoleCustomer}

	report, err := svc.Submit(context.Background(), contractor, 7, models.CreateReportRequest{Description: "done"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reviewed, err := svc.Review(context.Background(), customer, report.ID, models.ReviewReportRequest{Status: models.ReportApproved})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reviewed.CustomerStatus != models.ReportApproved {
		t.Errorf("customer_status = %s, want approved", reviewed.CustomerStatus)
	}
	if store.reviewed[report.ID] != models.ReportApproved {
		t.Error("review not persisted")
	}

	t.Run("second review conflicts", func(t *testing.T) {
		_, err := svc.Review(context.Background(), customer, report.ID, models.ReviewReportRequest{Status: models.ReportRejected})
		if !errors.Is(err, models.ErrStateConflict) {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})

	t.Run("contractor cannot review", func(t *testing.T) {
		r2, _ := svc.Submit(context.Background(), contractor, 7, models.CreateReportRequest{Description: "more"})
		_, err := svc.Review(context.Background(), contractor, r2.ID, models.ReviewReportRequest{Status: models.ReportApproved})
		if !errors.Is(err, models.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := svc.Review(context.Background(), customer, report.ID, models.ReviewReportRequest{Status: "maybe"})
		if !errors.Is(err, models.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("missing report", func(t *testing.T) {
		_, err := svc.Review(context.Background(), customer, 999, models.ReviewReportRequest{Status: models.ReportApproved})
		if !errors.Is(err, models.ErrReportNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}
