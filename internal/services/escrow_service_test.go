package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"qurylysBack/internal/fsm"
	"qurylysBack/internal/models"
)

type stubMilestoneStore struct {
	milestone  models.PaymentMilestone
	quote      models.QuoteRequest
	counts     models.VerificationCounts
	evidence   []models.Evidence
	releaseErr error

	deposited bool
	released  bool
	rewarded  []int
}

func (s *stubMilestoneStore) GetMilestoneWithQuote(ctx context.Context, id int) (models.PaymentMilestone, models.QuoteRequest, error) {
	if s.milestone.ID == 0 {
		return models.PaymentMilestone{}, models.QuoteRequest{}, models.ErrMilestoneNotFound
	}
	return s.milestone, s.quote, nil
}

func (s *stubMilestoneStore) MarkDeposited(ctx context.Context, id int, paidAt time.Time, ev models.Evidence) error {
	s.deposited = true
	return nil
}

func (s *stubMilestoneStore) MarkReleased(ctx context.Context, id int, contractorID int, ev models.Evidence) error {
	if s.releaseErr != nil {
		return s.releaseErr
	}
	s.released = true
	s.rewarded = append(s.rewarded, contractorID)
	return nil
}

func (s *stubMilestoneStore) VerificationCounts(ctx context.Context, id int) (models.VerificationCounts, error) {
	return s.counts, nil
}

func (s *stubMilestoneStore) ListEvidence(ctx context.Context, id int) ([]models.Evidence, error) {
	return s.evidence, nil
}

type stubNotifier struct {
	sent []int
}

func (s *stubNotifier) Notify(ctx context.Context, userID int, title, body string, data map[string]string) {
	s.sent = append(s.sent, userID)
}

func newEscrowFixture(status string, counts models.VerificationCounts) (*EscrowService, *stubMilestoneStore, *stubNotifier) {
	store := &stubMilestoneStore{
		milestone: models.PaymentMilestone{ID: 7, QuoteID: 3, Name: "Advance", Amount: 3000000, Status: status},
		quote:     models.QuoteRequest{ID: 3, CustomerID: 10, ContractorID: 20},
		counts:    counts,
	}
	notifier := &stubNotifier{}
	svc := &EscrowService{Milestones: store, Notifier: notifier}
	return svc, store, notifier
}

func amount(v int64) *int64 { return &v }

func TestDeposit(t *testing.T) {
	svc, store, notifier := newEscrowFixture(fsm.MilestonePending, models.VerificationCounts{})
	customer := models.AuthContext{UserID: 10, Role: models.RoleCustomer}

	m, err := svc.Deposit(context.Background(), customer, 7, models.EscrowActionRequest{
		Action: "DEPOSIT",
		Amount: amount(3000000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.deposited {
		t.Error("deposit was not persisted")
	}
	if m.Status != fsm.MilestoneEscrowPaid {
		t.Errorf("status = %s, want %s", m.Status, fsm.MilestoneEscrowPaid)
	}
	if m.PaidAt == nil {
		t.Error("paid_at not set")
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != 20 {
		t.Errorf("contractor not notified: %v", notifier.sent)
	}
}

func TestDepositGuards(t *testing.T) {
	customer := models.AuthContext{UserID: 10, Role: models.RoleCustomer}

	t.Run("contractor cannot deposit", func(t *testing.T) {
		svc, _, _ := newEscrowFixture(fsm.MilestonePending, models.VerificationCounts{})
		_, err := svc.Deposit(context.Background(), models.AuthContext{UserID: 20, Role: models.RoleContractor}, 7,
			models.EscrowActionRequest{Amount: amount(3000000)})
		if !errors.Is(err, models.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("already paid", func(t *testing.T) {
		svc, store, _ := newEscrowFixture(fsm.MilestoneEscrowPaid, models.VerificationCounts{})
		_, err := svc.Deposit(context.Background(), customer, 7, models.EscrowActionRequest{Amount: amount(3000000)})
		if !errors.Is(err, models.ErrStateConflict) {
			t.Fatalf("expected state conflict, got %v", err)
		}
		if store.deposited {
			t.Error("deposit must not be persisted")
		}
	})

	t.Run("missing amount", func(t *testing.T) {
		svc, _, _ := newEscrowFixture(fsm.MilestonePending, models.VerificationCounts{})
		_, err := svc.Deposit(context.Background(), customer, 7, models.EscrowActionRequest{})
		if !errors.Is(err, models.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("insufficient amount", func(t *testing.T) {
		svc, _, _ := newEscrowFixture(fsm.MilestonePending, models.VerificationCounts{})
		_, err := svc.Deposit(context.Background(), customer, 7, models.EscrowActionRequest{Amount: amount(2999999)})
		if !errors.Is(err, models.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestRelease(t *testing.T) {
	svc, store, notifier := newEscrowFixture(fsm.MilestoneEscrowPaid,
		models.VerificationCounts{Total: 2, Approved: 1, Pending: 1})
	customer := models.AuthContext{UserID: 10, Role: models.RoleCustomer}

	m, err := svc.Release(context.Background(), customer, 7, models.EscrowActionRequest{Action: "RELEASE"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.released {
		t.Error("release was not persisted")
	}
	if m.Status != fsm.MilestoneReleased {
		t.Errorf("status = %s, want %s", m.Status, fsm.MilestoneReleased)
	}
	if len(store.rewarded) != 1 || store.rewarded[0] != 20 {
		t.Errorf("contractor reward not written with the release: %v", store.rewarded)
	}
	if len(notifier.sent) != 2 {
		t.Errorf("both parties should be notified, got %v", notifier.sent)
	}
}

func TestReleaseWriteFailure(t *testing.T) {
	svc, store, notifier := newEscrowFixture(fsm.MilestoneEscrowPaid,
		models.VerificationCounts{Total: 1, Approved: 1})
	store.releaseErr = errors.New("driver: bad connection")
	customer := models.AuthContext{UserID: 10, Role: models.RoleCustomer}

	_, err := svc.Release(context.Background(), customer, 7, models.EscrowActionRequest{})
	if err == nil {
		t.Fatal("expected the store error to surface")
	}
	if store.released {
		t.Error("release must not be recorded on a failed write")
	}
	if len(store.rewarded) != 0 {
		t.Error("reward must not outlive a failed release write")
	}
	if len(notifier.sent) != 0 {
		t.Errorf("no notifications on a failed release, got %v", notifier.sent)
	}

	// The write failed atomically, so a retry goes through cleanly.
	store.releaseErr = nil
	if _, err := svc.Release(context.Background(), customer, 7, models.EscrowActionRequest{}); err != nil {
		t.Fatalf("retry after transient failure: %v", err)
	}
	if !store.released || len(store.rewarded) != 1 || store.rewarded[0] != 20 {
		t.Errorf("retry did not release with the reward: released=%v rewarded=%v", store.released, store.rewarded)
	}
}

func TestReleaseGuards(t *testing.T) {
	customer := models.AuthContext{UserID: 10, Role: models.RoleCustomer}

	t.Run("not in escrow", func(t *testing.T) {
		svc, store, _ := newEscrowFixture(fsm.MilestonePending, models.VerificationCounts{Approved: 1})
		_, err := svc.Release(context.Background(), customer, 7, models.EscrowActionRequest{})
		if !errors.Is(err, models.ErrStateConflict) {
			t.Fatalf("expected state conflict, got %v", err)
		}
		if len(store.rewarded) != 0 {
			t.Error("reward must not be applied")
		}
	})

	t.Run("already released", func(t *testing.T) {
		svc, store, _ := newEscrowFixture(fsm.MilestoneReleased, models.VerificationCounts{Approved: 1})
		_, err := svc.Release(context.Background(), customer, 7, models.EscrowActionRequest{})
		if !errors.Is(err, models.ErrStateConflict) {
			t.Fatalf("expected state conflict, got %v", err)
		}
		if len(store.rewarded) != 0 {
			t.Error("reward must not be applied twice")
		}
	})

	t.Run("no approved evidence", func(t *testing.T) {
		svc, store, _ := newEscrowFixture(fsm.MilestoneEscrowPaid,
			models.VerificationCounts{Total: 3, Pending: 3})
		_, err := svc.Release(context.Background(), customer, 7, models.EscrowActionRequest{})
		if !errors.Is(err, models.ErrStateConflict) {
			t.Fatalf("expected state conflict, got %v", err)
		}
		if store.released {
			t.Error("release must not be persisted")
		}
	})

	t.Run("contractor cannot release", func(t *testing.T) {
		svc, _, _ := newEscrowFixture(fsm.MilestoneEscrowPaid, models.VerificationCounts{Approved: 1})
		_, err := svc.Release(context.Background(), models.AuthContext{UserID: 20, Role: models.RoleContractor}, 7,
			models.EscrowActionRequest{})
		if !errors.Is(err, models.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}

func TestEscrowStatus(t *testing.T) {
	svc, store, _ := newEscrowFixture(fsm.MilestoneEscrowPaid,
		models.VerificationCounts{Total: 2, Approved: 1, Pending: 1})
	store.evidence = []models.Evidence{{ID: 1, MilestoneID: 7, Kind: models.EvidenceDeposit}}

	status, err := svc.Status(context.Background(), models.AuthContext{UserID: 20, Role: models.RoleContractor}, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.IsDeposited || status.IsReleased {
		t.Errorf("flags wrong: deposited=%v released=%v", status.IsDeposited, status.IsReleased)
	}
	if !status.CanRelease {
		t.Error("can_release should be true with approved reports")
	}
	if len(status.Evidence) != 1 {
		t.Errorf("evidence not attached: %v", status.Evidence)
	}

	t.Run("stranger is rejected", func(t *testing.T) {
		_, err := svc.Status(context.Background(), models.AuthContext{UserID: 99, Role: models.RoleCustomer}, 7)
		if !errors.Is(err, models.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}

func TestBuildEscrowStatusCanRelease(t *testing.T) {
	tests := []struct {
		name   string
		status string
		counts models.VerificationCounts
		want   bool
	}{
		{"pending no reports", fsm.MilestonePending, models.VerificationCounts{}, false},
		{"paid no reports", fsm.MilestoneEscrowPaid, models.VerificationCounts{Total: 1, Pending: 1}, false},
		{"paid with approval", fsm.MilestoneEscrowPaid, models.VerificationCounts{Total: 1, Approved: 1}, true},
		{"released", fsm.MilestoneReleased, models.VerificationCounts{Total: 1, Approved: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildEscrowStatus(models.PaymentMilestone{ID: 1, Status: tt.status}, tt.counts)
			if got.CanRelease != tt.want {
				t.Errorf("can_release = %v, want %v", got.CanRelease, tt.want)
			}
		})
	}
}
