package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"qurylysBack/internal/fsm"
	"qurylysBack/internal/models"
)

type stubQuoteStore struct {
	quotes map[int]*models.QuoteRequest
	nextID int

	inPlace bool
	spawned bool
}

func newStubQuoteStore(quotes ...models.QuoteRequest) *stubQuoteStore {
	s := &stubQuoteStore{quotes: map[int]*models.QuoteRequest{}, nextID: 1}
	for i := range quotes {
		q := quotes[i]
		s.quotes[q.ID] = &q
		if q.ID >= s.nextID {
			s.nextID = q.ID + 1
		}
	}
	return s
}

func (s *stubQuoteStore) CreateQuote(ctx context.Context, q models.QuoteRequest) (models.QuoteRequest, error) {
	q.ID = s.nextID
	s.nextID++
	q.Status = fsm.QuotePending
	q.Version = 1
	q.IsLatest = true
	s.quotes[q.ID] = &q
	return q, nil
}

func (s *stubQuoteStore) GetQuoteByID(ctx context.Context, id int) (models.QuoteRequest, error) {
	q, ok := s.quotes[id]
	if !ok {
		return models.QuoteRequest{}, models.ErrQuoteNotFound
	}
	return *q, nil
}

func (s *stubQuoteStore) GetQuoteWithRelations(ctx context.Context, id int) (models.QuoteRequest, error) {
	return s.GetQuoteByID(ctx, id)
}

func (s *stubQuoteStore) ListQuotesByCustomer(ctx context.Context, customerID int) ([]models.QuoteRequest, error) {
	return nil, nil
}

func (s *stubQuoteStore) ListQuotesByContractor(ctx context.Context, contractorID int) ([]models.QuoteRequest, error) {
	return nil, nil
}

func (s *stubQuoteStore) ReplyInPlace(ctx context.Context, q models.QuoteRequest, items []models.QuoteItem, milestones []models.PaymentMilestone) error {
	stored, ok := s.quotes[q.ID]
	if !ok {
		return models.ErrQuoteNotFound
	}
	if stored.Status != fsm.QuotePending {
		return models.ErrStateConflict
	}
	stored.Status = fsm.QuoteReplied
	stored.PriceQuote = q.PriceQuote
	stored.Response = q.Response
	s.inPlace = true
	return nil
}

func (s *stubQuoteStore) SpawnVersion(ctx context.Context, parent, next models.QuoteRequest, items []models.QuoteItem, milestones []models.PaymentMilestone) (models.QuoteRequest, error) {
	stored, ok := s.quotes[parent.ID]
	if !ok {
		return models.QuoteRequest{}, models.ErrQuoteNotFound
	}
	if !stored.IsLatest {
		return models.QuoteRequest{}, models.ErrQuoteSuperseded
	}
	stored.IsLatest = false

	rootID := parent.ID
	if parent.ParentQuoteID != nil {
		rootID = *parent.ParentQuoteID
	}
	next.ID = s.nextID
	s.nextID++
	next.CustomerID = parent.CustomerID
	next.ContractorID = parent.ContractorID
	next.Details = parent.Details
	next.Status = fsm.QuoteReplied
	next.Version = parent.Version + 1
	next.ParentQuoteID = &rootID
	next.IsLatest = true
	s.quotes[next.ID] = &next
	s.spawned = true
	return next, nil
}

func (s *stubQuoteStore) SetOtp(ctx context.Context, q models.QuoteRequest, code string, expiresAt time.Time) error {
	return nil
}

func (s *stubQuoteStore) Decide(ctx context.Context, q models.QuoteRequest, toStatus string, actorID int, notes string) error {
	stored, ok := s.quotes[q.ID]
	if !ok {
		return models.ErrQuoteNotFound
	}
	stored.Status = toStatus
	return nil
}

type stubHistoryStore struct {
	requestedRoot int
	entries       []models.QuoteHistory
}

func (s *stubHistoryStore) ListChain(ctx context.Context, rootID int) ([]models.QuoteHistory, error) {
	s.requestedRoot = rootID
	return s.entries, nil
}

var contractorAuth = models.AuthContext{UserID: 20, Role: models.RoleContractor}

func replyRequest(price int64) models.UpdateQuoteRequest {
	return models.UpdateQuoteRequest{
		Items: []models.ReplyItemInput{
			{Description: "Concrete M300", Quantity: 1, Unit: "lot", UnitPrice: price},
		},
		Milestones: []models.ReplyMilestoneInput{
			{Name: "Advance", Percentage: 30},
			{Name: "Completion", Percentage: 70},
		},
	}
}

func newQuoteFixture(quotes ...models.QuoteRequest) (*QuoteService, *stubQuoteStore, *stubHistoryStore) {
	store := newStubQuoteStore(quotes...)
	history := &stubHistoryStore{}
	svc := &QuoteService{QuoteRepo: store, HistoryRepo: history, Notifier: &stubNotifier{}}
	return svc, store, history
}

func TestReplyInPlaceWhenPending(t *testing.T) {
	svc, store, _ := newQuoteFixture(models.QuoteRequest{
		ID: 1, CustomerID: 10, ContractorID: 20, Status: fsm.QuotePending, Version: 1, IsLatest: true,
	})

	updated, err := svc.Reply(context.Background(), contractorAuth, 1, replyRequest(10000000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.inPlace || store.spawned {
		t.Fatalf("pending quote must be priced in place, inPlace=%v spawned=%v", store.inPlace, store.spawned)
	}
	if updated.ID != 1 || updated.Version != 1 {
		t.Errorf("in-place reply changed identity: id=%d version=%d", updated.ID, updated.Version)
	}
	if updated.Status != fsm.QuoteReplied {
		t.Errorf("status = %s, want %s", updated.Status, fsm.QuoteReplied)
	}
	if updated.PriceQuote != 10000000 {
		t.Errorf("price_quote = %d, want 10000000", updated.PriceQuote)
	}
}

func TestReplySpawnsNextVersion(t *testing.T) {
	svc, store, _ := newQuoteFixture(models.QuoteRequest{
		ID: 1, CustomerID: 10, ContractorID: 20, Status: fsm.QuoteReplied, Version: 1, IsLatest: true,
	})

	v2, err := svc.Reply(context.Background(), contractorAuth, 1, replyRequest(9500000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.spawned || store.inPlace {
		t.Fatalf("replied quote must spawn a version, spawned=%v inPlace=%v", store.spawned, store.inPlace)
	}
	if v2.Version != 2 {
		t.Errorf("version = %d, want 2", v2.Version)
	}
	if v2.ParentQuoteID == nil || *v2.ParentQuoteID != 1 {
		t.Errorf("parent_quote_id = %v, want 1", v2.ParentQuoteID)
	}
	if !v2.IsLatest {
		t.Error("spawned version must be latest")
	}
	if store.quotes[1].IsLatest {
		t.Error("predecessor must lose the latest flag")
	}

	// A second revision chains off v2, keeps the same root and stays
	// contiguous.
	v3, err := svc.Reply(context.Background(), contractorAuth, v2.ID, replyRequest(9000000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v3.Version != 3 {
		t.Errorf("version = %d, want 3", v3.Version)
	}
	if v3.ParentQuoteID == nil || *v3.ParentQuoteID != 1 {
		t.Errorf("chain root = %v, want 1", v3.ParentQuoteID)
	}
	var latest int
	for id, q := range store.quotes {
		if q.IsLatest {
			latest++
			if id != v3.ID {
				t.Errorf("latest flag on %d, want %d", id, v3.ID)
			}
		}
	}
	if latest != 1 {
		t.Errorf("exactly one version must be latest, got %d", latest)
	}
}

func TestReplySpawnsFromAccepted(t *testing.T) {
	svc, store, _ := newQuoteFixture(models.QuoteRequest{
		ID: 4, CustomerID: 10, ContractorID: 20, Status: fsm.QuoteAccepted, Version: 2, IsLatest: true,
	})

	next, err := svc.Reply(context.Background(), contractorAuth, 4, replyRequest(8000000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.spawned {
		t.Fatal("accepted quote must spawn a version, not mutate")
	}
	if next.Version != 3 || next.Status != fsm.QuoteReplied {
		t.Errorf("spawned version=%d status=%s, want 3/%s", next.Version, next.Status, fsm.QuoteReplied)
	}
}

func TestReplyGuards(t *testing.T) {
	t.Run("terminal statuses close the negotiation", func(t *testing.T) {
		for _, status := range []string{fsm.QuoteRejected, fsm.QuoteCancelled} {
			svc, store, _ := newQuoteFixture(models.QuoteRequest{
				ID: 1, CustomerID: 10, ContractorID: 20, Status: status, Version: 1, IsLatest: true,
			})
			_, err := svc.Reply(context.Background(), contractorAuth, 1, replyRequest(1000))
			if !errors.Is(err, models.ErrStateConflict) {
				t.Fatalf("status %s: expected state conflict, got %v", status, err)
			}
			if store.inPlace || store.spawned {
				t.Fatalf("status %s: nothing must be written", status)
			}
		}
	})

	t.Run("superseded version rejects pricing", func(t *testing.T) {
		svc, _, _ := newQuoteFixture(models.QuoteRequest{
			ID: 1, CustomerID: 10, ContractorID: 20, Status: fsm.QuoteReplied, Version: 1, IsLatest: false,
		})
		_, err := svc.Reply(context.Background(), contractorAuth, 1, replyRequest(1000))
		if !errors.Is(err, models.ErrQuoteSuperseded) {
			t.Fatalf("expected superseded error, got %v", err)
		}
	})

	t.Run("customer cannot submit pricing", func(t *testing.T) {
		svc, _, _ := newQuoteFixture(models.QuoteRequest{
			ID: 1, CustomerID: 10, ContractorID: 20, Status: fsm.QuotePending, Version: 1, IsLatest: true,
		})
		_, err := svc.Reply(context.Background(), models.AuthContext{UserID: 10, Role: models.RoleCustomer}, 1, replyRequest(1000))
		if !errors.Is(err, models.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}

func TestGetHistoryCoversWholeChain(t *testing.T) {
	root := 1
	svc, _, history := newQuoteFixture(
		models.QuoteRequest{ID: 1, CustomerID: 10, ContractorID: 20, Status: fsm.QuoteReplied, Version: 1},
		models.QuoteRequest{ID: 5, CustomerID: 10, ContractorID: 20, Status: fsm.QuoteReplied, Version: 2, ParentQuoteID: &root, IsLatest: true},
	)
	history.entries = []models.QuoteHistory{{ID: 1, QuoteID: 1}, {ID: 2, QuoteID: 5}}

	auth := models.AuthContext{UserID: 10, Role: models.RoleCustomer}
	entries, err := svc.GetHistory(context.Background(), auth, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if history.requestedRoot != 1 {
		t.Errorf("history queried for %d, want chain root 1", history.requestedRoot)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want the whole chain", len(entries))
	}

	t.Run("root version queries itself", func(t *testing.T) {
		if _, err := svc.GetHistory(context.Background(), auth, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if history.requestedRoot != 1 {
			t.Errorf("history queried for %d, want 1", history.requestedRoot)
		}
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		_, err := svc.GetHistory(context.Background(), models.AuthContext{UserID: 99, Role: models.RoleContractor}, 5)
		if !errors.Is(err, models.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}
