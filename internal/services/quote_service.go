package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"qurylysBack/internal/fsm"
	"qurylysBack/internal/models"
	"qurylysBack/internal/repositories"
)

// QuoteStore is the persistence surface of the negotiation chain. In-place
// replies and version spawns are guarded inside the store (compare-and-swap on
// the status and the is_latest flag respectively), so the dispatch here never
// double-applies under concurrency.
type QuoteStore interface {
	CreateQuote(ctx context.Context, q models.QuoteRequest) (models.QuoteRequest, error)
	GetQuoteByID(ctx context.Context, id int) (models.QuoteRequest, error)
	GetQuoteWithRelations(ctx context.Context, id int) (models.QuoteRequest, error)
	ListQuotesByCustomer(ctx context.Context, customerID int) ([]models.QuoteRequest, error)
	ListQuotesByContractor(ctx context.Context, contractorID int) ([]models.QuoteRequest, error)
	ReplyInPlace(ctx context.Context, q models.QuoteRequest, items []models.QuoteItem, milestones []models.PaymentMilestone) error
	SpawnVersion(ctx context.Context, parent, next models.QuoteRequest, items []models.QuoteItem, milestones []models.PaymentMilestone) (models.QuoteRequest, error)
	SetOtp(ctx context.Context, q models.QuoteRequest, code string, expiresAt time.Time) error
	Decide(ctx context.Context, q models.QuoteRequest, toStatus string, actorID int, notes string) error
}

// HistoryStore reads the append-only audit log of a negotiation chain.
type HistoryStore interface {
	ListChain(ctx context.Context, rootID int) ([]models.QuoteHistory, error)
}

// QuoteService drives the negotiation state machine: create, reply (with
// versioning-by-copy), OTP issuance and terminal customer decisions.
type QuoteService struct {
	QuoteRepo   QuoteStore
	HistoryRepo HistoryStore
	UserRepo    *repositories.UserRepository
	Chat        *ChatService
	OtpLimiter  *repositories.OtpLimiter
	Notifier    Notifier
}

func (s *QuoteService) CreateQuote(ctx context.Context, auth models.AuthContext, req models.CreateQuoteRequest) (models.QuoteRequest, error) {
	if req.Details == "" {
		return models.QuoteRequest{}, fmt.Errorf("%w: details are required", models.ErrValidation)
	}
	if req.ContractorID <= 0 {
		return models.QuoteRequest{}, fmt.Errorf("%w: contractor_id is required", models.ErrValidation)
	}
	if auth.UserID == req.ContractorID {
		return models.QuoteRequest{}, fmt.Errorf("%w: cannot request a quote from yourself", models.ErrForbidden)
	}
	contractor, err := s.UserRepo.GetContractorByID(ctx, req.ContractorID)
	if err != nil {
		return models.QuoteRequest{}, err
	}

	// The conversation thread is a collaborator side effect; a chat store
	// failure must not block the quote request.
	conversationID, err := s.Chat.FindOrCreateConversation(ctx, auth.UserID, contractor.ID, req.ProjectID)
	if err != nil {
		log.Printf("failed to ensure conversation between %d and %d: %v", auth.UserID, contractor.ID, err)
		conversationID = 0
	}

	quote, err := s.QuoteRepo.CreateQuote(ctx, models.QuoteRequest{
		CustomerID:     auth.UserID,
		ContractorID:   contractor.ID,
		ProjectID:      req.ProjectID,
		Details:        req.Details,
		Budget:         req.Budget,
		Location:       req.Location,
		StartDate:      req.StartDate,
		Attachments:    req.Attachments,
		ConversationID: conversationID,
	})
	if err != nil {
		return models.QuoteRequest{}, err
	}

	if err := s.Chat.PostSystemMessage(ctx, conversationID,
		fmt.Sprintf("New quote request #%d: %s", quote.ID, quote.Details)); err != nil {
		log.Printf("failed to post system message for quote %d: %v", quote.ID, err)
	}
	s.Notifier.Notify(ctx, contractor.ID, "New quote request",
		"A customer sent you a quote request", quotePayload(quote))
	return quote, nil
}

// Reply applies contractor pricing. A still-pending record is updated in
// place; a record the customer has already seen priced (replied or accepted)
// spawns the next version of the chain instead.
func (s *QuoteService) Reply(ctx context.Context, auth models.AuthContext, quoteID int, req models.UpdateQuoteRequest) (models.QuoteRequest, error) {
	quote, err := s.QuoteRepo.GetQuoteByID(ctx, quoteID)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	if auth.UserID != quote.ContractorID {
		return models.QuoteRequest{}, fmt.Errorf("%w: only the contractor may submit pricing", models.ErrForbidden)
	}
	if !quote.IsLatest {
		return models.QuoteRequest{}, fmt.Errorf("%w", models.ErrQuoteSuperseded)
	}

	items, total, err := BuildQuoteItems(req.Items)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	milestones, err := DeriveMilestones(total, req.Milestones)
	if err != nil {
		return models.QuoteRequest{}, err
	}

	switch quote.Status {
	case fsm.QuotePending:
		quote.PriceQuote = total
		quote.Response = req.Response
		if err := s.QuoteRepo.ReplyInPlace(ctx, quote, items, milestones); err != nil {
			return models.QuoteRequest{}, err
		}
	case fsm.QuoteReplied, fsm.QuoteAccepted:
		next := models.QuoteRequest{PriceQuote: total, Response: req.Response, Attachments: quote.Attachments}
		if quote, err = s.QuoteRepo.SpawnVersion(ctx, quote, next, items, milestones); err != nil {
			return models.QuoteRequest{}, err
		}
	default:
		return models.QuoteRequest{}, fmt.Errorf("%w: quote negotiation is closed (%s)", models.ErrStateConflict, quote.Status)
	}

	updated, err := s.QuoteRepo.GetQuoteWithRelations(ctx, quote.ID)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	s.Notifier.Notify(ctx, updated.CustomerID, "Quote received",
		fmt.Sprintf("The contractor quoted %d for your request", updated.PriceQuote), quotePayload(updated))
	return updated, nil
}

// RequestOtp issues a 6-digit confirmation code with a 10-minute expiry and
// delivers it to the customer out of band. The consuming acceptance step is an
// integration point that does not exist yet.
func (s *QuoteService) RequestOtp(ctx context.Context, auth models.AuthContext, quoteID int) (time.Time, error) {
	quote, err := s.QuoteRepo.GetQuoteByID(ctx, quoteID)
	if err != nil {
		return time.Time{}, err
	}
	if auth.UserID != quote.CustomerID {
		return time.Time{}, fmt.Errorf("%w: only the customer may request a confirmation code", models.ErrForbidden)
	}
	if !quote.IsLatest {
		return time.Time{}, fmt.Errorf("%w", models.ErrQuoteSuperseded)
	}
	if quote.Status != fsm.QuoteReplied {
		return time.Time{}, fmt.Errorf("%w: there is no quote to confirm yet", models.ErrStateConflict)
	}
	if err := s.OtpLimiter.Allow(ctx, quote.ID); err != nil {
		return time.Time{}, err
	}

	code, err := generateOtpCode()
	if err != nil {
		return time.Time{}, err
	}
	expiresAt := time.Now().Add(otpTTL)
	if err := s.QuoteRepo.SetOtp(ctx, quote, code, expiresAt); err != nil {
		return time.Time{}, err
	}
	s.Notifier.Notify(ctx, quote.CustomerID, "Confirmation code",
		fmt.Sprintf("Your confirmation code is %s", code), quotePayload(quote))
	return expiresAt, nil
}

// Decide records a terminal customer decision (rejected or cancelled).
func (s *QuoteService) Decide(ctx context.Context, auth models.AuthContext, quoteID int, status string) (models.QuoteRequest, error) {
	if status != fsm.QuoteRejected && status != fsm.QuoteCancelled {
		return models.QuoteRequest{}, fmt.Errorf("%w: unsupported status %q", models.ErrValidation, status)
	}
	quote, err := s.QuoteRepo.GetQuoteByID(ctx, quoteID)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	if auth.UserID != quote.CustomerID {
		return models.QuoteRequest{}, fmt.Errorf("%w: only the customer may decide on a quote", models.ErrForbidden)
	}
	if !quote.IsLatest {
		return models.QuoteRequest{}, fmt.Errorf("%w", models.ErrQuoteSuperseded)
	}

	notes := "customer rejected the quote"
	if status == fsm.QuoteCancelled {
		notes = "customer cancelled the request"
	}
	if err := s.QuoteRepo.Decide(ctx, quote, status, auth.UserID, notes); err != nil {
		return models.QuoteRequest{}, err
	}

	updated, err := s.QuoteRepo.GetQuoteWithRelations(ctx, quote.ID)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	s.Notifier.Notify(ctx, updated.ContractorID, "Quote "+status,
		fmt.Sprintf("The customer %s quote request #%d", status, updated.ID), quotePayload(updated))
	return updated, nil
}

func (s *QuoteService) GetQuote(ctx context.Context, auth models.AuthContext, quoteID int) (models.QuoteRequest, error) {
	quote, err := s.QuoteRepo.GetQuoteWithRelations(ctx, quoteID)
	if err != nil {
		return models.QuoteRequest{}, err
	}
	if !isParty(auth, quote) {
		return models.QuoteRequest{}, fmt.Errorf("%w: not a party to this quote", models.ErrForbidden)
	}
	return quote, nil
}

func (s *QuoteService) ListQuotes(ctx context.Context, auth models.AuthContext, listType string) ([]models.QuoteRequest, error) {
	switch listType {
	case "sent":
		return s.QuoteRepo.ListQuotesByCustomer(ctx, auth.UserID)
	case "received":
		return s.QuoteRepo.ListQuotesByContractor(ctx, auth.UserID)
	default:
		return nil, fmt.Errorf("%w: type must be sent or received", models.ErrValidation)
	}
}

// GetHistory returns the audit log of the whole negotiation chain the quote
// belongs to, whichever version the caller addressed.
func (s *QuoteService) GetHistory(ctx context.Context, auth models.AuthContext, quoteID int) ([]models.QuoteHistory, error) {
	quote, err := s.QuoteRepo.GetQuoteByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if !isParty(auth, quote) {
		return nil, fmt.Errorf("%w: not a party to this quote", models.ErrForbidden)
	}
	rootID := quote.ID
	if quote.ParentQuoteID != nil {
		rootID = *quote.ParentQuoteID
	}
	return s.HistoryRepo.ListChain(ctx, rootID)
}

func isParty(auth models.AuthContext, q models.QuoteRequest) bool {
	if auth.Role == models.RoleAdmin {
		return true
	}
	return auth.UserID == q.CustomerID || auth.UserID == q.ContractorID
}

func quotePayload(q models.QuoteRequest) map[string]string {
	return map[string]string{
		"quote_id": strconv.Itoa(q.ID),
		"version":  strconv.Itoa(q.Version),
		"status":   q.Status,
	}
}
