package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"qurylysBack/internal/fsm"
	"qurylysBack/internal/models"
	"qurylysBack/internal/services"
)

type QuoteHandler struct {
	Service *services.QuoteService
	Events  EventSink
}

// EventSink pushes negotiation events to connected websocket clients. A nil
// sink is valid and drops everything.
type EventSink interface {
	Publish(userID int, event models.QuoteEvent)
}

func (h *QuoteHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	quote, err := h.Service.CreateQuote(r.Context(), authFromContext(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish(quote, "quote request created")
	writeJSON(w, http.StatusCreated, quote)
}

func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "Invalid quote ID", http.StatusBadRequest)
		return
	}
	quote, err := h.Service.GetQuote(r.Context(), authFromContext(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *QuoteHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	listType := r.URL.Query().Get("type")
	quotes, err := h.Service.ListQuotes(r.Context(), authFromContext(r), listType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (h *QuoteHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "Invalid quote ID", http.StatusBadRequest)
		return
	}
	history, err := h.Service.GetHistory(r.Context(), authFromContext(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// UpdateQuote dispatches the PATCH body: an OTP request, a contractor pricing
// reply, or a terminal customer decision.
func (h *QuoteHandler) UpdateQuote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "Invalid quote ID", http.StatusBadRequest)
		return
	}
	var req models.UpdateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	auth := authFromContext(r)

	switch {
	case req.Action != nil && *req.Action == "REQUEST_OTP":
		if req.Status != nil || len(req.Items) > 0 {
			writeError(w, fmt.Errorf("%w: REQUEST_OTP cannot be combined with other changes", models.ErrValidation))
			return
		}
		expiresAt, err := h.Service.RequestOtp(r.Context(), auth, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":    "confirmation code sent",
			"expires_at": expiresAt,
		})

	case len(req.Items) > 0:
		quote, err := h.Service.Reply(r.Context(), auth, id, req)
		if err != nil {
			writeError(w, err)
			return
		}
		h.publish(quote, "contractor submitted pricing")
		writeJSON(w, http.StatusOK, quote)

	case req.Status != nil:
		if *req.Status == fsm.QuoteAccepted {
			writeError(w, fmt.Errorf("%w: acceptance requires the OTP confirmation step", models.ErrValidation))
			return
		}
		quote, err := h.Service.Decide(r.Context(), auth, id, *req.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		h.publish(quote, "customer decision recorded")
		writeJSON(w, http.StatusOK, quote)

	default:
		writeError(w, fmt.Errorf("%w: nothing to update", models.ErrValidation))
	}
}

func (h *QuoteHandler) publish(q models.QuoteRequest, message string) {
	if h.Events == nil {
		return
	}
	event := models.QuoteEvent{
		QuoteID:   q.ID,
		Version:   q.Version,
		Status:    q.Status,
		Message:   message,
		CreatedAt: time.Now(),
	}
	h.Events.Publish(q.CustomerID, event)
	h.Events.Publish(q.ContractorID, event)
}
