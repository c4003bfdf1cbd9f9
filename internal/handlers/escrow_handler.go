package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"qurylysBack/internal/models"
	"qurylysBack/internal/services"
)

type EscrowHandler struct {
	Service *services.EscrowService
}

// EscrowAction handles POST /milestones/:id/escrow with a DEPOSIT or RELEASE
// action in the body.
func (h *EscrowHandler) EscrowAction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "Invalid milestone ID", http.StatusBadRequest)
		return
	}
	var req models.EscrowActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	auth := authFromContext(r)

	switch req.Action {
	case "DEPOSIT":
		m, err := h.Service.Deposit(r.Context(), auth, id, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.EscrowActionResponse{
			Success: true,
			Message: "funds are held in escrow",
			Data:    m,
		})
	case "RELEASE":
		m, err := h.Service.Release(r.Context(), auth, id, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.EscrowActionResponse{
			Success: true,
			Message: "payment released to contractor",
			Data:    m,
		})
	case "STATUS":
		h.status(w, r, auth, id)
	default:
		writeError(w, fmt.Errorf("%w: action must be DEPOSIT, RELEASE or STATUS", models.ErrValidation))
	}
}

// EscrowStatus handles GET /milestones/:id/escrow.
func (h *EscrowHandler) EscrowStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "Invalid milestone ID", http.StatusBadRequest)
		return
	}
	h.status(w, r, authFromContext(r), id)
}

func (h *EscrowHandler) status(w http.ResponseWriter, r *http.Request, auth models.AuthContext, id int) {
	status, err := h.Service.Status(r.Context(), auth, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.EscrowActionResponse{
		Success: true,
		Data:    status,
	})
}
