package handlers

import (
	"encoding/json"
	"net/http"

	"qurylysBack/internal/services"
)

// NotifyHandler manages device push tokens for the notification service.
type NotifyHandler struct {
	Service *services.NotificationService
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *NotifyHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	auth := authFromContext(r)
	if err := h.Service.SaveToken(r.Context(), auth.UserID, req.Token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *NotifyHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get(":token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusBadRequest)
		return
	}
	if err := h.Service.DeleteToken(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
