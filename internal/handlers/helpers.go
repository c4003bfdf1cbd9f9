package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"qurylysBack/internal/models"
)

// errorStatus maps the service error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrQuoteNotFound),
		errors.Is(err, models.ErrMilestoneNotFound),
		errors.Is(err, models.ErrReportNotFound),
		errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrContractorNotFound),
		errors.Is(err, models.ErrChatNotFound),
		errors.Is(err, models.ErrNoRecord):
		return http.StatusNotFound
	case errors.Is(err, models.ErrStateConflict),
		errors.Is(err, models.ErrQuoteSuperseded),
		errors.Is(err, models.ErrDuplicatePhone):
		return http.StatusConflict
	case errors.Is(err, models.ErrOtpRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		http.Error(w, "Internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// authFromContext reads the identity placed into the request context by the
// JWT middleware.
func authFromContext(r *http.Request) models.AuthContext {
	auth := models.AuthContext{}
	if id, ok := r.Context().Value("user_id").(int); ok {
		auth.UserID = id
	}
	if role, ok := r.Context().Value("role").(string); ok {
		auth.Role = role
	}
	return auth
}
