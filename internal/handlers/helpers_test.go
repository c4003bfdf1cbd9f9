package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"qurylysBack/internal/models"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: amount is required", models.ErrValidation), http.StatusBadRequest},
		{"bad credentials", models.ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", fmt.Errorf("%w: not a party", models.ErrForbidden), http.StatusForbidden},
		{"quote missing", models.ErrQuoteNotFound, http.StatusNotFound},
		{"milestone missing", models.ErrMilestoneNotFound, http.StatusNotFound},
		{"report missing", models.ErrReportNotFound, http.StatusNotFound},
		{"state conflict", fmt.Errorf("%w: milestone already paid or in progress", models.ErrStateConflict), http.StatusConflict},
		{"superseded", models.ErrQuoteSuperseded, http.StatusConflict},
		{"duplicate phone", models.ErrDuplicatePhone, http.StatusConflict},
		{"otp rate limited", models.ErrOtpRateLimited, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorStatus(tt.err); got != tt.want {
				t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
