package models

import (
	"errors"
)

// Taxonomy roots. Concrete failures wrap one of these with fmt.Errorf("%w: ...")
// so handlers can map them to HTTP statuses with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrForbidden     = errors.New("forbidden")
	ErrStateConflict = errors.New("state conflict")
)

var (
	ErrNoRecord            = errors.New("models: no matching record found")
	ErrQuoteNotFound       = errors.New("quote not found")
	ErrMilestoneNotFound   = errors.New("milestone not found")
	ErrReportNotFound      = errors.New("worker report not found")
	ErrUserNotFound        = errors.New("models: user not found")
	ErrContractorNotFound  = errors.New("contractor not found or not verified")
	ErrChatNotFound        = errors.New("chat not found")
	ErrInvalidCredentials  = errors.New("models: invalid credentials")
	ErrDuplicatePhone      = errors.New("models: duplicate phone number")
	ErrOtpRateLimited      = errors.New("too many confirmation code requests")
	ErrQuoteSuperseded     = errors.New("quote has a newer version")
)
