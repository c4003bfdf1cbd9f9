package models

import "time"

// QuoteRequest is one negotiation instance between a customer and a contractor.
// Versions of the same negotiation form a chain linked by ParentQuoteID; exactly
// one record per chain carries IsLatest.
type QuoteRequest struct {
	ID             int        `json:"id"`
	CustomerID     int        `json:"customer_id"`
	ContractorID   int        `json:"contractor_id"`
	ProjectID      *int       `json:"project_id,omitempty"`
	Details        string     `json:"details"`
	Budget         *int64     `json:"budget,omitempty"`
	Location       *string    `json:"location,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	Response       *string    `json:"response,omitempty"`
	PriceQuote     int64      `json:"price_quote"`
	Status         string     `json:"status"`
	Version        int        `json:"version"`
	ParentQuoteID  *int       `json:"parent_quote_id,omitempty"`
	IsLatest       bool       `json:"is_latest"`
	OtpCode        *string    `json:"-"`
	OtpExpiresAt   *time.Time `json:"otp_expires_at,omitempty"`
	Attachments    []string   `json:"attachments,omitempty"`
	ConversationID int        `json:"conversation_id"`

	Items      []QuoteItem        `json:"items,omitempty"`
	Milestones []PaymentMilestone `json:"milestones,omitempty"`
	History    []QuoteHistory     `json:"history,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// QuoteItem is a priced line item owned by exactly one quote version.
type QuoteItem struct {
	ID          int     `json:"id"`
	QuoteID     int     `json:"quote_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   int64   `json:"unit_price"`
	TotalPrice  int64   `json:"total_price"`
	Category    *string `json:"category,omitempty"`
}

type CreateQuoteRequest struct {
	ContractorID int        `json:"contractor_id"`
	Details      string     `json:"details"`
	Budget       *int64     `json:"budget,omitempty"`
	Location     *string    `json:"location,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	ProjectID    *int       `json:"project_id,omitempty"`
	Attachments  []string   `json:"attachments,omitempty"`
}

// ReplyItemInput is a line item as submitted by the contractor; TotalPrice is
// recomputed server side and never trusted from the payload.
type ReplyItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   int64   `json:"unit_price"`
	Category    *string `json:"category,omitempty"`
}

// ReplyMilestoneInput is a milestone slice as submitted by the contractor;
// Amount is derived from the quote total and the percentage.
type ReplyMilestoneInput struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	Order      int     `json:"order"`
}

// UpdateQuoteRequest is the PATCH /quotes/{id} body. Action REQUEST_OTP is
// mutually exclusive with a status change; a non-empty Items slice means the
// contractor is submitting or revising pricing.
type UpdateQuoteRequest struct {
	Status     *string               `json:"status,omitempty"`
	Action     *string               `json:"action,omitempty"`
	Items      []ReplyItemInput      `json:"items,omitempty"`
	Milestones []ReplyMilestoneInput `json:"milestones,omitempty"`
	Response   *string               `json:"response,omitempty"`
	PriceQuote *int64                `json:"price_quote,omitempty"`
}

// QuoteEvent is pushed to both parties over the events websocket.
type QuoteEvent struct {
	QuoteID   int       `json:"quote_id"`
	Version   int       `json:"version"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
