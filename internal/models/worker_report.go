package models

import "time"

// Worker report statuses. Status is the worker-side state of the report,
// CustomerStatus is the customer review verdict; milestone release requires at
// least one report with an approved verdict.
const (
	ReportPending  = "pending"
	ReportApproved = "approved"
	ReportRejected = "rejected"
)

// WorkerReport is field evidence tied to a milestone.
type WorkerReport struct {
	ID             int        `json:"id"`
	MilestoneID    int        `json:"milestone_id"`
	WorkerID       int        `json:"worker_id"`
	Description    string     `json:"description"`
	PhotoURL       *string    `json:"photo_url,omitempty"`
	Status         string     `json:"status"`
	CustomerStatus string     `json:"customer_status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type CreateReportRequest struct {
	Description string  `json:"description"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

type ReviewReportRequest struct {
	Status string `json:"status"`
}
