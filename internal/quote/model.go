package quote

import (
	"time"

	"github.com/google/uuid"
)

// Status values a quote moves through.
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

type Quote struct {
	ID           uuid.UUID   `json:"id"`
	QuoteNo      string      `json:"quote_no"`
	CustomerName string      `json:"customer_name"`
	Status       string      `json:"status"`
	TotalPrice   float64     `json:"total_price"`
	Items        []QuoteItem `json:"items,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type QuoteItem struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	UnitPrice float64   `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	Position  int       `json:"position"`
}

// ListFilter narrows quote listings and exports.
type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    string
	Limit     int
}
