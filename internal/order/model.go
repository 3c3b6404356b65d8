package order

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusAccepted  Status = "ACCEPTED"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPlaced, StatusAccepted, StatusPreparing, StatusReady, StatusCompleted:
		return true
	default:
		return false
	}
}

// Item is a line-item snapshot: name and price are captured at checkout and
// never change afterwards, even if the catalog entry is edited or removed.
type Item struct {
	ID         uuid.UUID `json:"id" db:"id"`
	OrderID    uuid.UUID `json:"order_id" db:"order_id"`
	Name       string    `json:"name" db:"name"`
	PriceCents int64     `json:"price_cents" db:"price_cents"`
	Quantity   int       `json:"quantity" db:"quantity"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type Order struct {
	ID            uuid.UUID `json:"id" db:"id"`
	DisplayNumber int64     `json:"display_number" db:"display_number"`
	SessionID     string    `json:"session_id" db:"session_id"`
	Status        Status    `json:"status" db:"status"`
	Items         []Item    `json:"items" db:"-"`
	TotalCents    int64     `json:"total_cents" db:"total_cents"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Feedback is a rating left by a customer for one of their completed orders.
type Feedback struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment,omitempty" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StatusStat is one row of the admin statistics view.
type StatusStat struct {
	Status     Status `json:"status" db:"status"`
	Count      int64  `json:"count" db:"count"`
	TotalCents int64  `json:"total_cents" db:"total_cents"`
}
