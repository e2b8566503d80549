package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

var statusRank = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusShipped:    2,
	StatusDelivered:  3,
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusCancelled
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether a delivery may move from one status to
// another. Movement is one step along PENDING, PROCESSING, SHIPPED,
// DELIVERED; cancellation is allowed from any non-terminal status. Staying
// put is allowed so tracking details can change.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return statusRank[to] == statusRank[from]+1
}

// AddressSnapshot is copied from the student profile when the delivery is
// created and never changes afterwards.
type AddressSnapshot struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	AddressLine1  string `json:"address_line1"`
	AddressLine2  string `json:"address_line2"`
	City          string `json:"city"`
	District      string `json:"district"`
	PostalCode    string `json:"postal_code"`
}

type Delivery struct {
	ID             snowflake.ID `json:"id"`
	EnrollmentID   snowflake.ID `json:"enrollment_id"`
	StudentID      snowflake.ID `json:"student_id"`
	CourseID       snowflake.ID `json:"course_id"`
	RecipientName  string       `json:"recipient_name"`
	Phone          string       `json:"phone"`
	AddressLine1   string       `json:"address_line1"`
	AddressLine2   string       `json:"address_line2"`
	City           string       `json:"city"`
	District       string       `json:"district"`
	PostalCode     string       `json:"postal_code"`
	Status         Status       `json:"status"`
	TrackingNumber *string      `json:"tracking_number,omitempty"`
	Courier        *string      `json:"courier,omitempty"`
	Notes          *string      `json:"notes,omitempty"`
	ShippedAt      *time.Time   `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time   `json:"delivered_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Patch is the partial update applied to a delivery row.
type Patch struct {
	Status         *Status    `patch:"status"`
	TrackingNumber *string    `patch:"tracking_number"`
	Courier        *string    `patch:"courier"`
	Notes          *string    `patch:"notes"`
	ShippedAt      *time.Time `patch:"shipped_at,once"`
	DeliveredAt    *time.Time `patch:"delivered_at,once"`
	UpdatedAt      *time.Time `patch:"updated_at"`
}
