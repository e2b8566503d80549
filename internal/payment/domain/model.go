package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending     Status = "PENDING"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusFailed      Status = "FAILED"
	StatusChargedback Status = "CHARGEDBACK"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled, StatusFailed, StatusChargedback:
		return true
	}
	return false
}

// CanMove reports whether a gateway outcome may overwrite the stored status.
// A completed payment only moves to CHARGEDBACK; a chargeback is final.
// Unfinished attempts may still complete since the gateway can retry an order.
func CanMove(from, to Status) bool {
	if from == to {
		return false
	}
	switch from {
	case StatusPending:
		return true
	case StatusCancelled, StatusFailed:
		return to == StatusCompleted
	case StatusCompleted:
		return to == StatusChargedback
	}
	return false
}

// Payment is a single checkout attempt. Amount is in minor currency units.
type Payment struct {
	ID               snowflake.ID  `json:"id"`
	OrderID          string        `json:"order_id"`
	StudentID        snowflake.ID  `json:"student_id"`
	CourseID         snowflake.ID  `json:"course_id"`
	EnrollmentID     *snowflake.ID `json:"enrollment_id,omitempty"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	Status           Status        `json:"status"`
	Method           string        `json:"method"`
	GatewayPaymentID string        `json:"gateway_payment_id"`
	StatusMessage    string        `json:"status_message"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// EventRecord is the audit copy of an authenticated gateway callback.
type EventRecord struct {
	ID               snowflake.ID   `json:"id" gorm:"primaryKey"`
	OrderID          string         `json:"order_id" gorm:"type:text;not null"`
	StatusCode       int            `json:"status_code" gorm:"not null"`
	GatewayPaymentID string         `json:"gateway_payment_id" gorm:"type:text;not null"`
	Payload          datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt       time.Time      `json:"received_at" gorm:"not null"`
}

func (EventRecord) TableName() string { return "payment_events" }

// StatusUpdate is the conditional write applied when a gateway outcome lands.
type StatusUpdate struct {
	From             Status
	To               Status
	Method           string
	GatewayPaymentID string
	StatusMessage    string
	CompletedAt      *time.Time
	UpdatedAt        time.Time
}
