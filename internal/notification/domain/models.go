package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Type string

const (
	TypeEnrollment  Type = "enrollment"
	TypePayment     Type = "payment"
	TypeCertificate Type = "certificate"
	TypeDelivery    Type = "delivery"
)

// Notification rows are append-only; only the read flag changes.
type Notification struct {
	ID          snowflake.ID `json:"id"`
	RecipientID snowflake.ID `json:"recipient_id"`
	Title       string       `json:"title"`
	Message     string       `json:"message"`
	Type        Type         `json:"type"`
	IsRead      bool         `json:"is_read"`
	ReadAt      *time.Time   `json:"read_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Notice is what producers hand to the emitter.
type Notice struct {
	RecipientID snowflake.ID `json:"recipient_id"`
	Title       string       `json:"title"`
	Message     string       `json:"message"`
	Type        Type         `json:"type"`
}
