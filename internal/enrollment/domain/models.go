package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusCancelled Status = "CANCELLED"
)

type PaymentMethod string

const (
	MethodManual PaymentMethod = "manual"
	MethodOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodManual || m == MethodOnline
}

type Enrollment struct {
	ID               snowflake.ID  `json:"id"`
	StudentID        snowflake.ID  `json:"student_id"`
	CourseID         snowflake.ID  `json:"course_id"`
	Status           Status        `json:"status"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	RequiresDelivery bool          `json:"requires_delivery"`
	ApprovedBy       *snowflake.ID `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time    `json:"approved_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Patch is a partial update of an enrollment; nil fields are left untouched.
type Patch struct {
	RequiresDelivery *bool          `patch:"requires_delivery"`
	PaymentMethod    *PaymentMethod `patch:"payment_method"`
	UpdatedAt        *time.Time     `patch:"updated_at"`
}

// VideoProgress is one row of the per-enrollment progress ledger. Credit for
// a video is awarded at most once.
type VideoProgress struct {
	ID              snowflake.ID `json:"id"`
	EnrollmentID    snowflake.ID `json:"enrollment_id"`
	VideoID         snowflake.ID `json:"video_id"`
	Completed       bool         `json:"completed"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	CreditAwarded   bool         `json:"credit_awarded"`
	CreditAwardedAt *time.Time   `json:"credit_awarded_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
