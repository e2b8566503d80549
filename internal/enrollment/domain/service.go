package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	StudentID        snowflake.ID
	CourseID         snowflake.ID
	Method           PaymentMethod
	RequiresDelivery bool
}

// CreateResult reports whether an existing row was reused for the request.
type CreateResult struct {
	Enrollment Enrollment
	Reused     bool
}

type Actor struct {
	ID   snowflake.ID
	Role string
}

type ProgressRequest struct {
	EnrollmentID snowflake.ID
	VideoID      snowflake.ID
	Actor        Actor
}

type ProgressResult struct {
	Progress      VideoProgress `json:"progress"`
	CreditAwarded bool          `json:"credit_awarded"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (CreateResult, error)
	Approve(ctx context.Context, enrollmentID snowflake.ID, approver Actor) (Enrollment, error)
	Reject(ctx context.Context, enrollmentID snowflake.ID, actor Actor) error
	Get(ctx context.Context, enrollmentID snowflake.ID) (Enrollment, error)
	ListPending(ctx context.Context, courseID snowflake.ID, actor Actor) ([]Enrollment, error)
	ListForStudent(ctx context.Context, studentID snowflake.ID) ([]Enrollment, error)
	RecordProgress(ctx context.Context, req ProgressRequest) (ProgressResult, error)
}

// ApprovalSource names what moved an enrollment to APPROVED.
type ApprovalSource string

const (
	SourceInstructor   ApprovalSource = "instructor"
	SourceWebhook      ApprovalSource = "webhook"
	SourceVerification ApprovalSource = "verification"
)

type ApprovalEvent struct {
	Enrollment Enrollment
	Source     ApprovalSource
	// First is true only for the call that performed the transition.
	First bool
}

// Hooks receive post-commit enrollment events. Implementations must not fail
// the caller; errors are logged and dropped.
type Hooks interface {
	Approved(ctx context.Context, ev ApprovalEvent)
	Rejected(ctx context.Context, e Enrollment)
}

var (
	ErrNotFound                  = errors.New("enrollment_not_found")
	ErrAlreadyApproved           = errors.New("already_approved")
	ErrPendingExists             = errors.New("pending_exists")
	ErrNotPending                = errors.New("enrollment_not_pending")
	ErrInvalidMethod             = errors.New("invalid_payment_method")
	ErrInvalidCourse             = errors.New("invalid_course")
	ErrInvalidStudent            = errors.New("invalid_student")
	ErrDeliveryAddressIncomplete = errors.New("delivery_address_incomplete")
	ErrNoMaterials               = errors.New("course_has_no_materials")
	ErrForbidden                 = errors.New("forbidden")
	ErrNotApproved               = errors.New("enrollment_not_approved")
	ErrVideoNotInCourse          = errors.New("video_not_in_course")
)
