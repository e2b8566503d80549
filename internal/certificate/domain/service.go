package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Actor struct {
	ID   snowflake.ID
	Role string
}

// Completion is the answer to a completion check. Certificate is set only
// when the course is complete.
type Completion struct {
	Completed       bool         `json:"completed"`
	CompletedVideos int64        `json:"completed_videos"`
	TotalVideos     int64        `json:"total_videos"`
	Certificate     *Certificate `json:"certificate,omitempty"`
	// AlreadyIssued is true when the certificate existed before this call.
	AlreadyIssued bool `json:"already_issued"`
}

type Download struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Filename  string    `json:"filename"`
}

type Service interface {
	CheckCompletion(ctx context.Context, enrollmentID snowflake.ID, actor Actor) (Completion, error)
	CheckCourseCompletion(ctx context.Context, courseID snowflake.ID, actor Actor) (Completion, error)
	GenerateArtifact(ctx context.Context, certificateID snowflake.ID) (Certificate, error)
	GetDownload(ctx context.Context, certificateID snowflake.ID, actor Actor) (Download, error)
	Get(ctx context.Context, certificateID snowflake.ID, actor Actor) (Certificate, error)
	List(ctx context.Context, studentID snowflake.ID) ([]Certificate, error)
	// BackfillArtifacts regenerates up to limit missing artifacts and reports
	// how many succeeded.
	BackfillArtifacts(ctx context.Context, limit int) (int, error)
}

var (
	ErrNotFound        = errors.New("certificate_not_found")
	ErrForbidden       = errors.New("forbidden")
	ErrArtifactMissing = errors.New("artifact_missing")
	ErrNotEnrolled     = errors.New("not_enrolled")
	ErrNotApproved     = errors.New("enrollment_not_approved")
)
