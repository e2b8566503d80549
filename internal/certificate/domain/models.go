package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Certificate is issued once per student and course. StorageKey stays nil
// until the rendered artifact has been uploaded.
type Certificate struct {
	ID           snowflake.ID `json:"id"`
	StudentID    snowflake.ID `json:"student_id"`
	CourseID     snowflake.ID `json:"course_id"`
	EnrollmentID snowflake.ID `json:"enrollment_id"`
	CompletedAt  time.Time    `json:"completed_at"`
	IssuedAt     time.Time    `json:"issued_at"`
	StorageKey   *string      `json:"storage_key,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (c Certificate) HasArtifact() bool {
	return c.StorageKey != nil && *c.StorageKey != ""
}

// ArtifactKey is the blob key for a certificate's PDF. It depends only on the
// id so regeneration overwrites the same object.
func ArtifactKey(id snowflake.ID) string {
	return fmt.Sprintf("%s.pdf", id.String())
}
