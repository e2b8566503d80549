package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository writes are conditional: the int64 results are affected row
// counts and zero means another writer got there first.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, e *Enrollment) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Enrollment, error)
	FindByStudentCourse(ctx context.Context, db *gorm.DB, studentID, courseID snowflake.ID) (*Enrollment, error)
	ListPendingByCourse(ctx context.Context, db *gorm.DB, courseID snowflake.ID) ([]Enrollment, error)
	ListByStudent(ctx context.Context, db *gorm.DB, studentID snowflake.ID) ([]Enrollment, error)

	Reopen(ctx context.Context, db *gorm.DB, id snowflake.ID, method PaymentMethod, requiresDelivery bool, now time.Time) (int64, error)
	ConvertPending(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to PaymentMethod, requiresDelivery bool, now time.Time) (int64, error)
	Approve(ctx context.Context, db *gorm.DB, id snowflake.ID, approverID *snowflake.ID, now time.Time) (int64, error)
	Cancel(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)
	DeletePending(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	ApplyPatch(ctx context.Context, db *gorm.DB, id snowflake.ID, patch Patch) (int64, error)

	InsertProgress(ctx context.Context, db *gorm.DB, p *VideoProgress) (bool, error)
	MarkCompleted(ctx context.Context, db *gorm.DB, enrollmentID, videoID snowflake.ID, now time.Time) (int64, error)
	AwardCredit(ctx context.Context, db *gorm.DB, enrollmentID, videoID snowflake.ID, now time.Time) (int64, error)
	FindProgress(ctx context.Context, db *gorm.DB, enrollmentID, videoID snowflake.ID) (*VideoProgress, error)
	CountCompleted(ctx context.Context, db *gorm.DB, enrollmentID snowflake.ID) (int64, error)
}
