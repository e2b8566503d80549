package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Payment) error
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*Payment, error)
	ListByStudent(ctx context.Context, db *gorm.DB, studentID snowflake.ID) ([]Payment, error)
	// UpdateStatus only writes while the row is still at update.From.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, update StatusUpdate) (int64, error)
	// LinkEnrollment only writes while the payment has no enrollment.
	LinkEnrollment(ctx context.Context, db *gorm.DB, id, enrollmentID snowflake.ID) (int64, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
}
