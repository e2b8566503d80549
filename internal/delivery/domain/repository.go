package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, d *Delivery) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Delivery, error)
	FindByEnrollmentID(ctx context.Context, db *gorm.DB, enrollmentID snowflake.ID) (*Delivery, error)
	// ApplyPatch only writes while the row still has status from.
	ApplyPatch(ctx context.Context, db *gorm.DB, id snowflake.ID, from Status, patch Patch) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Delivery, error)
}

type ListFilter struct {
	InstructorID *snowflake.ID
	StudentID    *snowflake.ID
	CourseID     *snowflake.ID
	Status       *Status
}
