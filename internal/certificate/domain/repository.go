package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *Certificate) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Certificate, error)
	FindByStudentCourse(ctx context.Context, db *gorm.DB, studentID, courseID snowflake.ID) (*Certificate, error)
	ListByStudent(ctx context.Context, db *gorm.DB, studentID snowflake.ID) ([]Certificate, error)
	ListMissingArtifact(ctx context.Context, db *gorm.DB, limit int) ([]Certificate, error)
	TouchMissingArtifact(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)
	SetStorageKey(ctx context.Context, db *gorm.DB, id snowflake.ID, key string, now time.Time) (int64, error)
}
