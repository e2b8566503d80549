package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindCourse(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Course, error)
	FindProfile(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Profile, error)
	CountVideos(ctx context.Context, db *gorm.DB, courseID snowflake.ID) (int64, error)
	VideoInCourse(ctx context.Context, db *gorm.DB, courseID, videoID snowflake.ID) (bool, error)
}
