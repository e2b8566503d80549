package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	GetCourse(ctx context.Context, id snowflake.ID) (Course, error)
	GetProfile(ctx context.Context, id snowflake.ID) (Profile, error)
	CountVideos(ctx context.Context, courseID snowflake.ID) (int64, error)
	VideoInCourse(ctx context.Context, courseID, videoID snowflake.ID) (bool, error)
}

var (
	ErrCourseNotFound  = errors.New("course_not_found")
	ErrProfileNotFound = errors.New("profile_not_found")
)
