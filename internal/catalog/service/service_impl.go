package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/catalog/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{db: p.DB, repo: p.Repo}
}

func (s *Service) GetCourse(ctx context.Context, id snowflake.ID) (domain.Course, error) {
	if id == 0 {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	course, err := s.repo.FindCourse(ctx, s.db, id)
	if err != nil {
		return domain.Course{}, err
	}
	if course == nil {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return *course, nil
}

func (s *Service) GetProfile(ctx context.Context, id snowflake.ID) (domain.Profile, error) {
	if id == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	profile, err := s.repo.FindProfile(ctx, s.db, id)
	if err != nil {
		return domain.Profile{}, err
	}
	if profile == nil {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return *profile, nil
}

func (s *Service) CountVideos(ctx context.Context, courseID snowflake.ID) (int64, error) {
	return s.repo.CountVideos(ctx, s.db, courseID)
}

func (s *Service) VideoInCourse(ctx context.Context, courseID, videoID snowflake.ID) (bool, error) {
	return s.repo.VideoInCourse(ctx, s.db, courseID, videoID)
}
