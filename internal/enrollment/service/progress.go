package service

import (
	"context"

	"github.com/smallbiznis/academy/internal/enrollment/domain"
	"go.uber.org/zap"
)

// RecordProgress marks a video watched and awards its credit at most once.
// Replays and concurrent calls converge on the same row; only the caller
// whose conditional update lands sees CreditAwarded.
func (s *Service) RecordProgress(ctx context.Context, req domain.ProgressRequest) (domain.ProgressResult, error) {
	enrollment, err := s.load(ctx, req.EnrollmentID)
	if err != nil {
		return domain.ProgressResult{}, err
	}
	if enrollment.StudentID != req.Actor.ID {
		return domain.ProgressResult{}, domain.ErrForbidden
	}
	if enrollment.Status != domain.StatusApproved {
		return domain.ProgressResult{}, domain.ErrNotApproved
	}
	ok, err := s.catalog.VideoInCourse(ctx, enrollment.CourseID, req.VideoID)
	if err != nil {
		return domain.ProgressResult{}, err
	}
	if !ok {
		return domain.ProgressResult{}, domain.ErrVideoNotInCourse
	}

	now := s.clock.Now()
	if _, err := s.repo.InsertProgress(ctx, s.db, &domain.VideoProgress{
		ID:           s.genID.Generate(),
		EnrollmentID: enrollment.ID,
		VideoID:      req.VideoID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return domain.ProgressResult{}, err
	}
	if _, err := s.repo.MarkCompleted(ctx, s.db, enrollment.ID, req.VideoID, now); err != nil {
		return domain.ProgressResult{}, err
	}
	awarded, err := s.repo.AwardCredit(ctx, s.db, enrollment.ID, req.VideoID, now)
	if err != nil {
		return domain.ProgressResult{}, err
	}

	progress, err := s.repo.FindProgress(ctx, s.db, enrollment.ID, req.VideoID)
	if err != nil {
		return domain.ProgressResult{}, err
	}
	if progress == nil {
		return domain.ProgressResult{}, domain.ErrNotFound
	}
	if awarded > 0 {
		s.log.Debug("video credit awarded",
			zap.String("enrollment_id", enrollment.ID.String()),
			zap.String("video_id", req.VideoID.String()),
		)
	}
	return domain.ProgressResult{Progress: *progress, CreditAwarded: awarded > 0}, nil
}
