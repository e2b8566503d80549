package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/enrollment/domain"
	"github.com/smallbiznis/academy/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const enrollmentColumns = `id, student_id, course_id, status, payment_method, requires_delivery,
	approved_by, approved_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, e *domain.Enrollment) (bool, error) {
	res := conn.WithContext(ctx).
		Table("enrollments").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(e)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Enrollment, error) {
	var item domain.Enrollment
	err := conn.WithContext(ctx).Raw(
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByStudentCourse(ctx context.Context, conn *gorm.DB, studentID, courseID snowflake.ID) (*domain.Enrollment, error) {
	var item domain.Enrollment
	err := conn.WithContext(ctx).Raw(
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = ? AND course_id = ?`,
		studentID,
		courseID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListPendingByCourse(ctx context.Context, conn *gorm.DB, courseID snowflake.ID) ([]domain.Enrollment, error) {
	var items []domain.Enrollment
	err := conn.WithContext(ctx).Raw(
		`SELECT `+enrollmentColumns+` FROM enrollments
		 WHERE course_id = ? AND status = ?
		 ORDER BY created_at ASC, id ASC`,
		courseID,
		domain.StatusPending,
	).Scan(&items).Error
	return items, err
}

func (r *repo) ListByStudent(ctx context.Context, conn *gorm.DB, studentID snowflake.ID) ([]domain.Enrollment, error) {
	var items []domain.Enrollment
	err := conn.WithContext(ctx).Raw(
		`SELECT `+enrollmentColumns+` FROM enrollments
		 WHERE student_id = ?
		 ORDER BY created_at DESC, id DESC`,
		studentID,
	).Scan(&items).Error
	return items, err
}

func (r *repo) Reopen(ctx context.Context, conn *gorm.DB, id snowflake.ID, method domain.PaymentMethod, requiresDelivery bool, now time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET status = ?, payment_method = ?, requires_delivery = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusPending,
		method,
		requiresDelivery,
		now,
		id,
		domain.StatusCancelled,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ConvertPending(ctx context.Context, conn *gorm.DB, id snowflake.ID, from, to domain.PaymentMethod, requiresDelivery bool, now time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET payment_method = ?, requires_delivery = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND payment_method = ?`,
		to,
		requiresDelivery,
		now,
		id,
		domain.StatusPending,
		from,
	)
	return res.RowsAffected, res.Error
}

// Approve keeps the first approver and timestamp if the row was approved before.
func (r *repo) Approve(ctx context.Context, conn *gorm.DB, id snowflake.ID, approverID *snowflake.ID, now time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET status = ?,
		     approved_by = COALESCE(approved_by, ?),
		     approved_at = COALESCE(approved_at, ?),
		     updated_at = ?
		 WHERE id = ? AND status <> ?`,
		domain.StatusApproved,
		approverID,
		now,
		now,
		id,
		domain.StatusApproved,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) Cancel(ctx context.Context, conn *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE enrollments SET status = ?, updated_at = ? WHERE id = ? AND status <> ?`,
		domain.StatusCancelled,
		now,
		id,
		domain.StatusCancelled,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) DeletePending(ctx context.Context, conn *gorm.DB, id snowflake.ID) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`DELETE FROM enrollments WHERE id = ? AND status = ?`,
		id,
		domain.StatusPending,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ApplyPatch(ctx context.Context, conn *gorm.DB, id snowflake.ID, patch domain.Patch) (int64, error) {
	return db.ApplyPatch(ctx, conn, "enrollments", id, patch)
}

func (r *repo) InsertProgress(ctx context.Context, conn *gorm.DB, p *domain.VideoProgress) (bool, error) {
	res := conn.WithContext(ctx).
		Table("video_progress").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(p)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkCompleted(ctx context.Context, conn *gorm.DB, enrollmentID, videoID snowflake.ID, now time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE video_progress
		 SET completed = ?, completed_at = COALESCE(completed_at, ?), updated_at = ?
		 WHERE enrollment_id = ? AND video_id = ? AND completed = ?`,
		true,
		now,
		now,
		enrollmentID,
		videoID,
		false,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) AwardCredit(ctx context.Context, conn *gorm.DB, enrollmentID, videoID snowflake.ID, now time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE video_progress
		 SET credit_awarded = ?, credit_awarded_at = ?, updated_at = ?
		 WHERE enrollment_id = ? AND video_id = ? AND completed = ? AND credit_awarded = ?`,
		true,
		now,
		now,
		enrollmentID,
		videoID,
		true,
		false,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) FindProgress(ctx context.Context, conn *gorm.DB, enrollmentID, videoID snowflake.ID) (*domain.VideoProgress, error) {
	var item domain.VideoProgress
	err := conn.WithContext(ctx).Raw(
		`SELECT id, enrollment_id, video_id, completed, completed_at, credit_awarded, credit_awarded_at, created_at, updated_at
		 FROM video_progress WHERE enrollment_id = ? AND video_id = ?`,
		enrollmentID,
		videoID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) CountCompleted(ctx context.Context, conn *gorm.DB, enrollmentID snowflake.ID) (int64, error) {
	var total int64
	err := conn.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM video_progress WHERE enrollment_id = ? AND completed = ?`,
		enrollmentID,
		true,
	).Scan(&total).Error
	return total, err
}
