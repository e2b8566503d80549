package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/certificate/domain"
	"github.com/smallbiznis/academy/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const certificateColumns = `id, student_id, course_id, enrollment_id, completed_at, issued_at,
	storage_key, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, c *domain.Certificate) (bool, error) {
	res := conn.WithContext(ctx).
		Table("certificates").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(c)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Certificate, error) {
	return r.findOne(ctx, conn, `WHERE id = ?`, id)
}

func (r *repo) FindByStudentCourse(ctx context.Context, conn *gorm.DB, studentID, courseID snowflake.ID) (*domain.Certificate, error) {
	return r.findOne(ctx, conn, `WHERE student_id = ? AND course_id = ?`, studentID, courseID)
}

func (r *repo) findOne(ctx context.Context, conn *gorm.DB, where string, args ...any) (*domain.Certificate, error) {
	var item domain.Certificate
	err := conn.WithContext(ctx).Raw(
		`SELECT `+certificateColumns+` FROM certificates `+where+` LIMIT 1`,
		args...,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListByStudent(ctx context.Context, conn *gorm.DB, studentID snowflake.ID) ([]domain.Certificate, error) {
	var items []domain.Certificate
	err := conn.WithContext(ctx).Raw(
		`SELECT `+certificateColumns+` FROM certificates
		 WHERE student_id = ?
		 ORDER BY issued_at DESC, id DESC`,
		studentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListMissingArtifact(ctx context.Context, conn *gorm.DB, limit int) ([]domain.Certificate, error) {
	var items []domain.Certificate
	err := conn.WithContext(ctx).Raw(
		`SELECT `+certificateColumns+` FROM certificates
		 WHERE storage_key IS NULL
		 ORDER BY updated_at ASC, id ASC
		 LIMIT ?`,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// TouchMissingArtifact pushes a certificate that is still missing its
// artifact to the back of the backfill queue.
func (r *repo) TouchMissingArtifact(ctx context.Context, conn *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE certificates SET updated_at = ? WHERE id = ? AND storage_key IS NULL`,
		now, id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) SetStorageKey(ctx context.Context, conn *gorm.DB, id snowflake.ID, key string, now time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE certificates SET storage_key = ?, updated_at = ? WHERE id = ?`,
		key,
		now,
		id,
	)
	return res.RowsAffected, res.Error
}
