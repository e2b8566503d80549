package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/delivery/domain"
	"github.com/smallbiznis/academy/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const deliveryColumns = `deliveries.id, deliveries.enrollment_id, deliveries.student_id, deliveries.course_id,
	deliveries.recipient_name, deliveries.phone, deliveries.address_line1, deliveries.address_line2,
	deliveries.city, deliveries.district, deliveries.postal_code, deliveries.status,
	deliveries.tracking_number, deliveries.courier, deliveries.notes,
	deliveries.shipped_at, deliveries.delivered_at, deliveries.created_at, deliveries.updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, d *domain.Delivery) (bool, error) {
	res := conn.WithContext(ctx).
		Table("deliveries").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(d)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Delivery, error) {
	var item domain.Delivery
	err := conn.WithContext(ctx).Raw(
		`SELECT `+deliveryColumns+` FROM deliveries WHERE deliveries.id = ?`,
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

func (r *repo) FindByEnrollmentID(ctx context.Context, conn *gorm.DB, enrollmentID snowflake.ID) (*domain.Delivery, error) {
	var item domain.Delivery
	err := conn.WithContext(ctx).Raw(
		`SELECT `+deliveryColumns+` FROM deliveries WHERE deliveries.enrollment_id = ?`,
		enrollmentID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ApplyPatch(ctx context.Context, conn *gorm.DB, id snowflake.ID, from domain.Status, patch domain.Patch) (int64, error) {
	return db.ApplyPatch(ctx, conn, "deliveries", id, patch, db.Where("status = ?", from))
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) (int64, error) {
	res := conn.WithContext(ctx).Exec(`DELETE FROM deliveries WHERE id = ?`, id)
	return res.RowsAffected, res.Error
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]domain.Delivery, error) {
	var items []domain.Delivery
	stmt := conn.WithContext(ctx).Table("deliveries").Select(deliveryColumns)
	if filter.InstructorID != nil {
		stmt = stmt.Joins("JOIN courses ON courses.id = deliveries.course_id").
			Where("courses.instructor_id = ?", *filter.InstructorID)
	}
	if filter.StudentID != nil {
		stmt = stmt.Where("deliveries.student_id = ?", *filter.StudentID)
	}
	if filter.CourseID != nil {
		stmt = stmt.Where("deliveries.course_id = ?", *filter.CourseID)
	}
	if filter.Status != nil {
		stmt = stmt.Where("deliveries.status = ?", *filter.Status)
	}
	err := stmt.Order("deliveries.created_at DESC").Order("deliveries.id DESC").Scan(&items).Error
	return items, err
}
