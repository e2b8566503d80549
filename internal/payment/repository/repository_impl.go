package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/payment/domain"
	"github.com/smallbiznis/academy/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const paymentColumns = `id, order_id, student_id, course_id, enrollment_id, amount, currency,
	status, method, gateway_payment_id, status_message, completed_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, p *domain.Payment) error {
	return conn.WithContext(ctx).Table("payments").Create(p).Error
}

func (r *repo) FindByOrderID(ctx context.Context, conn *gorm.DB, orderID string) (*domain.Payment, error) {
	var item domain.Payment
	err := conn.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = ? LIMIT 1`,
		orderID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListByStudent(ctx context.Context, conn *gorm.DB, studentID snowflake.ID) ([]domain.Payment, error) {
	var items []domain.Payment
	err := conn.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE student_id = ? ORDER BY created_at DESC, id DESC`,
		studentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStatus(ctx context.Context, conn *gorm.DB, id snowflake.ID, u domain.StatusUpdate) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?,
		     method = CASE WHEN ? <> '' THEN ? ELSE method END,
		     gateway_payment_id = CASE WHEN ? <> '' THEN ? ELSE gateway_payment_id END,
		     status_message = ?,
		     completed_at = COALESCE(completed_at, ?),
		     updated_at = ?
		 WHERE id = ? AND status = ?`,
		u.To,
		u.Method, u.Method,
		u.GatewayPaymentID, u.GatewayPaymentID,
		u.StatusMessage,
		u.CompletedAt,
		u.UpdatedAt,
		id,
		u.From,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) LinkEnrollment(ctx context.Context, conn *gorm.DB, id, enrollmentID snowflake.ID) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE payments SET enrollment_id = ? WHERE id = ? AND enrollment_id IS NULL`,
		enrollmentID,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) InsertEvent(ctx context.Context, conn *gorm.DB, event *domain.EventRecord) (bool, error) {
	res := conn.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
