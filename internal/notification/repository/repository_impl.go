package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (id, recipient_id, title, message, type, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID,
		n.RecipientID,
		n.Title,
		n.Message,
		n.Type,
		false,
		n.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, scope func(*gorm.DB) *gorm.DB) ([]domain.Notification, error) {
	var items []domain.Notification
	stmt := db.WithContext(ctx).
		Table("notifications").
		Select("id, recipient_id, title, message, type, is_read, read_at, created_at").
		Where("recipient_id = ?", filter.RecipientID)
	if filter.UnreadOnly {
		stmt = stmt.Where("is_read = ?", false)
	}
	if scope != nil {
		stmt = scope(stmt)
	}
	if err := stmt.Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkRead(ctx context.Context, db *gorm.DB, recipientID, id snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE notifications
		 SET is_read = ?, read_at = COALESCE(read_at, ?)
		 WHERE id = ? AND recipient_id = ?`,
		true,
		now,
		id,
		recipientID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) CountUnread(ctx context.Context, db *gorm.DB, recipientID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = ?`,
		recipientID,
		false,
	).Scan(&total).Error
	return total, err
}
