package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	RecipientID snowflake.ID
	UnreadOnly  bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, scope func(*gorm.DB) *gorm.DB) ([]Notification, error)
	MarkRead(ctx context.Context, db *gorm.DB, recipientID, id snowflake.ID, now time.Time) (int64, error)
	CountUnread(ctx context.Context, db *gorm.DB, recipientID snowflake.ID) (int64, error)
}
