package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/pkg/db/pagination"
)

// Notifier emits notices without blocking or failing the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

type ListRequest struct {
	RecipientID snowflake.ID
	UnreadOnly  bool
	Page        pagination.Pagination
}

type ListResponse struct {
	pagination.PageInfo
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
}

type Service interface {
	Notifier
	Create(ctx context.Context, n Notice) (Notification, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	MarkRead(ctx context.Context, recipientID, id snowflake.ID) error
}

var (
	ErrNotFound         = errors.New("notification_not_found")
	ErrInvalidRecipient = errors.New("invalid_recipient")
	ErrInvalidTitle     = errors.New("invalid_title")
)
