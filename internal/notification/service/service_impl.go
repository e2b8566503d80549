package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/dispatch"
	"github.com/smallbiznis/academy/internal/notification/domain"
	"github.com/smallbiznis/academy/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Dispatcher dispatch.Submitter
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	dispatcher dispatch.Submitter
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("notification.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		dispatcher: p.Dispatcher,
	}
}

// Notify hands the notice to the dispatcher and returns immediately.
func (s *Service) Notify(ctx context.Context, n domain.Notice) {
	if n.RecipientID == 0 || strings.TrimSpace(n.Title) == "" {
		s.log.Warn("dropping malformed notice", zap.String("type", string(n.Type)))
		return
	}
	s.dispatcher.Submit(dispatch.Job{
		Kind:    "notification",
		Name:    string(n.Type),
		Payload: n,
		Run: func(jobCtx context.Context) error {
			_, err := s.Create(jobCtx, n)
			return err
		},
	})
}

func (s *Service) Create(ctx context.Context, n domain.Notice) (domain.Notification, error) {
	if n.RecipientID == 0 {
		return domain.Notification{}, domain.ErrInvalidRecipient
	}
	title := strings.TrimSpace(n.Title)
	if title == "" {
		return domain.Notification{}, domain.ErrInvalidTitle
	}

	item := domain.Notification{
		ID:          s.genID.Generate(),
		RecipientID: n.RecipientID,
		Title:       title,
		Message:     strings.TrimSpace(n.Message),
		Type:        n.Type,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &item); err != nil {
		return domain.Notification{}, err
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.RecipientID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidRecipient
	}
	scope, err := req.Page.Scope("notifications")
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		RecipientID: req.RecipientID,
		UnreadOnly:  req.UnreadOnly,
	}, scope)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, req.Page.Limit(), func(n domain.Notification) pagination.Cursor {
		return pagination.Cursor{ID: n.ID.Int64(), CreatedAt: n.CreatedAt}
	})
	if items == nil {
		items = []domain.Notification{}
	}

	unread, err := s.repo.CountUnread(ctx, s.db, req.RecipientID)
	if err != nil {
		return domain.ListResponse{}, err
	}

	return domain.ListResponse{
		PageInfo:      pageInfo,
		Notifications: items,
		UnreadCount:   unread,
	}, nil
}

func (s *Service) MarkRead(ctx context.Context, recipientID, id snowflake.ID) error {
	rows, err := s.repo.MarkRead(ctx, s.db, recipientID, id, s.clock.Now())
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
