package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	catalogdomain "github.com/smallbiznis/academy/internal/catalog/domain"
	"github.com/smallbiznis/academy/internal/clock"
	enrollmentdomain "github.com/smallbiznis/academy/internal/enrollment/domain"
	notificationdomain "github.com/smallbiznis/academy/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	"github.com/smallbiznis/academy/internal/payment/domain"
	"github.com/smallbiznis/academy/internal/payment/gateway"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	EnrollmentRepo enrollmentdomain.Repository
	Enrollments    enrollmentdomain.Service
	Catalog        catalogdomain.Service
	Merchant       *gateway.Merchant
	Hooks          enrollmentdomain.Hooks      `optional:"true"`
	Notifier       notificationdomain.Notifier `optional:"true"`
	Metrics        *obsmetrics.Metrics         `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	enrollmentRepo enrollmentdomain.Repository
	enrollments    enrollmentdomain.Service
	catalog        catalogdomain.Service
	merchant       *gateway.Merchant
	hooks          enrollmentdomain.Hooks
	notifier       notificationdomain.Notifier
	metrics        *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("payment.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		enrollmentRepo: p.EnrollmentRepo,
		enrollments:    p.Enrollments,
		catalog:        p.Catalog,
		merchant:       p.Merchant,
		hooks:          p.Hooks,
		notifier:       p.Notifier,
		metrics:        p.Metrics,
	}
}

// Purchase opens (or reuses) the student's online enrollment and starts a new
// payment attempt for it. Each attempt gets its own order id.
func (s *Service) Purchase(ctx context.Context, req domain.PurchaseRequest) (domain.PurchaseResult, error) {
	if s.merchant == nil || !s.merchant.Configured() {
		return domain.PurchaseResult{}, domain.ErrGatewayNotConfigured
	}
	course, err := s.catalog.GetCourse(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrCourseNotFound) {
			return domain.PurchaseResult{}, enrollmentdomain.ErrInvalidCourse
		}
		return domain.PurchaseResult{}, err
	}
	if course.Price <= 0 {
		return domain.PurchaseResult{}, domain.ErrInvalidAmount
	}
	student, err := s.catalog.GetProfile(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrProfileNotFound) {
			return domain.PurchaseResult{}, enrollmentdomain.ErrInvalidStudent
		}
		return domain.PurchaseResult{}, err
	}

	created, err := s.enrollments.Create(ctx, enrollmentdomain.CreateRequest{
		StudentID:        req.StudentID,
		CourseID:         req.CourseID,
		Method:           enrollmentdomain.MethodOnline,
		RequiresDelivery: req.RequiresDelivery,
	})
	if err != nil {
		return domain.PurchaseResult{}, err
	}

	now := s.clock.Now()
	currency := strings.ToUpper(strings.TrimSpace(course.Currency))
	if currency == "" {
		currency = s.merchant.Currency()
	}
	enrollmentID := created.Enrollment.ID
	payment := domain.Payment{
		ID:           s.genID.Generate(),
		OrderID:      ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		StudentID:    req.StudentID,
		CourseID:     req.CourseID,
		EnrollmentID: &enrollmentID,
		Amount:       course.Price,
		Currency:     currency,
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, &payment); err != nil {
		return domain.PurchaseResult{}, err
	}

	s.log.Info("payment intent created",
		zap.String("order_id", payment.OrderID),
		zap.String("enrollment_id", enrollmentID.String()),
		zap.Bool("enrollment_reused", created.Reused),
	)
	return domain.PurchaseResult{
		Payment:    payment,
		Enrollment: created.Enrollment,
		Checkout:   s.merchant.Checkout(payment, course, student),
	}, nil
}

func (s *Service) GetByOrderID(ctx context.Context, orderID string, actor domain.Actor) (domain.Payment, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Payment{}, domain.ErrInvalidOrderID
	}
	p, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if p == nil {
		return domain.Payment{}, domain.ErrNotFound
	}
	if actor.Role != catalogdomain.RoleAdmin && p.StudentID != actor.ID {
		return domain.Payment{}, domain.ErrForbidden
	}
	return *p, nil
}

func (s *Service) ListForStudent(ctx context.Context, studentID snowflake.ID) ([]domain.Payment, error) {
	items, err := s.repo.ListByStudent(ctx, s.db, studentID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Payment{}
	}
	return items, nil
}

// Verify is the explicit confirmation path for a payment whose callback never
// arrived. It settles through the same transaction as the webhook.
func (s *Service) Verify(ctx context.Context, orderID string, actor domain.Actor) (domain.SettleResult, error) {
	if actor.Role != catalogdomain.RoleAdmin {
		return domain.SettleResult{}, domain.ErrForbidden
	}
	p, err := s.GetByOrderID(ctx, orderID, actor)
	if err != nil {
		return domain.SettleResult{}, err
	}
	if p.Status != domain.StatusPending && p.Status != domain.StatusCompleted {
		return domain.SettleResult{}, domain.ErrNotPending
	}
	return s.Settle(ctx, domain.SettleRequest{
		OrderID:       p.OrderID,
		Status:        domain.StatusCompleted,
		StatusMessage: "verified by " + actor.ID.String(),
		Source:        enrollmentdomain.SourceVerification,
	})
}
