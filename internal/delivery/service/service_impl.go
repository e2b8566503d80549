package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/academy/internal/catalog/domain"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/delivery/domain"
	enrollmentdomain "github.com/smallbiznis/academy/internal/enrollment/domain"
	notificationdomain "github.com/smallbiznis/academy/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
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
	Catalog        catalogdomain.Service
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
	catalog        catalogdomain.Service
	notifier       notificationdomain.Notifier
	metrics        *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("delivery.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		enrollmentRepo: p.EnrollmentRepo,
		catalog:        p.Catalog,
		notifier:       p.Notifier,
		metrics:        p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Delivery, bool, error) {
	addr := normalizeAddress(req.Address)
	if req.EnrollmentID == 0 || !addressComplete(addr) {
		return domain.Delivery{}, false, domain.ErrIncompleteAddress
	}

	now := s.clock.Now()
	item := domain.Delivery{
		ID:            s.genID.Generate(),
		EnrollmentID:  req.EnrollmentID,
		StudentID:     req.StudentID,
		CourseID:      req.CourseID,
		RecipientName: addr.RecipientName,
		Phone:         addr.Phone,
		AddressLine1:  addr.AddressLine1,
		AddressLine2:  addr.AddressLine2,
		City:          addr.City,
		District:      addr.District,
		PostalCode:    addr.PostalCode,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	inserted, err := s.repo.Insert(ctx, s.db, &item)
	if err != nil {
		return domain.Delivery{}, false, err
	}
	if !inserted {
		existing, err := s.repo.FindByEnrollmentID(ctx, s.db, req.EnrollmentID)
		if err != nil {
			return domain.Delivery{}, false, err
		}
		if existing == nil {
			return domain.Delivery{}, false, domain.ErrNotFound
		}
		return *existing, false, nil
	}

	s.metrics.RecordDeliveryCreated(ctx)
	s.log.Info("delivery created",
		zap.String("delivery_id", item.ID.String()),
		zap.String("enrollment_id", item.EnrollmentID.String()),
	)
	return item, true, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID, actor domain.Actor) (domain.Delivery, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return domain.Delivery{}, err
	}
	if actor.Role == catalogdomain.RoleStudent && item.StudentID == actor.ID {
		return item, nil
	}
	if err := s.authorizeManager(ctx, item, actor); err != nil {
		return domain.Delivery{}, err
	}
	return item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.Delivery, error) {
	current, err := s.load(ctx, req.DeliveryID)
	if err != nil {
		return domain.Delivery{}, err
	}
	if err := s.authorizeManager(ctx, current, req.Actor); err != nil {
		return domain.Delivery{}, err
	}

	now := s.clock.Now()
	patch := domain.Patch{
		TrackingNumber: trimmed(req.TrackingNumber),
		Courier:        trimmed(req.Courier),
		Notes:          trimmed(req.Notes),
	}
	if req.Status != nil {
		target := *req.Status
		if !target.Valid() {
			return domain.Delivery{}, domain.ErrInvalidStatus
		}
		if !domain.CanTransition(current.Status, target) {
			return domain.Delivery{}, domain.ErrInvalidTransition
		}
		patch.Status = &target
		if target == domain.StatusShipped {
			patch.ShippedAt = &now
		}
		if target == domain.StatusDelivered {
			patch.DeliveredAt = &now
		}
	}
	if patch.Status == nil && patch.TrackingNumber == nil && patch.Courier == nil && patch.Notes == nil {
		return domain.Delivery{}, domain.ErrEmptyUpdate
	}
	patch.UpdatedAt = &now

	rows, err := s.repo.ApplyPatch(ctx, s.db, current.ID, current.Status, patch)
	if err != nil {
		return domain.Delivery{}, err
	}
	if rows == 0 {
		return domain.Delivery{}, domain.ErrConcurrentUpdate
	}

	updated, err := s.load(ctx, current.ID)
	if err != nil {
		return domain.Delivery{}, err
	}
	if updated.Status != current.Status {
		s.log.Info("delivery status changed",
			zap.String("delivery_id", updated.ID.String()),
			zap.String("from", string(current.Status)),
			zap.String("to", string(updated.Status)),
		)
		s.notifyStatus(ctx, updated)
	}
	return updated, nil
}

// Delete removes the delivery and clears the enrollment's delivery flag in
// the same transaction.
func (s *Service) Delete(ctx context.Context, id snowflake.ID, actor domain.Actor) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeManager(ctx, current, actor); err != nil {
		return err
	}

	now := s.clock.Now()
	noDelivery := false
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.Delete(ctx, tx, current.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrNotFound
		}
		_, err = s.enrollmentRepo.ApplyPatch(ctx, tx, current.EnrollmentID, enrollmentdomain.Patch{
			RequiresDelivery: &noDelivery,
			UpdatedAt:        &now,
		})
		return err
	})
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Delivery, error) {
	filter := domain.ListFilter{CourseID: req.CourseID, Status: req.Status}
	switch req.Actor.Role {
	case catalogdomain.RoleAdmin:
	case catalogdomain.RoleInstructor:
		instructorID := req.Actor.ID
		filter.InstructorID = &instructorID
	case catalogdomain.RoleStudent:
		studentID := req.Actor.ID
		filter.StudentID = &studentID
	default:
		return nil, domain.ErrForbidden
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Delivery{}
	}
	return items, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (domain.Delivery, error) {
	if id == 0 {
		return domain.Delivery{}, domain.ErrNotFound
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Delivery{}, err
	}
	if item == nil {
		return domain.Delivery{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) authorizeManager(ctx context.Context, item domain.Delivery, actor domain.Actor) error {
	switch actor.Role {
	case catalogdomain.RoleAdmin:
		return nil
	case catalogdomain.RoleInstructor:
		course, err := s.catalog.GetCourse(ctx, item.CourseID)
		if err != nil {
			if errors.Is(err, catalogdomain.ErrCourseNotFound) {
				return domain.ErrForbidden
			}
			return err
		}
		if course.InstructorID == actor.ID {
			return nil
		}
	}
	return domain.ErrForbidden
}

func (s *Service) notifyStatus(ctx context.Context, d domain.Delivery) {
	if s.notifier == nil {
		return
	}
	var message string
	switch d.Status {
	case domain.StatusShipped:
		message = "Your course materials have been shipped."
		if d.TrackingNumber != nil && *d.TrackingNumber != "" {
			message += " Tracking number: " + *d.TrackingNumber
		}
	case domain.StatusDelivered:
		message = "Your course materials have been delivered."
	case domain.StatusCancelled:
		message = "Your course materials delivery was cancelled."
	default:
		return
	}
	s.notifier.Notify(ctx, notificationdomain.Notice{
		RecipientID: d.StudentID,
		Title:       "Delivery update",
		Message:     message,
		Type:        notificationdomain.TypeDelivery,
	})
}

func normalizeAddress(a domain.AddressSnapshot) domain.AddressSnapshot {
	return domain.AddressSnapshot{
		RecipientName: strings.TrimSpace(a.RecipientName),
		Phone:         strings.TrimSpace(a.Phone),
		AddressLine1:  strings.TrimSpace(a.AddressLine1),
		AddressLine2:  strings.TrimSpace(a.AddressLine2),
		City:          strings.TrimSpace(a.City),
		District:      strings.TrimSpace(a.District),
		PostalCode:    strings.TrimSpace(a.PostalCode),
	}
}

func addressComplete(a domain.AddressSnapshot) bool {
	return a.RecipientName != "" && a.Phone != "" && a.AddressLine1 != "" && a.City != "" && a.District != ""
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	return &out
}
