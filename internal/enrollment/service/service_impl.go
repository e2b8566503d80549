package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/academy/internal/catalog/domain"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/enrollment/domain"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Catalog catalogdomain.Service
	Hooks   domain.Hooks        `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	catalog catalogdomain.Service
	hooks   domain.Hooks
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("enrollment.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		catalog: p.Catalog,
		hooks:   p.Hooks,
		metrics: p.Metrics,
	}
}

// Create opens a PENDING enrollment for the student. The unique
// (student_id, course_id) index decides concurrent races: the loser reads the
// winner's row and gets the matching conflict.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.CreateResult, error) {
	if req.StudentID == 0 {
		return domain.CreateResult{}, domain.ErrInvalidStudent
	}
	if req.CourseID == 0 {
		return domain.CreateResult{}, domain.ErrInvalidCourse
	}
	if !req.Method.Valid() {
		return domain.CreateResult{}, domain.ErrInvalidMethod
	}

	course, err := s.catalog.GetCourse(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrCourseNotFound) {
			return domain.CreateResult{}, domain.ErrInvalidCourse
		}
		return domain.CreateResult{}, err
	}
	if req.RequiresDelivery {
		if !course.HasMaterials {
			return domain.CreateResult{}, domain.ErrNoMaterials
		}
		profile, err := s.catalog.GetProfile(ctx, req.StudentID)
		if err != nil {
			if errors.Is(err, catalogdomain.ErrProfileNotFound) {
				return domain.CreateResult{}, domain.ErrInvalidStudent
			}
			return domain.CreateResult{}, err
		}
		if !profile.HasDeliveryAddress() {
			return domain.CreateResult{}, domain.ErrDeliveryAddressIncomplete
		}
	}

	now := s.clock.Now()
	enrollment := domain.Enrollment{
		ID:               s.genID.Generate(),
		StudentID:        req.StudentID,
		CourseID:         req.CourseID,
		Status:           domain.StatusPending,
		PaymentMethod:    req.Method,
		RequiresDelivery: req.RequiresDelivery,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	inserted, err := s.repo.Insert(ctx, s.db, &enrollment)
	if err != nil {
		return domain.CreateResult{}, err
	}
	if inserted {
		return domain.CreateResult{Enrollment: enrollment}, nil
	}

	existing, err := s.repo.FindByStudentCourse(ctx, s.db, req.StudentID, req.CourseID)
	if err != nil {
		return domain.CreateResult{}, err
	}
	if existing == nil {
		// the conflicting row was rejected between our insert and read
		return domain.CreateResult{}, domain.ErrPendingExists
	}
	return s.resolveExisting(ctx, *existing, req, now)
}

func (s *Service) resolveExisting(ctx context.Context, existing domain.Enrollment, req domain.CreateRequest, now time.Time) (domain.CreateResult, error) {
	switch existing.Status {
	case domain.StatusApproved:
		return domain.CreateResult{}, domain.ErrAlreadyApproved

	case domain.StatusCancelled:
		rows, err := s.repo.Reopen(ctx, s.db, existing.ID, req.Method, req.RequiresDelivery, now)
		if err != nil {
			return domain.CreateResult{}, err
		}
		if rows == 0 {
			return domain.CreateResult{}, domain.ErrPendingExists
		}

	case domain.StatusPending:
		// A second manual request is a duplicate. An abandoned online checkout
		// may be turned into a manual request, and any pending request may be
		// paid online instead.
		if req.Method == domain.MethodManual && existing.PaymentMethod == domain.MethodManual {
			return domain.CreateResult{}, domain.ErrPendingExists
		}
		rows, err := s.repo.ConvertPending(ctx, s.db, existing.ID, existing.PaymentMethod, req.Method, req.RequiresDelivery, now)
		if err != nil {
			return domain.CreateResult{}, err
		}
		if rows == 0 {
			return domain.CreateResult{}, domain.ErrPendingExists
		}
	}

	reloaded, err := s.repo.FindByID(ctx, s.db, existing.ID)
	if err != nil {
		return domain.CreateResult{}, err
	}
	if reloaded == nil {
		return domain.CreateResult{}, domain.ErrNotFound
	}
	if reloaded.Status == domain.StatusApproved {
		return domain.CreateResult{}, domain.ErrAlreadyApproved
	}
	return domain.CreateResult{Enrollment: *reloaded, Reused: true}, nil
}

func (s *Service) Approve(ctx context.Context, enrollmentID snowflake.ID, approver domain.Actor) (domain.Enrollment, error) {
	existing, err := s.load(ctx, enrollmentID)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if err := s.authorizeInstructor(ctx, existing.CourseID, approver); err != nil {
		return domain.Enrollment{}, err
	}
	if existing.Status == domain.StatusApproved {
		return domain.Enrollment{}, domain.ErrAlreadyApproved
	}

	approverID := approver.ID
	rows, err := s.repo.Approve(ctx, s.db, enrollmentID, &approverID, s.clock.Now())
	if err != nil {
		return domain.Enrollment{}, err
	}
	if rows == 0 {
		return domain.Enrollment{}, domain.ErrAlreadyApproved
	}

	approved, err := s.load(ctx, enrollmentID)
	if err != nil {
		return domain.Enrollment{}, err
	}

	s.metrics.RecordEnrollmentApproved(ctx, string(domain.SourceInstructor))
	s.log.Info("enrollment approved",
		zap.String("enrollment_id", approved.ID.String()),
		zap.String("approved_by", approver.ID.String()),
	)
	if s.hooks != nil {
		s.hooks.Approved(ctx, domain.ApprovalEvent{Enrollment: approved, Source: domain.SourceInstructor, First: true})
	}
	return approved, nil
}

func (s *Service) Reject(ctx context.Context, enrollmentID snowflake.ID, actor domain.Actor) error {
	existing, err := s.load(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if err := s.authorizeInstructor(ctx, existing.CourseID, actor); err != nil {
		return err
	}
	if existing.Status != domain.StatusPending {
		return domain.ErrNotPending
	}

	rows, err := s.repo.DeletePending(ctx, s.db, enrollmentID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotPending
	}

	s.log.Info("enrollment rejected", zap.String("enrollment_id", existing.ID.String()))
	if s.hooks != nil {
		s.hooks.Rejected(ctx, existing)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, enrollmentID snowflake.ID) (domain.Enrollment, error) {
	return s.load(ctx, enrollmentID)
}

func (s *Service) ListPending(ctx context.Context, courseID snowflake.ID, actor domain.Actor) ([]domain.Enrollment, error) {
	if err := s.authorizeInstructor(ctx, courseID, actor); err != nil {
		return nil, err
	}
	items, err := s.repo.ListPendingByCourse(ctx, s.db, courseID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Enrollment{}
	}
	return items, nil
}

func (s *Service) ListForStudent(ctx context.Context, studentID snowflake.ID) ([]domain.Enrollment, error) {
	if studentID == 0 {
		return nil, domain.ErrInvalidStudent
	}
	items, err := s.repo.ListByStudent(ctx, s.db, studentID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Enrollment{}
	}
	return items, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (domain.Enrollment, error) {
	if id == 0 {
		return domain.Enrollment{}, domain.ErrNotFound
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if item == nil {
		return domain.Enrollment{}, domain.ErrNotFound
	}
	return *item, nil
}

// authorizeInstructor allows admins and the course's own instructor.
func (s *Service) authorizeInstructor(ctx context.Context, courseID snowflake.ID, actor domain.Actor) error {
	if actor.Role == catalogdomain.RoleAdmin {
		return nil
	}
	if actor.Role != catalogdomain.RoleInstructor {
		return domain.ErrForbidden
	}
	course, err := s.catalog.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrCourseNotFound) {
			return domain.ErrInvalidCourse
		}
		return err
	}
	if course.InstructorID != actor.ID {
		return domain.ErrForbidden
	}
	return nil
}
