package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/academy/internal/catalog/domain"
	"github.com/smallbiznis/academy/internal/certificate/domain"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/config"
	"github.com/smallbiznis/academy/internal/dispatch"
	enrollmentdomain "github.com/smallbiznis/academy/internal/enrollment/domain"
	notificationdomain "github.com/smallbiznis/academy/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	"github.com/smallbiznis/academy/internal/providers/email"
	"github.com/smallbiznis/academy/internal/providers/pdf"
	"github.com/smallbiznis/academy/internal/providers/storage"
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
	PDF            pdf.Provider
	Blobs          storage.BlobStore
	Dispatcher     dispatch.Submitter
	Email          email.Provider              `optional:"true"`
	Notifier       notificationdomain.Notifier `optional:"true"`
	Policy         *config.PolicyHolder        `optional:"true"`
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
	pdf            pdf.Provider
	blobs          storage.BlobStore
	dispatcher     dispatch.Submitter
	email          email.Provider
	notifier       notificationdomain.Notifier
	policy         *config.PolicyHolder
	metrics        *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("certificate.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		enrollmentRepo: p.EnrollmentRepo,
		catalog:        p.Catalog,
		pdf:            p.PDF,
		blobs:          p.Blobs,
		dispatcher:     p.Dispatcher,
		email:          p.Email,
		notifier:       p.Notifier,
		policy:         p.Policy,
		metrics:        p.Metrics,
	}
}

func (s *Service) CheckCourseCompletion(ctx context.Context, courseID snowflake.ID, actor domain.Actor) (domain.Completion, error) {
	e, err := s.enrollmentRepo.FindByStudentCourse(ctx, s.db, actor.ID, courseID)
	if err != nil {
		return domain.Completion{}, err
	}
	if e == nil {
		return domain.Completion{}, domain.ErrNotEnrolled
	}
	return s.check(ctx, *e, actor)
}

func (s *Service) CheckCompletion(ctx context.Context, enrollmentID snowflake.ID, actor domain.Actor) (domain.Completion, error) {
	e, err := s.enrollmentRepo.FindByID(ctx, s.db, enrollmentID)
	if err != nil {
		return domain.Completion{}, err
	}
	if e == nil {
		return domain.Completion{}, domain.ErrNotEnrolled
	}
	return s.check(ctx, *e, actor)
}

// check compares completed videos against the course total. The certificate
// row is written before any artifact work so a failed render never loses the
// issuance.
func (s *Service) check(ctx context.Context, e enrollmentdomain.Enrollment, actor domain.Actor) (domain.Completion, error) {
	if e.StudentID != actor.ID {
		return domain.Completion{}, domain.ErrForbidden
	}
	if e.Status != enrollmentdomain.StatusApproved {
		return domain.Completion{}, domain.ErrNotApproved
	}

	total, err := s.catalog.CountVideos(ctx, e.CourseID)
	if err != nil {
		return domain.Completion{}, err
	}
	completed, err := s.enrollmentRepo.CountCompleted(ctx, s.db, e.ID)
	if err != nil {
		return domain.Completion{}, err
	}
	out := domain.Completion{CompletedVideos: completed, TotalVideos: total}
	if total == 0 || completed < total {
		return out, nil
	}
	out.Completed = true

	existing, err := s.repo.FindByStudentCourse(ctx, s.db, e.StudentID, e.CourseID)
	if err != nil {
		return domain.Completion{}, err
	}
	if existing != nil {
		out.Certificate = existing
		out.AlreadyIssued = true
		return out, nil
	}

	now := s.clock.Now()
	cert := domain.Certificate{
		ID:           s.genID.Generate(),
		StudentID:    e.StudentID,
		CourseID:     e.CourseID,
		EnrollmentID: e.ID,
		CompletedAt:  now,
		IssuedAt:     now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	inserted, err := s.repo.Insert(ctx, s.db, &cert)
	if err != nil {
		return domain.Completion{}, err
	}
	if !inserted {
		winner, err := s.repo.FindByStudentCourse(ctx, s.db, e.StudentID, e.CourseID)
		if err != nil {
			return domain.Completion{}, err
		}
		if winner == nil {
			return domain.Completion{}, domain.ErrNotFound
		}
		out.Certificate = winner
		out.AlreadyIssued = true
		return out, nil
	}

	s.metrics.RecordCertificateIssued(ctx)
	s.log.Info("certificate issued",
		zap.String("certificate_id", cert.ID.String()),
		zap.String("enrollment_id", e.ID.String()),
	)

	if generated, err := s.GenerateArtifact(ctx, cert.ID); err != nil {
		s.log.Warn("certificate artifact deferred", zap.String("certificate_id", cert.ID.String()), zap.Error(err))
	} else {
		cert = generated
	}

	s.announce(ctx, cert)
	out.Certificate = &cert
	return out, nil
}

func (s *Service) Get(ctx context.Context, certificateID snowflake.ID, actor domain.Actor) (domain.Certificate, error) {
	cert, err := s.load(ctx, certificateID)
	if err != nil {
		return domain.Certificate{}, err
	}
	if actor.Role != catalogdomain.RoleAdmin && cert.StudentID != actor.ID {
		return domain.Certificate{}, domain.ErrForbidden
	}
	return cert, nil
}

func (s *Service) List(ctx context.Context, studentID snowflake.ID) ([]domain.Certificate, error) {
	items, err := s.repo.ListByStudent(ctx, s.db, studentID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Certificate{}
	}
	return items, nil
}

// GetDownload signs a short-lived link to the artifact, rendering it first
// when it was never stored.
func (s *Service) GetDownload(ctx context.Context, certificateID snowflake.ID, actor domain.Actor) (domain.Download, error) {
	cert, err := s.Get(ctx, certificateID, actor)
	if err != nil {
		return domain.Download{}, err
	}
	if !cert.HasArtifact() {
		cert, err = s.GenerateArtifact(ctx, cert.ID)
		if err != nil {
			return domain.Download{}, err
		}
	}
	return s.sign(ctx, cert, s.currentPolicy().Certificate.DownloadLinkTTL)
}

func (s *Service) sign(ctx context.Context, cert domain.Certificate, ttl time.Duration) (domain.Download, error) {
	key := *cert.StorageKey
	ok, err := s.blobs.Exists(ctx, key)
	if err != nil {
		return domain.Download{}, err
	}
	if !ok {
		return domain.Download{}, domain.ErrArtifactMissing
	}

	filename := "certificate.pdf"
	if names, err := s.names(ctx, cert); err == nil {
		filename = storage.CertificateFilename(names.CourseTitle, names.StudentName)
	}
	signed, err := s.blobs.Sign(ctx, key, ttl, filename)
	if err != nil {
		return domain.Download{}, err
	}
	return domain.Download{URL: signed.URL, ExpiresAt: signed.ExpiresAt, Filename: filename}, nil
}

// GenerateArtifact renders and uploads the PDF, then records its key.
// Running it again overwrites the same object.
func (s *Service) GenerateArtifact(ctx context.Context, certificateID snowflake.ID) (domain.Certificate, error) {
	cert, err := s.load(ctx, certificateID)
	if err != nil {
		return domain.Certificate{}, err
	}
	names, err := s.names(ctx, cert)
	if err != nil {
		s.metrics.RecordArtifactFailure(ctx, "lookup")
		return domain.Certificate{}, err
	}

	doc, err := s.pdf.RenderCertificate(ctx, names)
	if err != nil {
		s.metrics.RecordArtifactFailure(ctx, "render")
		return domain.Certificate{}, fmt.Errorf("render certificate: %w", err)
	}
	key := domain.ArtifactKey(cert.ID)
	if err := s.blobs.Put(ctx, key, "application/pdf", doc); err != nil {
		s.metrics.RecordArtifactFailure(ctx, "upload")
		return domain.Certificate{}, fmt.Errorf("upload certificate: %w", err)
	}
	now := s.clock.Now()
	if _, err := s.repo.SetStorageKey(ctx, s.db, cert.ID, key, now); err != nil {
		s.metrics.RecordArtifactFailure(ctx, "persist")
		return domain.Certificate{}, err
	}

	cert.StorageKey = &key
	cert.UpdatedAt = now
	return cert, nil
}

// BackfillArtifacts works through certificates without an artifact, least
// recently attempted first. A failed attempt moves the certificate to the back
// of the queue so a permanently broken one cannot starve the rest.
func (s *Service) BackfillArtifacts(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 25
	}
	pending, err := s.repo.ListMissingArtifact(ctx, s.db, limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, cert := range pending {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.GenerateArtifact(ctx, cert.ID); err != nil {
			s.log.Warn("artifact backfill failed", zap.String("certificate_id", cert.ID.String()), zap.Error(err))
			if _, touchErr := s.repo.TouchMissingArtifact(ctx, s.db, cert.ID, s.clock.Now()); touchErr != nil {
				s.log.Warn("defer artifact backfill", zap.String("certificate_id", cert.ID.String()), zap.Error(touchErr))
			}
			continue
		}
		done++
	}
	return done, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (domain.Certificate, error) {
	if id == 0 {
		return domain.Certificate{}, domain.ErrNotFound
	}
	cert, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Certificate{}, err
	}
	if cert == nil {
		return domain.Certificate{}, domain.ErrNotFound
	}
	return *cert, nil
}

func (s *Service) names(ctx context.Context, cert domain.Certificate) (pdf.CertificateData, error) {
	student, err := s.catalog.GetProfile(ctx, cert.StudentID)
	if err != nil {
		return pdf.CertificateData{}, err
	}
	course, err := s.catalog.GetCourse(ctx, cert.CourseID)
	if err != nil {
		return pdf.CertificateData{}, err
	}
	return pdf.CertificateData{
		CertificateID: cert.ID.String(),
		StudentName:   student.Name,
		CourseTitle:   course.Title,
		IssuedAt:      cert.IssuedAt,
	}, nil
}

func (s *Service) currentPolicy() config.Policy {
	return s.policy.Get()
}
