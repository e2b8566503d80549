package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/academy/internal/certificate/domain"
	"github.com/smallbiznis/academy/internal/dispatch"
	notificationdomain "github.com/smallbiznis/academy/internal/notification/domain"
)

var errNoRecipient = errors.New("student_has_no_email")

// announce tells the student about a first issuance. Both steps go through
// the dispatcher and never block or fail the completion check.
func (s *Service) announce(ctx context.Context, cert domain.Certificate) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, notificationdomain.Notice{
			RecipientID: cert.StudentID,
			Title:       "Certificate issued",
			Message:     "Congratulations! Your course certificate is ready to download.",
			Type:        notificationdomain.TypeCertificate,
		})
	}
	if s.email == nil || s.dispatcher == nil {
		return
	}
	s.dispatcher.Submit(dispatch.Job{
		Kind:    "email",
		Name:    "certificate_issued",
		Payload: map[string]string{"certificate_id": cert.ID.String()},
		Run: func(jobCtx context.Context) error {
			return s.sendIssuedEmail(jobCtx, cert)
		},
	})
}

func (s *Service) sendIssuedEmail(ctx context.Context, cert domain.Certificate) error {
	student, err := s.catalog.GetProfile(ctx, cert.StudentID)
	if err != nil {
		return err
	}
	if student.Email == "" {
		return errNoRecipient
	}
	if !cert.HasArtifact() {
		if cert, err = s.GenerateArtifact(ctx, cert.ID); err != nil {
			return err
		}
	}
	link, err := s.sign(ctx, cert, s.currentPolicy().Certificate.EmailLinkTTL)
	if err != nil {
		return fmt.Errorf("sign email link: %w", err)
	}
	course, err := s.catalog.GetCourse(ctx, cert.CourseID)
	if err != nil {
		return err
	}

	return s.email.SendTemplate(ctx, []string{student.Email}, "certificate_issued", map[string]any{
		"student_name": student.Name,
		"course_title": course.Title,
		"issued_at":    cert.IssuedAt.Format("2 January 2006"),
		"download_url": link.URL,
		"expires_at":   link.ExpiresAt.Format("2 January 2006"),
	})
}
