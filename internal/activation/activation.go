// Package activation runs the best-effort steps that follow an enrollment
// reaching a terminal decision: delivery creation and student notification.
package activation

import (
	"context"
	"fmt"

	catalogdomain "github.com/smallbiznis/academy/internal/catalog/domain"
	deliverydomain "github.com/smallbiznis/academy/internal/delivery/domain"
	enrollmentdomain "github.com/smallbiznis/academy/internal/enrollment/domain"
	notificationdomain "github.com/smallbiznis/academy/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Catalog    catalogdomain.Service
	Deliveries deliverydomain.Service
	Notifier   notificationdomain.Notifier
}

type Hooks struct {
	log        *zap.Logger
	catalog    catalogdomain.Service
	deliveries deliverydomain.Service
	notifier   notificationdomain.Notifier
}

var _ enrollmentdomain.Hooks = (*Hooks)(nil)

func New(p Params) *Hooks {
	return &Hooks{
		log:        p.Log.Named("activation"),
		catalog:    p.Catalog,
		deliveries: p.Deliveries,
		notifier:   p.Notifier,
	}
}

// Approved creates the materials delivery when one is owed and, on the first
// approval only, tells the student. Replays re-run the delivery step since it
// is idempotent per enrollment.
func (h *Hooks) Approved(ctx context.Context, ev enrollmentdomain.ApprovalEvent) {
	e := ev.Enrollment
	log := h.log.With(
		zap.String("enrollment_id", e.ID.String()),
		zap.String("source", string(ev.Source)),
	)

	if e.RequiresDelivery {
		h.ensureDelivery(ctx, log, e)
	}

	if !ev.First {
		return
	}
	h.notifier.Notify(ctx, notificationdomain.Notice{
		RecipientID: e.StudentID,
		Title:       "Enrollment approved",
		Message:     fmt.Sprintf("You now have access to %s.", h.courseTitle(ctx, log, e)),
		Type:        notificationdomain.TypeEnrollment,
	})
}

func (h *Hooks) Rejected(ctx context.Context, e enrollmentdomain.Enrollment) {
	title := h.courseTitle(ctx, h.log.With(zap.String("enrollment_id", e.ID.String())), e)
	h.notifier.Notify(ctx, notificationdomain.Notice{
		RecipientID: e.StudentID,
		Title:       "Enrollment request declined",
		Message:     fmt.Sprintf("Your enrollment request for %s was not approved.", title),
		Type:        notificationdomain.TypeEnrollment,
	})
}

func (h *Hooks) courseTitle(ctx context.Context, log *zap.Logger, e enrollmentdomain.Enrollment) string {
	course, err := h.catalog.GetCourse(ctx, e.CourseID)
	if err != nil {
		log.Warn("load course for notice", zap.Error(err))
		return "your course"
	}
	return course.Title
}

func (h *Hooks) ensureDelivery(ctx context.Context, log *zap.Logger, e enrollmentdomain.Enrollment) {
	profile, err := h.catalog.GetProfile(ctx, e.StudentID)
	if err != nil {
		log.Warn("load profile for delivery", zap.Error(err))
		return
	}
	if !profile.HasDeliveryAddress() {
		log.Info("delivery skipped, address incomplete")
		return
	}

	d, created, err := h.deliveries.Create(ctx, deliverydomain.CreateRequest{
		EnrollmentID: e.ID,
		StudentID:    e.StudentID,
		CourseID:     e.CourseID,
		Address: deliverydomain.AddressSnapshot{
			RecipientName: profile.Name,
			Phone:         profile.Phone,
			AddressLine1:  profile.AddressLine1,
			AddressLine2:  profile.AddressLine2,
			City:          profile.City,
			District:      profile.District,
			PostalCode:    profile.PostalCode,
		},
	})
	if err != nil {
		log.Warn("create delivery", zap.Error(err))
		return
	}
	if created {
		log.Info("delivery queued", zap.String("delivery_id", d.ID.String()))
	}
}
