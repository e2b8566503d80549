package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	enrollmentdomain "github.com/smallbiznis/academy/internal/enrollment/domain"
	notificationdomain "github.com/smallbiznis/academy/internal/notification/domain"
	"github.com/smallbiznis/academy/internal/payment/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type settleOutcome struct {
	result         domain.SettleResult
	approvedFirst  bool
	cancelledFirst bool
	moved          bool
}

// Settle applies a gateway outcome. The payment status, the enrollment status
// and the link between them commit together; activation and notifications
// run after commit and never fail the call.
func (s *Service) Settle(ctx context.Context, req domain.SettleRequest) (domain.SettleResult, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		return domain.SettleResult{}, domain.ErrInvalidOrderID
	}
	if !req.Status.Valid() {
		return domain.SettleResult{}, domain.ErrInvalidStatus
	}

	now := s.clock.Now()
	var out settleOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.settleTx(ctx, tx, req, now)
		return err
	})
	if err != nil {
		return domain.SettleResult{}, err
	}

	s.afterSettle(ctx, req, out)
	return out.result, nil
}

func (s *Service) settleTx(ctx context.Context, tx *gorm.DB, req domain.SettleRequest, now time.Time) (settleOutcome, error) {
	var out settleOutcome

	p, err := s.repo.FindByOrderID(ctx, tx, req.OrderID)
	if err != nil {
		return out, err
	}
	if p == nil {
		return out, domain.ErrNotFound
	}
	if req.Amount != nil && (*req.Amount != p.Amount || !strings.EqualFold(req.Currency, p.Currency)) {
		return out, domain.ErrAmountMismatch
	}

	switch {
	case p.Status == req.Status:
		out.result.Replay = true
	case !domain.CanMove(p.Status, req.Status):
		out.result.Ignored = true
		out.result.Payment = *p
		return out, nil
	default:
		update := domain.StatusUpdate{
			From:             p.Status,
			To:               req.Status,
			Method:           req.Method,
			GatewayPaymentID: req.GatewayPaymentID,
			StatusMessage:    req.StatusMessage,
			UpdatedAt:        now,
		}
		if req.Status == domain.StatusCompleted {
			update.CompletedAt = &now
		}
		rows, err := s.repo.UpdateStatus(ctx, tx, p.ID, update)
		if err != nil {
			return out, err
		}
		if rows == 0 {
			// A concurrent delivery of the same callback may have won.
			current, err := s.repo.FindByOrderID(ctx, tx, req.OrderID)
			if err != nil {
				return out, err
			}
			if current == nil || current.Status != req.Status {
				return out, domain.ErrConcurrentUpdate
			}
			out.result.Replay = true
		} else {
			out.moved = true
		}
	}

	effect := domain.EffectOf(req.Status)
	enrollment, created, action, err := s.link(ctx, tx, p, effect, now)
	if err != nil {
		return out, err
	}
	out.result.Linkage = action

	if enrollment != nil && !out.result.Replay {
		switch effect {
		case domain.EffectApprove:
			if created {
				out.approvedFirst = true
			} else {
				rows, err := s.enrollmentRepo.Approve(ctx, tx, enrollment.ID, nil, now)
				if err != nil {
					return out, err
				}
				out.approvedFirst = rows > 0
			}
		case domain.EffectCancel:
			// A plain cancellation never revokes access that was granted
			// some other way; a chargeback does.
			if enrollment.Status == enrollmentdomain.StatusPending || req.Status == domain.StatusChargedback {
				rows, err := s.enrollmentRepo.Cancel(ctx, tx, enrollment.ID, now)
				if err != nil {
					return out, err
				}
				out.cancelledFirst = rows > 0
			}
		}
	}

	stored, err := s.repo.FindByOrderID(ctx, tx, req.OrderID)
	if err != nil {
		return out, err
	}
	out.result.Payment = *stored
	if enrollment != nil {
		reloaded, err := s.enrollmentRepo.FindByID(ctx, tx, enrollment.ID)
		if err != nil {
			return out, err
		}
		out.result.Enrollment = reloaded
	}
	return out, nil
}

// link resolves the enrollment the payment applies to and records the link.
func (s *Service) link(ctx context.Context, tx *gorm.DB, p *domain.Payment, effect domain.EnrollmentEffect, now time.Time) (*enrollmentdomain.Enrollment, bool, domain.LinkAction, error) {
	var existing *enrollmentdomain.Enrollment
	if p.EnrollmentID == nil || *p.EnrollmentID == 0 {
		found, err := s.enrollmentRepo.FindByStudentCourse(ctx, tx, p.StudentID, p.CourseID)
		if err != nil {
			return nil, false, domain.LinkSkip, err
		}
		existing = found
	}
	linkage := domain.ResolveLinkage(p.EnrollmentID, enrollmentIDOf(existing), effect)
	switch linkage.Action {
	case domain.LinkSkip:
		return nil, false, linkage.Action, nil

	case domain.LinkUseLinked:
		e, err := s.enrollmentRepo.FindByID(ctx, tx, linkage.EnrollmentID)
		if err != nil {
			return nil, false, linkage.Action, err
		}
		if e == nil {
			return nil, false, linkage.Action, enrollmentdomain.ErrNotFound
		}
		return e, false, linkage.Action, nil

	case domain.LinkExisting:
		if _, err := s.repo.LinkEnrollment(ctx, tx, p.ID, existing.ID); err != nil {
			return nil, false, linkage.Action, err
		}
		return existing, false, linkage.Action, nil
	}

	e := enrollmentdomain.Enrollment{
		ID:            s.genID.Generate(),
		StudentID:     p.StudentID,
		CourseID:      p.CourseID,
		Status:        enrollmentdomain.StatusApproved,
		PaymentMethod: enrollmentdomain.MethodOnline,
		ApprovedAt:    &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	inserted, err := s.enrollmentRepo.Insert(ctx, tx, &e)
	if err != nil {
		return nil, false, linkage.Action, err
	}
	if !inserted {
		found, err := s.enrollmentRepo.FindByStudentCourse(ctx, tx, p.StudentID, p.CourseID)
		if err != nil {
			return nil, false, linkage.Action, err
		}
		if found == nil {
			return nil, false, linkage.Action, domain.ErrConcurrentUpdate
		}
		e = *found
	}
	if _, err := s.repo.LinkEnrollment(ctx, tx, p.ID, e.ID); err != nil {
		return nil, false, linkage.Action, err
	}
	return &e, inserted, linkage.Action, nil
}

func (s *Service) afterSettle(ctx context.Context, req domain.SettleRequest, out settleOutcome) {
	res := out.result
	log := s.log.With(
		zap.String("order_id", res.Payment.OrderID),
		zap.String("status", string(req.Status)),
		zap.String("linkage", res.Linkage.String()),
	)
	switch {
	case res.Ignored:
		log.Warn("stale gateway outcome ignored", zap.String("stored_status", string(res.Payment.Status)))
		return
	case res.Replay:
		log.Info("payment outcome replayed")
	default:
		log.Info("payment settled")
	}

	if res.Enrollment == nil {
		return
	}
	e := *res.Enrollment

	if domain.EffectOf(req.Status) == domain.EffectApprove && e.Status == enrollmentdomain.StatusApproved {
		if out.approvedFirst {
			s.metrics.RecordEnrollmentApproved(ctx, string(req.Source))
		}
		if s.hooks != nil {
			s.hooks.Approved(ctx, enrollmentdomain.ApprovalEvent{
				Enrollment: e,
				Source:     req.Source,
				First:      out.approvedFirst,
			})
		}
		return
	}

	if !out.moved || s.notifier == nil {
		return
	}
	var message string
	switch req.Status {
	case domain.StatusCancelled:
		message = "Your payment was cancelled."
	case domain.StatusFailed:
		message = "Your payment could not be completed. Please try again."
	case domain.StatusChargedback:
		message = "Your payment was charged back and course access has been removed."
	default:
		return
	}
	s.notifier.Notify(ctx, notificationdomain.Notice{
		RecipientID: e.StudentID,
		Title:       "Payment update",
		Message:     message,
		Type:        notificationdomain.TypePayment,
	})
}

func enrollmentIDOf(e *enrollmentdomain.Enrollment) *snowflake.ID {
	if e == nil {
		return nil
	}
	return &e.ID
}
