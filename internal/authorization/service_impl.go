package authorization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

const (
	ObjectCourse       = "course"
	ObjectEnrollment   = "enrollment"
	ObjectProgress     = "progress"
	ObjectPayment      = "payment"
	ObjectCertificate  = "certificate"
	ObjectDelivery     = "delivery"
	ObjectNotification = "notification"
)

const (
	ActionCoursePurchase = "course.purchase"

	ActionEnrollmentRequest     = "enrollment.request"
	ActionEnrollmentView        = "enrollment.view"
	ActionEnrollmentApprove     = "enrollment.approve"
	ActionEnrollmentReject      = "enrollment.reject"
	ActionEnrollmentListPending = "enrollment.list_pending"

	ActionProgressRecord = "progress.record"

	ActionPaymentView   = "payment.view"
	ActionPaymentVerify = "payment.verify"

	ActionCertificateCheck    = "certificate.check"
	ActionCertificateView     = "certificate.view"
	ActionCertificateDownload = "certificate.download"

	ActionDeliveryView   = "delivery.view"
	ActionDeliveryUpdate = "delivery.update"
	ActionDeliveryDelete = "delivery.delete"

	ActionNotificationView = "notification.view"
	ActionNotificationRead = "notification.read"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

// Service answers whether a role may perform an action on an object kind.
// Ownership of individual rows is checked by the owning domain service.
type Service interface {
	Authorize(ctx context.Context, role string, object string, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role string, object string, action string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("role:%s", role)
	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Student permissions
		{"role:student", ObjectCourse, ActionCoursePurchase},
		{"role:student", ObjectEnrollment, ActionEnrollmentRequest},
		{"role:student", ObjectEnrollment, ActionEnrollmentView},
		{"role:student", ObjectProgress, ActionProgressRecord},
		{"role:student", ObjectPayment, ActionPaymentView},
		{"role:student", ObjectCertificate, ActionCertificateCheck},
		{"role:student", ObjectCertificate, ActionCertificateView},
		{"role:student", ObjectCertificate, ActionCertificateDownload},
		{"role:student", ObjectDelivery, ActionDeliveryView},
		{"role:student", ObjectNotification, ActionNotificationView},
		{"role:student", ObjectNotification, ActionNotificationRead},

		// Instructor permissions
		{"role:instructor", ObjectEnrollment, ActionEnrollmentApprove},
		{"role:instructor", ObjectEnrollment, ActionEnrollmentReject},
		{"role:instructor", ObjectEnrollment, ActionEnrollmentListPending},
		{"role:instructor", ObjectDelivery, ActionDeliveryView},
		{"role:instructor", ObjectDelivery, ActionDeliveryUpdate},
		{"role:instructor", ObjectDelivery, ActionDeliveryDelete},
		{"role:instructor", ObjectNotification, ActionNotificationView},
		{"role:instructor", ObjectNotification, ActionNotificationRead},

		// Admin permissions
		{"role:admin", ObjectPayment, ActionPaymentVerify},
		{"role:admin", ObjectCertificate, ActionCertificateView},
		{"role:admin", ObjectCertificate, ActionCertificateDownload},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// Admins moderate everything instructors do and can read student views.
	if _, err := enforcer.AddGroupingPolicy("role:admin", "role:instructor"); err != nil {
		return err
	}
	if _, err := enforcer.AddPolicy("role:admin", ObjectPayment, ActionPaymentView); err != nil {
		return err
	}
	return nil
}
