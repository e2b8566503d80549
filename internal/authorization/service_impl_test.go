package authorization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeRolePolicies(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		role    string
		object  string
		action  string
		allowed bool
	}{
		{"student purchases", "student", ObjectCourse, ActionCoursePurchase, true},
		{"student cannot approve", "student", ObjectEnrollment, ActionEnrollmentApprove, false},
		{"instructor approves", "instructor", ObjectEnrollment, ActionEnrollmentApprove, true},
		{"instructor cannot verify payments", "instructor", ObjectPayment, ActionPaymentVerify, false},
		{"instructor patches deliveries", "instructor", ObjectDelivery, ActionDeliveryUpdate, true},
		{"admin inherits instructor", "admin", ObjectEnrollment, ActionEnrollmentReject, true},
		{"admin verifies payments", "admin", ObjectPayment, ActionPaymentVerify, true},
		{"role is case insensitive", "ADMIN", ObjectPayment, ActionPaymentVerify, true},
		{"unknown role", "guest", ObjectCourse, ActionCoursePurchase, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Authorize(ctx, tc.role, tc.object, tc.action)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestAuthorizeRejectsBlankInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, " ", ObjectCourse, ActionCoursePurchase), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(ctx, "student", "", ActionCoursePurchase), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "student", ObjectCourse, ""), ErrInvalidAction)
}
