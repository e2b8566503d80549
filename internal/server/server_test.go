package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/academy/internal/auth"
	"github.com/smallbiznis/academy/internal/authorization"
	catalogdomain "github.com/smallbiznis/academy/internal/catalog/domain"
	certificatedomain "github.com/smallbiznis/academy/internal/certificate/domain"
	"github.com/smallbiznis/academy/internal/clock"
	deliverydomain "github.com/smallbiznis/academy/internal/delivery/domain"
	enrollmentdomain "github.com/smallbiznis/academy/internal/enrollment/domain"
	notificationdomain "github.com/smallbiznis/academy/internal/notification/domain"
	paymentdomain "github.com/smallbiznis/academy/internal/payment/domain"
	"github.com/smallbiznis/academy/internal/payment/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEnrollments struct {
	enrollmentdomain.Service
	create  func(enrollmentdomain.CreateRequest) (enrollmentdomain.CreateResult, error)
	approve func(snowflake.ID, enrollmentdomain.Actor) (enrollmentdomain.Enrollment, error)
}

func (f *fakeEnrollments) Create(_ context.Context, req enrollmentdomain.CreateRequest) (enrollmentdomain.CreateResult, error) {
	return f.create(req)
}

func (f *fakeEnrollments) Approve(_ context.Context, id snowflake.ID, actor enrollmentdomain.Actor) (enrollmentdomain.Enrollment, error) {
	return f.approve(id, actor)
}

type fakePayments struct {
	paymentdomain.Service
	purchase func(paymentdomain.PurchaseRequest) (paymentdomain.PurchaseResult, error)
}

func (f *fakePayments) Purchase(_ context.Context, req paymentdomain.PurchaseRequest) (paymentdomain.PurchaseResult, error) {
	return f.purchase(req)
}

type fakeCertificates struct {
	certificatedomain.Service
	check    func(snowflake.ID, certificatedomain.Actor) (certificatedomain.Completion, error)
	download func(snowflake.ID, certificatedomain.Actor) (certificatedomain.Download, error)
}

func (f *fakeCertificates) CheckCourseCompletion(_ context.Context, courseID snowflake.ID, actor certificatedomain.Actor) (certificatedomain.Completion, error) {
	return f.check(courseID, actor)
}

func (f *fakeCertificates) GetDownload(_ context.Context, id snowflake.ID, actor certificatedomain.Actor) (certificatedomain.Download, error) {
	return f.download(id, actor)
}

type fakeDeliveries struct {
	deliverydomain.Service
	update func(deliverydomain.UpdateRequest) (deliverydomain.Delivery, error)
}

func (f *fakeDeliveries) Update(_ context.Context, req deliverydomain.UpdateRequest) (deliverydomain.Delivery, error) {
	return f.update(req)
}

type fakeNotifications struct {
	notificationdomain.Service
	list func(notificationdomain.ListRequest) (notificationdomain.ListResponse, error)
}

func (f *fakeNotifications) List(_ context.Context, req notificationdomain.ListRequest) (notificationdomain.ListResponse, error) {
	return f.list(req)
}

type harness struct {
	server *Server
	issuer *auth.Issuer
}

func newHarness(t *testing.T, p ServerParams) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer, err := auth.NewIssuer("test-secret", time.Hour, clock.NewFakeClock(time.Now()))
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer()
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	p.Gin = engine
	p.Issuer = issuer
	p.AuthzSvc = authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer})
	if p.WebhookSvc == nil {
		p.WebhookSvc = webhook.New(webhook.Params{Log: zap.NewNop()})
	}
	return &harness{server: NewServer(p), issuer: issuer}
}

func (h *harness) do(t *testing.T, method, path, role string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		token, err := h.issuer.Issue(auth.Identity{UserID: snowflake.ID(7), Role: role})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestRoutesRequireToken(t *testing.T) {
	h := newHarness(t, ServerParams{})

	rec := h.do(t, http.MethodGet, "/api/enrollments", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)
}

func TestPurchaseCourse(t *testing.T) {
	var got paymentdomain.PurchaseRequest
	h := newHarness(t, ServerParams{
		PaymentSvc: &fakePayments{purchase: func(req paymentdomain.PurchaseRequest) (paymentdomain.PurchaseResult, error) {
			got = req
			return paymentdomain.PurchaseResult{
				Payment:  paymentdomain.Payment{OrderID: "ord-1", Status: paymentdomain.StatusPending},
				Checkout: paymentdomain.Checkout{OrderID: "ord-1", Hash: "ABC"},
			}, nil
		}},
	})

	rec := h.do(t, http.MethodPost, "/api/courses/99/purchase", "student", `{"requires_delivery":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, snowflake.ID(7), got.StudentID)
	assert.Equal(t, snowflake.ID(99), got.CourseID)
	assert.True(t, got.RequiresDelivery)
	assert.Contains(t, rec.Body.String(), `"hash":"ABC"`)

	rec = h.do(t, http.MethodPost, "/api/courses/99/purchase", "instructor", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/courses/abc/purchase", "student", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", decodeError(t, rec).Errors[0].Code)
}

func TestRequestEnrollmentMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"pending", enrollmentdomain.ErrPendingExists, http.StatusConflict, "an enrollment request is already pending"},
		{"approved", enrollmentdomain.ErrAlreadyApproved, http.StatusConflict, "already enrolled"},
		{"address", enrollmentdomain.ErrDeliveryAddressIncomplete, http.StatusBadRequest, "update your delivery address before ordering materials"},
		{"course", catalogdomain.ErrCourseNotFound, http.StatusNotFound, "not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, ServerParams{
				EnrollmentSvc: &fakeEnrollments{create: func(enrollmentdomain.CreateRequest) (enrollmentdomain.CreateResult, error) {
					return enrollmentdomain.CreateResult{}, tc.err
				}},
			})
			rec := h.do(t, http.MethodPost, "/api/courses/5/enrollments", "student", `{"method":"manual"}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, decodeError(t, rec).Message)
		})
	}
}

func TestRequestEnrollmentValidatesMethod(t *testing.T) {
	h := newHarness(t, ServerParams{})

	rec := h.do(t, http.MethodPost, "/api/courses/5/enrollments", "student", `{"method":"cash"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "method", payload.Errors[0].Field)
	assert.Equal(t, "oneof", payload.Errors[0].Code)
}

func TestRequestEnrollmentReuse(t *testing.T) {
	h := newHarness(t, ServerParams{
		EnrollmentSvc: &fakeEnrollments{create: func(req enrollmentdomain.CreateRequest) (enrollmentdomain.CreateResult, error) {
			assert.Equal(t, enrollmentdomain.MethodManual, req.Method)
			return enrollmentdomain.CreateResult{
				Enrollment: enrollmentdomain.Enrollment{ID: 1, Status: enrollmentdomain.StatusPending},
				Reused:     true,
			}, nil
		}},
	})

	rec := h.do(t, http.MethodPost, "/api/courses/5/enrollments", "student", `{"method":"manual"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reused":true`)
}

func TestApproveEnrollmentAdminInheritsInstructor(t *testing.T) {
	h := newHarness(t, ServerParams{
		EnrollmentSvc: &fakeEnrollments{approve: func(id snowflake.ID, actor enrollmentdomain.Actor) (enrollmentdomain.Enrollment, error) {
			return enrollmentdomain.Enrollment{ID: id, Status: enrollmentdomain.StatusApproved}, nil
		}},
	})

	assert.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/enrollments/3/approve", "admin", "").Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/enrollments/3/approve", "instructor", "").Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodPost, "/api/enrollments/3/approve", "student", "").Code)
}

func TestCheckCourseCompletion(t *testing.T) {
	h := newHarness(t, ServerParams{
		CertificateSvc: &fakeCertificates{check: func(courseID snowflake.ID, actor certificatedomain.Actor) (certificatedomain.Completion, error) {
			return certificatedomain.Completion{
				Completed:       true,
				CompletedVideos: 3,
				TotalVideos:     3,
				Certificate:     &certificatedomain.Certificate{ID: 11},
				AlreadyIssued:   true,
			}, nil
		}},
	})

	rec := h.do(t, http.MethodPost, "/api/courses/5/completion", "student", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"certificate already exists"`)
	assert.Contains(t, rec.Body.String(), `"total_videos":3`)
}

func TestDownloadCertificate(t *testing.T) {
	download := certificatedomain.Download{URL: "https://blob.example/cert.pdf?sig=1", Filename: "cert.pdf"}
	h := newHarness(t, ServerParams{
		CertificateSvc: &fakeCertificates{download: func(id snowflake.ID, _ certificatedomain.Actor) (certificatedomain.Download, error) {
			if id == 404 {
				return certificatedomain.Download{}, certificatedomain.ErrArtifactMissing
			}
			return download, nil
		}},
	})

	rec := h.do(t, http.MethodGet, "/api/certificates/11/download", "student", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, download.URL, rec.Header().Get("Location"))

	rec = h.do(t, http.MethodGet, "/api/certificates/404/download", "student", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "certificate file is not available yet", decodeError(t, rec).Message)
}

func TestUpdateDeliveryPartial(t *testing.T) {
	var got deliverydomain.UpdateRequest
	h := newHarness(t, ServerParams{
		DeliverySvc: &fakeDeliveries{update: func(req deliverydomain.UpdateRequest) (deliverydomain.Delivery, error) {
			got = req
			return deliverydomain.Delivery{ID: req.DeliveryID, Status: *req.Status}, nil
		}},
	})

	rec := h.do(t, http.MethodPatch, "/api/deliveries/8", "instructor", `{"status":"shipped","tracking_number":" TRK-1 "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, got.Status)
	assert.Equal(t, deliverydomain.StatusShipped, *got.Status)
	require.NotNil(t, got.TrackingNumber)
	assert.Equal(t, "TRK-1", *got.TrackingNumber)
	assert.Nil(t, got.Courier)
	assert.Nil(t, got.Notes)

	rec = h.do(t, http.MethodPatch, "/api/deliveries/8", "student", `{"status":"SHIPPED"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPatch, "/api/deliveries/8", "instructor", `{"status":"LOST"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListNotifications(t *testing.T) {
	var got notificationdomain.ListRequest
	h := newHarness(t, ServerParams{
		NotificationSvc: &fakeNotifications{list: func(req notificationdomain.ListRequest) (notificationdomain.ListResponse, error) {
			got = req
			return notificationdomain.ListResponse{UnreadCount: 2}, nil
		}},
	})

	rec := h.do(t, http.MethodGet, "/api/notifications?unread_only=true&page_size=5", "student", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.UnreadOnly)
	assert.Equal(t, 5, got.Page.PageSize)
	assert.Equal(t, snowflake.ID(7), got.RecipientID)
	assert.Contains(t, rec.Body.String(), `"unread_count":2`)

	rec = h.do(t, http.MethodGet, "/api/notifications?unread_only=maybe", "student", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookWithoutMerchantIsUnavailable(t *testing.T) {
	h := newHarness(t, ServerParams{})

	form := url.Values{"order_id": {"ord-1"}, "status_code": {"2"}}
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.server.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(paymentdomain.ErrGatewayAuthenticity)
	assert.Equal(t, "unauthorized", typ)
	assert.Equal(t, "gateway_authenticity_failed", code)

	typ, code = classifyErrorForLog(deliverydomain.ErrInvalidTransition)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_status_transition", code)
}
