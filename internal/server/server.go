package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/academy/internal/auth"
	"github.com/smallbiznis/academy/internal/authorization"
	certificatedomain "github.com/smallbiznis/academy/internal/certificate/domain"
	"github.com/smallbiznis/academy/internal/config"
	deliverydomain "github.com/smallbiznis/academy/internal/delivery/domain"
	enrollmentdomain "github.com/smallbiznis/academy/internal/enrollment/domain"
	notificationdomain "github.com/smallbiznis/academy/internal/notification/domain"
	"github.com/smallbiznis/academy/internal/observability"
	obsmiddleware "github.com/smallbiznis/academy/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	obstracing "github.com/smallbiznis/academy/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/academy/internal/payment/domain"
	"github.com/smallbiznis/academy/internal/payment/webhook"
	"github.com/smallbiznis/academy/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	issuer          *auth.Issuer
	authzSvc        authorization.Service
	enrollmentSvc   enrollmentdomain.Service
	paymentSvc      paymentdomain.Service
	webhookSvc      *webhook.Service
	certificateSvc  certificatedomain.Service
	deliverySvc     deliverydomain.Service
	notificationSvc notificationdomain.Service
	purchaseLimiter *ratelimit.PurchaseLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Issuer          *auth.Issuer
	AuthzSvc        authorization.Service
	EnrollmentSvc   enrollmentdomain.Service
	PaymentSvc      paymentdomain.Service
	WebhookSvc      *webhook.Service
	CertificateSvc  certificatedomain.Service
	DeliverySvc     deliverydomain.Service
	NotificationSvc notificationdomain.Service
	PurchaseLimiter *ratelimit.PurchaseLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		issuer:          p.Issuer,
		authzSvc:        p.AuthzSvc,
		enrollmentSvc:   p.EnrollmentSvc,
		paymentSvc:      p.PaymentSvc,
		webhookSvc:      p.WebhookSvc,
		certificateSvc:  p.CertificateSvc,
		deliverySvc:     p.DeliverySvc,
		notificationSvc: p.NotificationSvc,
		purchaseLimiter: p.PurchaseLimiter,
	}

	svc.registerPublicRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	// Gateway server-to-server callback; authenticated by md5sig, not a token.
	s.engine.POST("/api/payments/webhook", s.HandlePaymentWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Courses --------
	api.POST("/courses/:courseId/purchase",
		s.Authorize(authorization.ObjectCourse, authorization.ActionCoursePurchase),
		s.PurchaseRateLimit(),
		s.PurchaseCourse,
	)
	api.POST("/courses/:courseId/enrollments", s.Authorize(authorization.ObjectEnrollment, authorization.ActionEnrollmentRequest), s.RequestEnrollment)
	api.GET("/courses/:courseId/enrollments/pending", s.Authorize(authorization.ObjectEnrollment, authorization.ActionEnrollmentListPending), s.ListPendingEnrollments)
	api.POST("/courses/:courseId/completion", s.Authorize(authorization.ObjectCertificate, authorization.ActionCertificateCheck), s.CheckCourseCompletion)

	// -------- Enrollments --------
	api.GET("/enrollments", s.Authorize(authorization.ObjectEnrollment, authorization.ActionEnrollmentView), s.ListMyEnrollments)
	api.POST("/enrollments/:id/approve", s.Authorize(authorization.ObjectEnrollment, authorization.ActionEnrollmentApprove), s.ApproveEnrollment)
	api.POST("/enrollments/:id/reject", s.Authorize(authorization.ObjectEnrollment, authorization.ActionEnrollmentReject), s.RejectEnrollment)
	api.POST("/enrollments/:id/videos/:videoId/progress", s.Authorize(authorization.ObjectProgress, authorization.ActionProgressRecord), s.RecordVideoProgress)

	// -------- Payments --------
	api.GET("/payments", s.Authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.ListMyPayments)
	api.GET("/payments/:orderId", s.Authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.GetPayment)
	api.POST("/payments/:orderId/verify", s.Authorize(authorization.ObjectPayment, authorization.ActionPaymentVerify), s.VerifyPayment)

	// -------- Certificates --------
	api.GET("/certificates", s.Authorize(authorization.ObjectCertificate, authorization.ActionCertificateView), s.ListCertificates)
	api.GET("/certificates/:id", s.Authorize(authorization.ObjectCertificate, authorization.ActionCertificateView), s.GetCertificate)
	api.GET("/certificates/:id/download", s.Authorize(authorization.ObjectCertificate, authorization.ActionCertificateDownload), s.DownloadCertificate)

	// -------- Deliveries --------
	api.GET("/deliveries", s.Authorize(authorization.ObjectDelivery, authorization.ActionDeliveryView), s.ListDeliveries)
	api.GET("/deliveries/:id", s.Authorize(authorization.ObjectDelivery, authorization.ActionDeliveryView), s.GetDelivery)
	api.PATCH("/deliveries/:id", s.Authorize(authorization.ObjectDelivery, authorization.ActionDeliveryUpdate), s.UpdateDelivery)
	api.DELETE("/deliveries/:id", s.Authorize(authorization.ObjectDelivery, authorization.ActionDeliveryDelete), s.DeleteDelivery)

	// -------- Notifications --------
	api.GET("/notifications", s.Authorize(authorization.ObjectNotification, authorization.ActionNotificationView), s.ListNotifications)
	api.POST("/notifications/:id/read", s.Authorize(authorization.ObjectNotification, authorization.ActionNotificationRead), s.MarkNotificationRead)
}
