package webhook

import (
	"context"
	"errors"
	"net/url"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/clock"
	enrollmentdomain "github.com/smallbiznis/academy/internal/enrollment/domain"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	"github.com/smallbiznis/academy/internal/payment/domain"
	"github.com/smallbiznis/academy/internal/payment/gateway"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Payments domain.Service
	Merchant *gateway.Merchant
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	payments domain.Service
	merchant *gateway.Merchant
	metrics  *obsmetrics.Metrics
}

// Ack is the short body returned to the gateway.
type Ack struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id,omitempty"`
	Result  string `json:"result,omitempty"`
}

func New(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.webhook"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		payments: p.Payments,
		merchant: p.Merchant,
		metrics:  p.Metrics,
	}
}

// Ingest authenticates a gateway callback and applies it. Callbacks are
// delivered at least once and possibly concurrently.
func (s *Service) Ingest(ctx context.Context, form url.Values) (Ack, error) {
	if s.merchant == nil || !s.merchant.Configured() {
		return Ack{}, domain.ErrGatewayNotConfigured
	}

	n, err := gateway.ParseNotification(form)
	if err != nil {
		s.metrics.RecordWebhookEvent(ctx, "invalid", "")
		s.log.Warn("malformed gateway callback", zap.String("order_id", form.Get("order_id")), zap.Error(err))
		return Ack{}, err
	}
	log := s.log.With(zap.String("order_id", n.OrderID), zap.Int("status_code", n.StatusCode))

	if err := s.merchant.Verify(n); err != nil {
		s.metrics.RecordWebhookEvent(ctx, "rejected", "")
		log.Warn("gateway callback failed authentication", zap.String("merchant_id", n.MerchantID))
		return Ack{}, err
	}

	status, err := gateway.PaymentStatus(n.StatusCode)
	if err != nil {
		return Ack{}, err
	}

	s.recordEvent(ctx, log, n, form)

	result, err := s.payments.Settle(ctx, domain.SettleRequest{
		OrderID:          n.OrderID,
		Status:           status,
		Amount:           &n.Amount,
		Currency:         n.Currency,
		Method:           n.Method,
		GatewayPaymentID: n.GatewayPaymentID,
		StatusMessage:    n.StatusMessage,
		Source:           enrollmentdomain.SourceWebhook,
	})
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, domain.ErrNotFound):
			outcome = "unknown_order"
		case errors.Is(err, domain.ErrAmountMismatch):
			outcome = "amount_mismatch"
		}
		s.metrics.RecordWebhookEvent(ctx, outcome, string(status))
		log.Warn("gateway callback not applied", zap.String("outcome", outcome), zap.Error(err))
		return Ack{}, err
	}

	outcome := "applied"
	switch {
	case result.Ignored:
		outcome = "ignored"
	case result.Replay:
		outcome = "replay"
	}
	s.metrics.RecordWebhookEvent(ctx, outcome, string(status))
	return Ack{Status: "ok", OrderID: n.OrderID, Result: outcome}, nil
}

// recordEvent appends the callback to the audit trail. Failures are logged.
func (s *Service) recordEvent(ctx context.Context, log *zap.Logger, n gateway.Notification, form url.Values) {
	event := domain.EventRecord{
		ID:               s.genID.Generate(),
		OrderID:          n.OrderID,
		StatusCode:       n.StatusCode,
		GatewayPaymentID: n.GatewayPaymentID,
		Payload:          datatypes.JSON(gateway.AuditPayload(form)),
		ReceivedAt:       s.clock.Now(),
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, &event)
	if err != nil {
		log.Error("store gateway callback", zap.Error(err))
		return
	}
	if !inserted {
		log.Debug("duplicate gateway callback")
	}
}
