package webhook_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	catalogrepo "github.com/smallbiznis/academy/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/academy/internal/catalog/service"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/config"
	enrollmentrepo "github.com/smallbiznis/academy/internal/enrollment/repository"
	enrollmentservice "github.com/smallbiznis/academy/internal/enrollment/service"
	"github.com/smallbiznis/academy/internal/payment/domain"
	"github.com/smallbiznis/academy/internal/payment/gateway"
	"github.com/smallbiznis/academy/internal/payment/repository"
	paymentservice "github.com/smallbiznis/academy/internal/payment/service"
	"github.com/smallbiznis/academy/internal/payment/webhook"
	"github.com/smallbiznis/academy/internal/testutil/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	merchantID = "1211149"
	secret     = "secret"
)

func setup(t *testing.T) (*gorm.DB, *webhook.Service) {
	t.Helper()
	conn := testdb.Open(t)
	node := testdb.Node(t)
	clk := clock.NewFakeClock(time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC))

	studentID, instructorID, courseID := node.Generate(), node.Generate(), node.Generate()
	testdb.SeedUser(t, conn, testdb.User{ID: studentID, Name: "Ravi Kumar", Email: "ravi@example.com"})
	testdb.SeedUser(t, conn, testdb.User{ID: instructorID, Name: "Instructor", Email: "i@example.com", Role: "instructor"})
	testdb.SeedCourse(t, conn, node, testdb.Course{ID: courseID, InstructorID: instructorID, Title: "ICT", Price: 250000})
	now := clk.Now()
	require.NoError(t, conn.Exec(
		`INSERT INTO payments (id, order_id, student_id, course_id, amount, currency, status, created_at, updated_at)
		 VALUES (?, 'ORDER-W', ?, ?, 250000, 'LKR', 'PENDING', ?, ?)`,
		node.Generate(), studentID, courseID, now, now,
	).Error)

	cfg := config.Config{Gateway: config.GatewayConfig{MerchantID: merchantID, MerchantSecret: secret, Currency: "LKR"}}
	merchant := gateway.NewMerchant(cfg)
	catalog := catalogservice.New(catalogservice.Params{DB: conn, Repo: catalogrepo.Provide()})
	payments := paymentservice.New(paymentservice.Params{
		DB:             conn,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          clk,
		Repo:           repository.Provide(),
		EnrollmentRepo: enrollmentrepo.Provide(),
		Enrollments: enrollmentservice.New(enrollmentservice.Params{
			DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: enrollmentrepo.Provide(), Catalog: catalog,
		}),
		Catalog:  catalog,
		Merchant: merchant,
	})
	svc := webhook.New(webhook.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		Payments: payments,
		Merchant: merchant,
	})
	return conn, svc
}

func callback(code int, amount string) url.Values {
	minor, _ := gateway.ParseAmount(amount)
	signer := gateway.NewSigner(merchantID, secret)
	return url.Values{
		"merchant_id":      {merchantID},
		"order_id":         {"ORDER-W"},
		"payhere_amount":   {amount},
		"payhere_currency": {"LKR"},
		"status_code":      {strconv.Itoa(code)},
		"md5sig":           {signer.NotificationDigest(merchantID, "ORDER-W", minor, "LKR")},
		"payment_id":       {"320027150501"},
		"method":           {"VISA"},
		"status_message":   {"Successfully completed the payment."},
	}
}

func TestIngestSuccessIsIdempotent(t *testing.T) {
	conn, svc := setup(t)
	ctx := context.Background()

	ack, err := svc.Ingest(ctx, callback(gateway.CodeSuccess, "2500.00"))
	require.NoError(t, err)
	assert.Equal(t, "ok", ack.Status)
	assert.Equal(t, "applied", ack.Result)

	ack, err = svc.Ingest(ctx, callback(gateway.CodeSuccess, "2500.00"))
	require.NoError(t, err)
	assert.Equal(t, "replay", ack.Result)

	assert.Equal(t, int64(1), testdb.Count(t, conn, `SELECT COUNT(*) FROM enrollments WHERE status = 'APPROVED'`))
	assert.Equal(t, int64(1), testdb.Count(t, conn, `SELECT COUNT(*) FROM payments WHERE status = 'COMPLETED' AND method = 'VISA'`))
	assert.Equal(t, int64(1), testdb.Count(t, conn, `SELECT COUNT(*) FROM payment_events`))
}

func TestIngestRejectsForgedCallbackWithoutMutation(t *testing.T) {
	conn, svc := setup(t)

	form := callback(gateway.CodeSuccess, "2500.00")
	form.Set("payhere_amount", "25.00")
	_, err := svc.Ingest(context.Background(), form)
	assert.ErrorIs(t, err, domain.ErrGatewayAuthenticity)

	form = callback(gateway.CodeSuccess, "2500.00")
	form.Set("merchant_id", "9999999")
	_, err = svc.Ingest(context.Background(), form)
	assert.ErrorIs(t, err, domain.ErrGatewayAuthenticity)

	assert.Equal(t, int64(0), testdb.Count(t, conn, `SELECT COUNT(*) FROM payment_events`))
	assert.Equal(t, int64(0), testdb.Count(t, conn, `SELECT COUNT(*) FROM enrollments`))
	assert.Equal(t, int64(1), testdb.Count(t, conn, `SELECT COUNT(*) FROM payments WHERE status = 'PENDING'`))
}

func upperMD5(v string) string {
	sum := md5.Sum([]byte(v))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func TestIngestAcceptsMerchantSignedCallback(t *testing.T) {
	conn, svc := setup(t)

	form := callback(gateway.CodeSuccess, "2500.00")
	form.Set("md5sig", upperMD5(merchantID+"ORDER-W"+"2500.00"+"LKR"+upperMD5(secret)))
	ack, err := svc.Ingest(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "applied", ack.Result)
	assert.Equal(t, int64(1), testdb.Count(t, conn, `SELECT COUNT(*) FROM payments WHERE status = 'COMPLETED'`))
}

func TestIngestRejectsMalformedForm(t *testing.T) {
	_, svc := setup(t)
	form := callback(gateway.CodeSuccess, "2500.00")
	form.Set("payhere_amount", "lots")

	_, err := svc.Ingest(context.Background(), form)
	assert.ErrorIs(t, err, domain.ErrInvalidNotification)
}

func TestIngestAuditsEachDistinctStatus(t *testing.T) {
	conn, svc := setup(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, callback(gateway.CodePending, "2500.00"))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, callback(gateway.CodeFailed, "2500.00"))
	require.NoError(t, err)

	assert.Equal(t, int64(2), testdb.Count(t, conn, `SELECT COUNT(*) FROM payment_events WHERE order_id = 'ORDER-W'`))
	assert.Equal(t, int64(1), testdb.Count(t, conn, `SELECT COUNT(*) FROM payments WHERE status = 'FAILED'`))
	assert.Equal(t, int64(0), testdb.Count(t, conn, `SELECT COUNT(*) FROM enrollments`))
}
