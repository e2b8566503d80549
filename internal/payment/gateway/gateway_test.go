package gateway

import (
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/smallbiznis/academy/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedForm(s *Signer, orderID string, amount int64, code int) url.Values {
	return url.Values{
		"merchant_id":      {s.MerchantID()},
		"order_id":         {orderID},
		"payhere_amount":   {FormatAmount(amount)},
		"payhere_currency": {"LKR"},
		"status_code":      {strconv.Itoa(code)},
		"md5sig":           {s.NotificationDigest(s.MerchantID(), orderID, amount, "LKR")},
		"payment_id":       {"320027150501"},
		"method":           {"VISA"},
		"status_message":   {"Successfully completed the payment."},
	}
}

func TestFormatAndParseAmount(t *testing.T) {
	assert.Equal(t, "2500.00", FormatAmount(250000))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "1000.50", FormatAmount(100050))

	for in, want := range map[string]int64{"2500.00": 250000, "2500": 250000, "2500.5": 250050, "0.05": 5} {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "12.345", "abc", "-1.00", "1.", "1,000.00"} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, bad)
	}
}

func TestCheckoutHashIsUppercaseMD5(t *testing.T) {
	s := NewSigner("1211149", "secret")
	hash := s.CheckoutHash("ORDER-1", 100000, "LKR")
	assert.Len(t, hash, 32)
	assert.Equal(t, hash, upperMD5("1211149"+"ORDER-1"+"1000.00"+"LKR"+upperMD5("secret")))
}

func TestNotificationDigestInput(t *testing.T) {
	s := NewSigner("1211149", "secret")
	assert.Equal(t, "1211149ORDER-12500.00LKR"+upperMD5("secret"), digestInput("1211149", "ORDER-1", 250000, "LKR", s.secretHash))

	form := signedForm(s, "ORDER-1", 250000, CodeSuccess)
	form.Set("md5sig", upperMD5("1211149"+"ORDER-1"+"2500.00"+"LKR"+upperMD5("secret")))
	n, err := ParseNotification(form)
	require.NoError(t, err)
	assert.NoError(t, s.Verify(n))
	assert.Equal(t, s.CheckoutHash("ORDER-1", 250000, "LKR"), n.Signature)
}

func TestVerifyIgnoresStatusCode(t *testing.T) {
	s := NewSigner("1211149", "secret")
	for _, code := range []int{CodeSuccess, CodePending, CodeCancelled, CodeFailed, CodeChargedback} {
		n, err := ParseNotification(signedForm(s, "ORDER-1", 250000, code))
		require.NoError(t, err)
		assert.NoError(t, s.Verify(n), "status %d", code)
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	s := NewSigner("1211149", "secret")
	n, err := ParseNotification(signedForm(s, "ORDER-1", 250000, CodeSuccess))
	require.NoError(t, err)
	assert.NoError(t, s.Verify(n))
}

func TestVerifyRejectsSingleFieldMutation(t *testing.T) {
	s := NewSigner("1211149", "secret")
	base, err := ParseNotification(signedForm(s, "ORDER-1", 250000, CodeSuccess))
	require.NoError(t, err)

	mutations := map[string]func(n *Notification){
		"merchant": func(n *Notification) { n.MerchantID = "1211150" },
		"order":    func(n *Notification) { n.OrderID = "ORDER-2" },
		"amount":   func(n *Notification) { n.Amount++ },
		"currency": func(n *Notification) { n.Currency = "USD" },
		"digest":   func(n *Notification) { n.Signature = "0" + n.Signature[1:] },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			n := base
			mutate(&n)
			assert.ErrorIs(t, s.Verify(n), domain.ErrGatewayAuthenticity)
		})
	}

	other := NewSigner("1211149", "other-secret")
	assert.ErrorIs(t, other.Verify(base), domain.ErrGatewayAuthenticity)
}

func TestVerifyAcceptsLowercaseDigest(t *testing.T) {
	s := NewSigner("1211149", "secret")
	form := signedForm(s, "ORDER-1", 250000, CodeSuccess)
	form.Set("md5sig", strings.ToLower(form.Get("md5sig")))
	n, err := ParseNotification(form)
	require.NoError(t, err)
	assert.NoError(t, s.Verify(n))
}

func TestParseNotificationRejectsMalformedForm(t *testing.T) {
	s := NewSigner("1211149", "secret")

	form := signedForm(s, "ORDER-1", 250000, CodeSuccess)
	form.Set("status_code", "7")
	_, err := ParseNotification(form)
	assert.ErrorIs(t, err, domain.ErrInvalidNotification)

	form = signedForm(s, "ORDER-1", 250000, CodeSuccess)
	form.Del("order_id")
	_, err = ParseNotification(form)
	assert.ErrorIs(t, err, domain.ErrInvalidNotification)

	form = signedForm(s, "ORDER-1", 250000, CodeSuccess)
	form.Set("md5sig", "nothex")
	_, err = ParseNotification(form)
	assert.ErrorIs(t, err, domain.ErrInvalidNotification)
}

func TestPaymentStatus(t *testing.T) {
	cases := map[int]domain.Status{
		CodeSuccess:     domain.StatusCompleted,
		CodePending:     domain.StatusPending,
		CodeCancelled:   domain.StatusCancelled,
		CodeFailed:      domain.StatusFailed,
		CodeChargedback: domain.StatusChargedback,
	}
	for code, want := range cases {
		got, err := PaymentStatus(code)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := PaymentStatus(9)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
