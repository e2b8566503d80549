package gateway

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/academy/internal/payment/domain"
)

// Gateway status codes carried in status_code.
const (
	CodeSuccess     = 2
	CodePending     = 0
	CodeCancelled   = -1
	CodeFailed      = -2
	CodeChargedback = -3
)

var validate = validator.New()

// Notification is a parsed server-to-server callback.
type Notification struct {
	MerchantID       string `validate:"required"`
	OrderID          string `validate:"required,max=64"`
	Amount           int64  `validate:"gte=0"`
	Currency         string `validate:"required,len=3,alpha"`
	StatusCode       int    `validate:"oneof=2 0 -1 -2 -3"`
	Signature        string `validate:"required,len=32,hexadecimal"`
	GatewayPaymentID string `validate:"max=64"`
	Method           string `validate:"max=32"`
	StatusMessage    string `validate:"max=255"`
}

// ParseNotification reads and validates the callback form.
func ParseNotification(form url.Values) (Notification, error) {
	amount, err := ParseAmount(form.Get("payhere_amount"))
	if err != nil {
		return Notification{}, fmt.Errorf("%w: %v", domain.ErrInvalidNotification, err)
	}
	code, err := strconv.Atoi(strings.TrimSpace(form.Get("status_code")))
	if err != nil {
		return Notification{}, fmt.Errorf("%w: status_code", domain.ErrInvalidNotification)
	}

	n := Notification{
		MerchantID:       strings.TrimSpace(form.Get("merchant_id")),
		OrderID:          strings.TrimSpace(form.Get("order_id")),
		Amount:           amount,
		Currency:         strings.ToUpper(strings.TrimSpace(form.Get("payhere_currency"))),
		StatusCode:       code,
		Signature:        strings.TrimSpace(form.Get("md5sig")),
		GatewayPaymentID: strings.TrimSpace(form.Get("payment_id")),
		Method:           strings.TrimSpace(form.Get("method")),
		StatusMessage:    strings.TrimSpace(form.Get("status_message")),
	}
	if err := validate.Struct(n); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", domain.ErrInvalidNotification, err)
	}
	return n, nil
}

// PaymentStatus maps the gateway status code to a payment status.
func PaymentStatus(code int) (domain.Status, error) {
	switch code {
	case CodeSuccess:
		return domain.StatusCompleted, nil
	case CodePending:
		return domain.StatusPending, nil
	case CodeCancelled:
		return domain.StatusCancelled, nil
	case CodeFailed:
		return domain.StatusFailed, nil
	case CodeChargedback:
		return domain.StatusChargedback, nil
	}
	return "", domain.ErrInvalidStatus
}

// AuditPayload flattens the callback form to JSON for the audit trail.
func AuditPayload(form url.Values) []byte {
	flat := make(map[string]string, len(form))
	for k := range form {
		flat[k] = form.Get(k)
	}
	b, err := json.Marshal(flat)
	if err != nil {
		return []byte("{}")
	}
	return b
}
