package gateway

import (
	"strings"

	catalogdomain "github.com/smallbiznis/academy/internal/catalog/domain"
	"github.com/smallbiznis/academy/internal/config"
	"github.com/smallbiznis/academy/internal/payment/domain"
)

// Merchant builds checkout forms and verifies callbacks for one merchant
// account.
type Merchant struct {
	*Signer
	cfg config.GatewayConfig
}

func NewMerchant(cfg config.Config) *Merchant {
	return &Merchant{
		Signer: NewSigner(cfg.Gateway.MerchantID, cfg.Gateway.MerchantSecret),
		cfg:    cfg.Gateway,
	}
}

func (m *Merchant) Configured() bool {
	return m.cfg.MerchantID != "" && m.cfg.MerchantSecret != ""
}

// Currency is the merchant's default settlement currency.
func (m *Merchant) Currency() string {
	if m.cfg.Currency == "" {
		return "LKR"
	}
	return m.cfg.Currency
}

// Checkout returns the signed form for a payment.
func (m *Merchant) Checkout(p domain.Payment, course catalogdomain.Course, student catalogdomain.Profile) domain.Checkout {
	first, last := splitName(student.Name)
	address := strings.TrimSpace(strings.Join([]string{student.AddressLine1, student.AddressLine2}, " "))
	return domain.Checkout{
		Action:     m.cfg.CheckoutURL,
		MerchantID: m.MerchantID(),
		ReturnURL:  m.cfg.ReturnURL,
		CancelURL:  m.cfg.CancelURL,
		NotifyURL:  m.cfg.NotifyURL,
		OrderID:    p.OrderID,
		Items:      course.Title,
		Currency:   p.Currency,
		Amount:     FormatAmount(p.Amount),
		Hash:       m.CheckoutHash(p.OrderID, p.Amount, p.Currency),
		FirstName:  first,
		LastName:   last,
		Email:      student.Email,
		Phone:      student.Phone,
		Address:    address,
		City:       student.City,
		Country:    "Sri Lanka",
	}
}

func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
