package gateway

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/smallbiznis/academy/internal/payment/domain"
)

// Signer computes the merchant hashes the gateway expects. The secret is
// only ever used in its hashed form.
type Signer struct {
	merchantID string
	secretHash string
}

func NewSigner(merchantID, secret string) *Signer {
	return &Signer{
		merchantID: strings.TrimSpace(merchantID),
		secretHash: upperMD5(strings.TrimSpace(secret)),
	}
}

func (s *Signer) MerchantID() string { return s.merchantID }

// CheckoutHash signs a payment intent.
func (s *Signer) CheckoutHash(orderID string, amount int64, currency string) string {
	return upperMD5(digestInput(s.merchantID, orderID, amount, currency, s.secretHash))
}

// NotificationDigest is the md5sig the gateway sends with a callback. It
// covers the same fields as the checkout hash, keyed by the callback's
// merchant id.
func (s *Signer) NotificationDigest(merchantID, orderID string, amount int64, currency string) string {
	return upperMD5(digestInput(merchantID, orderID, amount, currency, s.secretHash))
}

func digestInput(merchantID, orderID string, amount int64, currency, secretHash string) string {
	return merchantID + orderID + FormatAmount(amount) + currency + secretHash
}

// Verify checks the callback came from the gateway for this merchant.
func (s *Signer) Verify(n Notification) error {
	if subtle.ConstantTimeCompare([]byte(n.MerchantID), []byte(s.merchantID)) != 1 {
		return domain.ErrGatewayAuthenticity
	}
	expected := s.NotificationDigest(n.MerchantID, n.OrderID, n.Amount, n.Currency)
	got := strings.ToUpper(strings.TrimSpace(n.Signature))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return domain.ErrGatewayAuthenticity
	}
	return nil
}

// FormatAmount renders minor units with two decimals and no grouping.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// ParseAmount reads a decimal amount into minor units. At most two decimals
// are accepted.
func ParseAmount(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac, hasFrac := strings.Cut(v, ".")
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("invalid amount %q", v)
		}
		if len(frac) == 1 {
			frac += "0"
		}
	} else {
		frac = "00"
	}
	if whole == "" || strings.ContainsAny(whole, "+-") || strings.ContainsAny(frac, "+-") {
		return 0, fmt.Errorf("invalid amount %q", v)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", v)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", v)
	}
	return units*100 + cents, nil
}

func upperMD5(v string) string {
	sum := md5.Sum([]byte(v))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
