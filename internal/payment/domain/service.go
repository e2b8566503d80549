package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	enrollmentdomain "github.com/smallbiznis/academy/internal/enrollment/domain"
)

type Actor struct {
	ID   snowflake.ID
	Role string
}

type PurchaseRequest struct {
	StudentID        snowflake.ID
	CourseID         snowflake.ID
	RequiresDelivery bool
}

// Checkout is the form a client posts to the gateway to start payment.
type Checkout struct {
	Action     string `json:"action"`
	MerchantID string `json:"merchant_id"`
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	NotifyURL  string `json:"notify_url"`
	OrderID    string `json:"order_id"`
	Items      string `json:"items"`
	Currency   string `json:"currency"`
	Amount     string `json:"amount"`
	Hash       string `json:"hash"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

type PurchaseResult struct {
	Payment    Payment                     `json:"payment"`
	Enrollment enrollmentdomain.Enrollment `json:"enrollment"`
	Checkout   Checkout                    `json:"checkout"`
}

// SettleRequest applies a gateway outcome to the payment with OrderID.
// Amount and Currency, when set, must match the stored payment.
type SettleRequest struct {
	OrderID          string
	Status           Status
	Amount           *int64
	Currency         string
	Method           string
	GatewayPaymentID string
	StatusMessage    string
	Source           enrollmentdomain.ApprovalSource
}

type SettleResult struct {
	Payment    Payment                      `json:"payment"`
	Enrollment *enrollmentdomain.Enrollment `json:"enrollment,omitempty"`
	Linkage    LinkAction                   `json:"-"`
	// Replay is true when the payment was already at the requested status.
	Replay bool `json:"replay"`
	// Ignored is true when the outcome could not move the stored status.
	Ignored bool `json:"ignored"`
}

type Service interface {
	Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error)
	GetByOrderID(ctx context.Context, orderID string, actor Actor) (Payment, error)
	ListForStudent(ctx context.Context, studentID snowflake.ID) ([]Payment, error)
	Settle(ctx context.Context, req SettleRequest) (SettleResult, error)
	Verify(ctx context.Context, orderID string, actor Actor) (SettleResult, error)
}

var (
	ErrNotFound             = errors.New("payment_not_found")
	ErrInvalidOrderID       = errors.New("invalid_order_id")
	ErrInvalidStatus        = errors.New("invalid_payment_status")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrAmountMismatch       = errors.New("payment_amount_mismatch")
	ErrNotPending           = errors.New("payment_not_pending")
	ErrForbidden            = errors.New("forbidden")
	ErrConcurrentUpdate     = errors.New("payment_concurrent_update")
	ErrGatewayAuthenticity  = errors.New("gateway_authenticity_failed")
	ErrGatewayNotConfigured = errors.New("gateway_not_configured")
	ErrInvalidNotification  = errors.New("invalid_gateway_notification")
)
