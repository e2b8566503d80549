package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Actor struct {
	ID   snowflake.ID
	Role string
}

type CreateRequest struct {
	EnrollmentID snowflake.ID
	StudentID    snowflake.ID
	CourseID     snowflake.ID
	Address      AddressSnapshot
}

type UpdateRequest struct {
	DeliveryID     snowflake.ID
	Actor          Actor
	Status         *Status
	TrackingNumber *string
	Courier        *string
	Notes          *string
}

type ListRequest struct {
	Actor    Actor
	CourseID *snowflake.ID
	Status   *Status
}

type Service interface {
	// Create is idempotent on enrollment id: a second call returns the
	// existing delivery with created=false.
	Create(ctx context.Context, req CreateRequest) (Delivery, bool, error)
	Get(ctx context.Context, id snowflake.ID, actor Actor) (Delivery, error)
	Update(ctx context.Context, req UpdateRequest) (Delivery, error)
	Delete(ctx context.Context, id snowflake.ID, actor Actor) error
	List(ctx context.Context, req ListRequest) ([]Delivery, error)
}

var (
	ErrNotFound          = errors.New("delivery_not_found")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrIncompleteAddress = errors.New("delivery_address_incomplete")
	ErrEmptyUpdate       = errors.New("empty_update")
	ErrForbidden         = errors.New("forbidden")
	ErrConcurrentUpdate  = errors.New("delivery_concurrent_update")
)
