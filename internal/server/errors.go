package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/academy/internal/auth"
	"github.com/smallbiznis/academy/internal/authorization"
	catalogdomain "github.com/smallbiznis/academy/internal/catalog/domain"
	certificatedomain "github.com/smallbiznis/academy/internal/certificate/domain"
	deliverydomain "github.com/smallbiznis/academy/internal/delivery/domain"
	enrollmentdomain "github.com/smallbiznis/academy/internal/enrollment/domain"
	notificationdomain "github.com/smallbiznis/academy/internal/notification/domain"
	paymentdomain "github.com/smallbiznis/academy/internal/payment/domain"
	"github.com/smallbiznis/academy/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// bindError turns binding failures into field-level validation errors.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidRequestError()
	}
	out := &ValidationErrors{}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   toSnake(fe.Field()),
			Code:    fe.Tag(),
			Message: "invalid value",
		})
	}
	return out
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: validationErrorMessage(err),
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(err),
				},
			},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, paymentdomain.ErrGatewayNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type and code the
// client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if err != nil {
		code = rootCode(err)
	}
	return payload.Type, code
}

func rootCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrs = []error{
	ErrInvalidRequest,
	pagination.ErrInvalidPageToken,
	enrollmentdomain.ErrInvalidMethod,
	enrollmentdomain.ErrInvalidCourse,
	enrollmentdomain.ErrInvalidStudent,
	enrollmentdomain.ErrDeliveryAddressIncomplete,
	enrollmentdomain.ErrNoMaterials,
	enrollmentdomain.ErrNotApproved,
	enrollmentdomain.ErrVideoNotInCourse,
	paymentdomain.ErrInvalidOrderID,
	paymentdomain.ErrInvalidStatus,
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrAmountMismatch,
	paymentdomain.ErrInvalidNotification,
	deliverydomain.ErrInvalidStatus,
	deliverydomain.ErrInvalidTransition,
	deliverydomain.ErrIncompleteAddress,
	deliverydomain.ErrEmptyUpdate,
	certificatedomain.ErrNotApproved,
	notificationdomain.ErrInvalidRecipient,
	notificationdomain.ErrInvalidTitle,
}

func isValidationError(err error) bool {
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidSubject),
		errors.Is(err, paymentdomain.ErrGatewayAuthenticity):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidRole),
		errors.Is(err, enrollmentdomain.ErrForbidden),
		errors.Is(err, paymentdomain.ErrForbidden),
		errors.Is(err, deliverydomain.ErrForbidden),
		errors.Is(err, certificatedomain.ErrForbidden),
		errors.Is(err, certificatedomain.ErrNotEnrolled):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, enrollmentdomain.ErrAlreadyApproved),
		errors.Is(err, enrollmentdomain.ErrPendingExists),
		errors.Is(err, enrollmentdomain.ErrNotPending),
		errors.Is(err, paymentdomain.ErrNotPending),
		errors.Is(err, paymentdomain.ErrConcurrentUpdate),
		errors.Is(err, deliverydomain.ErrConcurrentUpdate):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, catalogdomain.ErrCourseNotFound),
		errors.Is(err, catalogdomain.ErrProfileNotFound),
		errors.Is(err, enrollmentdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, deliverydomain.ErrNotFound),
		errors.Is(err, certificatedomain.ErrNotFound),
		errors.Is(err, certificatedomain.ErrArtifactMissing),
		errors.Is(err, notificationdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "invalid_request"
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case enrollmentdomain.ErrDeliveryAddressIncomplete.Error():
		return "address"
	case paymentdomain.ErrAmountMismatch.Error():
		return "amount"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(err error) string {
	switch {
	case errors.Is(err, enrollmentdomain.ErrDeliveryAddressIncomplete),
		errors.Is(err, deliverydomain.ErrIncompleteAddress):
		return "update your delivery address before ordering materials"
	case errors.Is(err, enrollmentdomain.ErrNoMaterials):
		return "this course has no printed materials"
	case errors.Is(err, enrollmentdomain.ErrNotApproved),
		errors.Is(err, certificatedomain.ErrNotApproved):
		return "enrollment is not approved"
	case errors.Is(err, deliverydomain.ErrInvalidTransition):
		return "delivery status cannot move backwards"
	default:
		return "invalid value"
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, enrollmentdomain.ErrAlreadyApproved):
		return "already enrolled"
	case errors.Is(err, enrollmentdomain.ErrPendingExists):
		return "an enrollment request is already pending"
	default:
		return "conflict"
	}
}

func notFoundMessage(err error) string {
	if errors.Is(err, certificatedomain.ErrArtifactMissing) {
		return "certificate file is not available yet"
	}
	return "not found"
}
