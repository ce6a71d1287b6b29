package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, machine readable error type returned to clients
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindInvalidIdentifier   Kind = "invalid_identifier"
	KindMissingCredential   Kind = "missing_credential"
	KindInvalidToken        Kind = "invalid_token"
	KindExpiredToken        Kind = "expired_token"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindInsufficientRole    Kind = "insufficient_role"
	KindTenantMismatch      Kind = "tenant_mismatch"
	KindSelfActionForbidden Kind = "self_action_forbidden"
	KindAlreadyUpgraded     Kind = "already_upgraded"
	KindAlreadyExists       Kind = "already_exists"
	KindNotFound            Kind = "not_found"
	KindQuotaExceeded       Kind = "quota_exceeded"
	KindRateLimited         Kind = "rate_limited"
	KindPayloadTooLarge     Kind = "payload_too_large"
	KindMethodNotAllowed    Kind = "method_not_allowed"
	KindInternal            Kind = "internal_error"
)

var statuses = map[Kind]int{
	KindValidation:          http.StatusBadRequest,
	KindInvalidIdentifier:   http.StatusBadRequest,
	KindMissingCredential:   http.StatusUnauthorized,
	KindInvalidToken:        http.StatusUnauthorized,
	KindExpiredToken:        http.StatusUnauthorized,
	KindInvalidCredentials:  http.StatusUnauthorized,
	KindInsufficientRole:    http.StatusForbidden,
	KindTenantMismatch:      http.StatusForbidden,
	KindSelfActionForbidden: http.StatusBadRequest,
	KindAlreadyUpgraded:     http.StatusBadRequest,
	KindAlreadyExists:       http.StatusBadRequest,
	KindNotFound:            http.StatusNotFound,
	KindQuotaExceeded:       http.StatusForbidden,
	KindRateLimited:         http.StatusTooManyRequests,
	KindPayloadTooLarge:     http.StatusRequestEntityTooLarge,
	KindMethodNotAllowed:    http.StatusMethodNotAllowed,
	KindInternal:            http.StatusInternalServerError,
}

// Status returns the HTTP status for the kind
func (k Kind) Status() int {
	if status, ok := statuses[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FieldError names one offending input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified failure. Handlers return it and the HTTP error
// handler turns it into a response body.
type Error struct {
	Kind         Kind
	Message      string
	Fields       []FieldError
	LimitReached bool
	Err          error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status of the error's kind
func (e *Error) Status() int {
	return e.Kind.Status()
}

// New builds an error of kind with message
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies cause under kind
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Validation reports one or more invalid fields
func Validation(fields ...FieldError) *Error {
	message := "validation failed"
	if len(fields) > 0 {
		message = fields[0].Message
	}
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// InvalidField is Validation for a single field
func InvalidField(field, message string) *Error {
	return Validation(FieldError{Field: field, Message: message})
}

// InvalidIdentifier reports a malformed resource id
func InvalidIdentifier(resource string) *Error {
	return New(KindInvalidIdentifier, fmt.Sprintf("please provide a valid %s id", resource))
}

// NotFound is deliberately silent about whether the resource exists in another tenant
func NotFound(resource string) *Error {
	return New(KindNotFound, fmt.Sprintf("the requested %s does not exist or you do not have access to it", resource))
}

// QuotaExceeded reports a plan limit, flagged so clients can prompt for an upgrade
func QuotaExceeded(message string) *Error {
	return &Error{Kind: KindQuotaExceeded, Message: message, LimitReached: true}
}

// Internal wraps an unexpected failure
func Internal(cause error) *Error {
	return Wrap(KindInternal, "internal server error", cause)
}

// As extracts an *Error from err's chain
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries kind
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
