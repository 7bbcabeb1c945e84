package service

import (
	"errors"

	"github.com/simplemailer/simplemailer/internal/email"
)

// Errors reported in per-item outcomes and by the unsubscribe flow
var (
	ErrValidation               = errors.New("validation error")
	ErrConflict                 = errors.New("conflict")
	ErrNotFound                 = errors.New("not found")
	ErrInvalidIdentifier        = errors.New("invalid identifier")
	ErrNoRecipient              = email.ErrNoRecipients
	ErrTransport                = errors.New("transport error")
	ErrMissingToken             = errors.New("missing uuid")
	ErrNotFoundOrAlreadyRemoved = errors.New("not found or already removed")
)

// Machine-readable error codes
const (
	CodeValidation        = "validation_error"
	CodeConflict          = "conflict"
	CodeNotFound          = "not_found"
	CodeInvalidIdentifier = "invalid_identifier"
	CodeNoRecipient       = "no_recipient"
	CodeTransport         = "transport_error"
	CodeMissingToken      = "missing_token"
	CodeInternal          = "internal_error"
)

// ErrorCode maps an error to its stable code
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotFoundOrAlreadyRemoved):
		return CodeNotFound
	case errors.Is(err, ErrInvalidIdentifier):
		return CodeInvalidIdentifier
	case errors.Is(err, ErrNoRecipient):
		return CodeNoRecipient
	case errors.Is(err, ErrTransport):
		return CodeTransport
	case errors.Is(err, ErrMissingToken):
		return CodeMissingToken
	default:
		return CodeInternal
	}
}
