package domain

import (
	"fmt"
	"net/http"
)

// ErrorKind identifies the failure class of a gateway error. The API layer
// maps kinds to HTTP statuses; nothing else in the system inspects error
// types or messages to decide behavior.
type ErrorKind int

const (
	// KindInternal is the fallback for unclassified failures.
	KindInternal ErrorKind = iota
	// KindValidation covers bad requests: unresolvable model aliases and
	// tier access denials.
	KindValidation
	// KindRateLimited means the caller exhausted its per-minute request window.
	KindRateLimited
	// KindDailyQuota means the caller exhausted its daily token allowance.
	KindDailyQuota
	// KindCredentialMissing means the resolved provider has no API key
	// configured at call time.
	KindCredentialMissing
	// KindUpstream covers provider transport and parse failures.
	KindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindDailyQuota:
		return "daily_quota"
	case KindCredentialMissing:
		return "credential_missing"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is the gateway's error value. Suggestion optionally carries an
// alternative model alias for client display on resolution failures.
type Error struct {
	Kind       ErrorKind
	Message    string
	Suggestion string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func CredentialMissing(provider string) *Error {
	return &Error{
		Kind:    KindCredentialMissing,
		Message: fmt.Sprintf("%s API key is not configured", provider),
	}
}

func Upstream(provider string, err error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Message: fmt.Sprintf("provider %s request failed", provider),
		Err:     err,
	}
}

// KindOf extracts the kind from any error, falling back to KindInternal.
func KindOf(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindInternal
}

// SuggestionOf extracts the alias suggestion attached to an error, if any.
func SuggestionOf(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Suggestion
	}
	return ""
}

// HTTPStatus maps an error kind to the status code reported to the caller.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindCredentialMissing:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindDailyQuota:
		return http.StatusForbidden
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
