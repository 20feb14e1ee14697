package provider

import (
	"errors"
	"fmt"
)

// Reason classifies a provider error for retry decisions and for
// localized user-facing messaging. Losing the specific class between the
// backend and the caller is considered a defect.
type Reason string

// Error reasons, from most to least specific.
const (
	// ReasonValidation covers malformed or capability-violating requests.
	ReasonValidation Reason = "validation"
	// ReasonConfiguration covers missing or invalid credentials.
	ReasonConfiguration Reason = "configuration"
	// ReasonRateLimited covers backend rate limiting (HTTP 429).
	ReasonRateLimited Reason = "rate_limited"
	// ReasonQuotaExceeded covers exhausted account quota.
	ReasonQuotaExceeded Reason = "quota_exceeded"
	// ReasonContentFiltered covers media rejected by the backend's
	// content policy; Category narrows the rejection.
	ReasonContentFiltered Reason = "content_filtered"
	// ReasonNetwork covers transient transport failures and 5xx
	// responses. The only retryable reason.
	ReasonNetwork Reason = "network"
	// ReasonTimeout covers an exhausted poll budget.
	ReasonTimeout Reason = "timeout"
	// ReasonCancelled covers user-initiated cancellation. Not a fault.
	ReasonCancelled Reason = "cancelled"
	// ReasonInternal covers everything else.
	ReasonInternal Reason = "internal"
)

// FilterCategory narrows a content-filtered rejection.
type FilterCategory string

// Content filter categories reported by capable backends.
const (
	FilterMinors    FilterCategory = "minors"
	FilterViolence  FilterCategory = "violence"
	FilterAdult     FilterCategory = "adult"
	FilterCopyright FilterCategory = "copyright"
	FilterGeneric   FilterCategory = "generic"
)

// Error is a classified provider error. It wraps the underlying cause so
// errors.Is/As keep working through the classification layer.
type Error struct {
	Reason   Reason
	Category FilterCategory // set only when Reason is ReasonContentFiltered
	Message  string
	cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Key returns a stable localization key for user-facing messaging.
func (e *Error) Key() string {
	switch e.Reason {
	case ReasonValidation:
		return "invalidArgument"
	case ReasonConfiguration:
		return "invalidCredentials"
	case ReasonRateLimited:
		return "rateLimited"
	case ReasonQuotaExceeded:
		return "quotaExceeded"
	case ReasonContentFiltered:
		switch e.Category {
		case FilterMinors:
			return "contentFilteredMinors"
		case FilterViolence:
			return "contentFilteredViolence"
		case FilterAdult:
			return "contentFilteredAdult"
		case FilterCopyright:
			return "contentFilteredCopyright"
		default:
			return "contentFiltered"
		}
	case ReasonNetwork:
		return "networkError"
	case ReasonTimeout:
		return "timeout"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "generationFailed"
	}
}

// NewError creates a classified error with a formatted message.
func NewError(reason Reason, format string, args ...any) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying error.
func WrapError(reason Reason, cause error, format string, args ...any) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...), cause: cause}
}

// NewContentFiltered creates a content-filtered error for a category.
func NewContentFiltered(category FilterCategory, format string, args ...any) *Error {
	return &Error{
		Reason:   ReasonContentFiltered,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// ReasonOf extracts the classification from an error, defaulting to
// ReasonInternal for unclassified errors.
func ReasonOf(err error) Reason {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ReasonInternal
}

// KeyOf returns the localization key for an error. Unclassified errors
// map to the generic failure key.
func KeyOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Key()
	}
	return "generationFailed"
}

// IsRetryable reports whether an error is worth retrying. Only transient
// network failures qualify; auth, quota, rate-limit and validation errors
// are terminal. Unclassified errors are treated as transient, matching
// the behavior of plain transport failures.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Reason == ReasonNetwork
	}
	return true
}
