// Package errors provides standardized error handling for the lead funnel
// service.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Validation errors are recovered locally: they surface as field-keyed
	// messages on the capture session and never abort the funnel.
	ErrCodeEmailInvalid             ErrorCode = "EMAIL_INVALID"
	ErrCodePhoneInvalid             ErrorCode = "PHONE_INVALID"
	ErrCodeNameRequired             ErrorCode = "NAME_REQUIRED"
	ErrCodePlatformsRequired        ErrorCode = "PLATFORMS_REQUIRED"
	ErrCodePlatformDetailsIncomplete ErrorCode = "PLATFORM_DETAILS_INCOMPLETE"

	// State machine errors.
	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrCodeDuplicateSubmit    ErrorCode = "DUPLICATE_SUBMIT"
	ErrCodeUnknownUserType    ErrorCode = "UNKNOWN_USER_TYPE"
	ErrCodeUnknownPlatform    ErrorCode = "UNKNOWN_PLATFORM"

	// Delivery errors. Non-fatal: the funnel still completes locally.
	ErrCodeWebhookUnconfigured ErrorCode = "WEBHOOK_UNCONFIGURED"
	ErrCodeWebhookSendFailed   ErrorCode = "WEBHOOK_SEND_FAILED"
	ErrCodeJournalWriteFailed  ErrorCode = "JOURNAL_WRITE_FAILED"
	ErrCodePayloadSchemaFailed ErrorCode = "PAYLOAD_SCHEMA_FAILED"

	// Storage / environment errors. Treated as feature-unavailable.
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeVariantUnknown     ErrorCode = "VARIANT_UNKNOWN"
	ErrCodeSinkUnavailable    ErrorCode = "SINK_UNAVAILABLE"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewEmailInvalidError creates a non-retryable email validation error.
func NewEmailInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailInvalid,
		Message:   "Please enter a valid email address",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPhoneInvalidError creates a non-retryable phone validation error.
func NewPhoneInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePhoneInvalid,
		Message:   "Please enter a valid phone number",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError creates a non-retryable session lookup error.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Capture session not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a non-retryable state machine error.
func NewInvalidTransitionError(from, action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Action not allowed at this step",
		Details:   fmt.Sprintf("step: %s, action: %s", from, action),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateSubmitError is returned while a previous submit is in flight.
func NewDuplicateSubmitError(step string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateSubmit,
		Message:   "A submit is already in progress for this step",
		Details:   fmt.Sprintf("step: %s", step),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebhookSendFailedError creates a retryable delivery error.
func NewWebhookSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebhookSendFailed,
		Message:   "Lead webhook delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewJournalWriteFailedError creates a retryable journal error.
func NewJournalWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeJournalWriteFailed,
		Message:   "Delivery journal write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageUnavailableError creates a retryable storage error.
func NewStorageUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageUnavailable,
		Message:   "Assignment storage unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewVariantUnknownError is raised when storage holds an id missing from the
// catalog. Callers treat it as "not assigned" and reassign.
func NewVariantUnknownError(variantID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeVariantUnknown,
		Message:   "Persisted variant not in catalog",
		Details:   fmt.Sprintf("variantId: %s", variantID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Error Classification
// ==========================

// GetErrorCategory groups codes by how the service handles them.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeEmailInvalid, ErrCodePhoneInvalid, ErrCodeNameRequired,
		ErrCodePlatformsRequired, ErrCodePlatformDetailsIncomplete:
		return "validation"
	case ErrCodeWebhookUnconfigured, ErrCodeWebhookSendFailed,
		ErrCodeJournalWriteFailed, ErrCodePayloadSchemaFailed:
		return "delivery"
	case ErrCodeStorageUnavailable, ErrCodeVariantUnknown, ErrCodeSinkUnavailable:
		return "environment"
	default:
		return "state"
	}
}

// GetRetryCount returns how many retries a code deserves. Validation and
// state errors are user-correctable and never retried by the service.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorageUnavailable:
		return 3
	case ErrCodeJournalWriteFailed:
		return 1
	default:
		return 0
	}
}

// IsRetryable reports whether an error is a retryable StandardError.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}

// CodeOf extracts the ErrorCode from an error, or "INTERNAL_ERROR".
func CodeOf(err error) ErrorCode {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}
