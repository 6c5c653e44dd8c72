package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of AI-related error
type ErrorType string

const (
	// ErrTypeProvider indicates provider-related errors
	ErrTypeProvider ErrorType = "provider"

	// ErrTypeConfiguration indicates configuration errors
	ErrTypeConfiguration ErrorType = "configuration"

	// ErrTypeAuthentication indicates authentication errors
	ErrTypeAuthentication ErrorType = "authentication"

	// ErrTypeRateLimit indicates rate limiting errors
	ErrTypeRateLimit ErrorType = "rate_limit"

	// ErrTypeNetwork indicates network-related errors
	ErrTypeNetwork ErrorType = "network"

	// ErrTypeTimeout indicates timeout errors
	ErrTypeTimeout ErrorType = "timeout"

	// ErrTypeValidation indicates input validation errors
	ErrTypeValidation ErrorType = "validation"

	// ErrTypeRegistration indicates provider registration errors
	ErrTypeRegistration ErrorType = "registration"

	// ErrTypeNotFound indicates provider not found errors
	ErrTypeNotFound ErrorType = "not_found"

	// ErrTypeUnsupported indicates a capability the provider lacks
	ErrTypeUnsupported ErrorType = "unsupported"

	// ErrTypeInternal indicates internal system errors
	ErrTypeInternal ErrorType = "internal"
)

// ProviderError represents errors specific to AI providers
type ProviderError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Provider   string    `json:"provider,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Cause      error     `json:"-"`
	Retryable  bool      `json:"retryable"`
	RetryAfter int       `json:"retry_after,omitempty"`
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	var parts []string

	if e.Provider != "" {
		parts = append(parts, fmt.Sprintf("provider=%s", e.Provider))
	}

	parts = append(parts, fmt.Sprintf("type=%s", e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%s", e.Cause.Error()))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is matches another ProviderError of the same type
func (e *ProviderError) Is(target error) bool {
	if pe, ok := target.(*ProviderError); ok {
		return e.Type == pe.Type
	}
	return false
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// RateLimitError represents rate limiting errors
type RateLimitError struct {
	Provider   string `json:"provider"`
	RetryAfter int    `json:"retry_after"`
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for provider '%s': retry after %d seconds",
		e.Provider, e.RetryAfter)
}

// ConfigurationError represents configuration-related errors
type ConfigurationError struct {
	Provider string `json:"provider"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for provider '%s', field '%s': %s",
		e.Provider, e.Field, e.Message)
}

// NewProviderError creates a new provider error
func NewProviderError(errType ErrorType, message, provider string) *ProviderError {
	return &ProviderError{
		Type:      errType,
		Message:   message,
		Provider:  provider,
		Retryable: isRetryableType(errType),
	}
}

// NewProviderErrorWithCause creates a provider error with an underlying cause
func NewProviderErrorWithCause(errType ErrorType, message, provider string, cause error) *ProviderError {
	pe := NewProviderError(errType, message, provider)
	pe.Cause = cause
	return pe
}

// NewValidationError creates a validation error
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(provider string, retryAfter int) *RateLimitError {
	return &RateLimitError{Provider: provider, RetryAfter: retryAfter}
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(provider, field, message string) *ConfigurationError {
	return &ConfigurationError{Provider: provider, Field: field, Message: message}
}

// NewUnsupportedError reports a capability the provider does not offer
func NewUnsupportedError(provider, capability string) *ProviderError {
	return NewProviderError(ErrTypeUnsupported, capability+" is not supported", provider)
}

// StatusError maps a failed HTTP status to the matching error type
func StatusError(provider string, status int, message string) error {
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		pe := NewProviderError(ErrTypeAuthentication, message, provider)
		pe.StatusCode = status
		return pe
	case status == http.StatusTooManyRequests:
		return NewRateLimitError(provider, 0)
	case status == http.StatusBadRequest:
		return NewValidationError("request", "invalid", message)
	case status == http.StatusNotFound:
		pe := NewProviderError(ErrTypeNotFound, message, provider)
		pe.StatusCode = status
		return pe
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		pe := NewProviderError(ErrTypeTimeout, message, provider)
		pe.StatusCode = status
		return pe
	case status >= 500:
		pe := NewProviderError(ErrTypeProvider, message, provider)
		pe.StatusCode = status
		pe.Retryable = true
		return pe
	default:
		pe := NewProviderError(ErrTypeProvider, message, provider)
		pe.StatusCode = status
		return pe
	}
}

func isRetryableType(errType ErrorType) bool {
	switch errType {
	case ErrTypeRateLimit, ErrTypeTimeout, ErrTypeNetwork:
		return true
	default:
		return false
	}
}

// IsRetryableError checks if an error is worth another attempt
func IsRetryableError(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Type == ErrTypeRateLimit {
		return true
	}
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Type == ErrTypeConfiguration {
		return true
	}
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Type == ErrTypeValidation {
		return true
	}
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUnsupportedError checks if a provider lacks the requested capability
func IsUnsupportedError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Type == ErrTypeUnsupported
}
