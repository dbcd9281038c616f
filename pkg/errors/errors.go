package errors

import "fmt"

// ErrorType classifies failures across the ingestion pipeline
type ErrorType string

const (
	ErrorTypeInvalidURL          ErrorType = "invalid_url"
	ErrorTypeUnsupportedPlatform ErrorType = "unsupported_platform"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeAuth                ErrorType = "auth"
	ErrorTypeRateLimit           ErrorType = "rate_limit"
	ErrorTypeNetwork             ErrorType = "network"
	ErrorTypeServerError         ErrorType = "server_error"
	ErrorTypeParsing             ErrorType = "parsing"
	ErrorTypeUnknown             ErrorType = "unknown"
)

// Error represents a classified pipeline error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a classified error without an HTTP code
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// NewWithCode creates a classified error carrying an HTTP status code
func NewWithCode(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Code: code}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeInvalidURL, ErrorTypeUnsupportedPlatform, ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParsing:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 400, 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
