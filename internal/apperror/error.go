package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is a coded error with a client-facing message and HTTP status.
// Context and the wrapped cause are for logs and are never sent to callers
// of server-side failures.
type AppError struct {
	Code       Code
	Message    string
	StatusCode int
	Context    string
	RetryAfter int // seconds, rate limited errors only
	cause      error
}

func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Context)
		sb.WriteString(")")
	}
	if e.cause != nil {
		fmt.Fprintf(&sb, ": %v", e.cause)
	}
	return sb.String()
}

func (e *AppError) Unwrap() error { return e.cause }

// Is matches any AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// Body is the JSON error payload of the HTTP surfaces.
type Body struct {
	Message    string `json:"message"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// ToBody renders err for a caller. Foreign errors become the generic
// internal error.
func ToBody(err error) Body {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return Body{Message: messages[CodeInternalError], Code: string(CodeInternalError)}
	}
	return Body{Message: appErr.Message, Code: string(appErr.Code), RetryAfter: appErr.RetryAfter}
}

// Option customises an AppError built by New.
type Option func(*AppError)

func WithMessage(message string) Option {
	return func(e *AppError) { e.Message = message }
}

func WithContext(context string) Option {
	return func(e *AppError) { e.Context = context }
}

func WithStatusCode(statusCode int) Option {
	return func(e *AppError) { e.StatusCode = statusCode }
}

func WithRetryAfter(seconds int) Option {
	return func(e *AppError) { e.RetryAfter = seconds }
}

func WithCause(cause error) Option {
	return func(e *AppError) { e.cause = cause }
}

// New builds an AppError with the code's default message and status.
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:       code,
		Message:    messages[code],
		StatusCode: statusFor(code),
	}
	for _, opt := range opts {
		opt(err)
	}
	if err.Message == "" {
		err.Message = string(code)
	}
	return err
}

// Validation is a 400 for malformed caller input.
func Validation(code Code, context string) *AppError {
	return New(code, WithContext(context), WithStatusCode(http.StatusBadRequest))
}

// Unauthorized is a 401 for failed market maker authentication.
func Unauthorized(code Code, context string) *AppError {
	return New(code, WithContext(context), WithStatusCode(http.StatusUnauthorized))
}

// RateLimited is a 429 carrying the seconds to wait.
func RateLimited(code Code, retryAfter int) *AppError {
	return New(code, WithRetryAfter(retryAfter), WithStatusCode(http.StatusTooManyRequests))
}

// Internal is a 500 wrapping cause.
func Internal(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause), WithStatusCode(http.StatusInternalServerError))
}

// External is a 503 for a failing dependency such as the node or a price feed.
func External(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause), WithStatusCode(http.StatusServiceUnavailable))
}

// Wrap returns err unchanged when it already is an AppError, filling in
// context if it had none, and an Internal error otherwise.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if context != "" && appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}
	return Internal(code, context, err)
}

// Message returns the client-facing message of err.
func Message(err error) string {
	return ToBody(err).Message
}

// StatusCode returns the HTTP status of err, 500 for foreign errors.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// GetCode returns the code of err, CodeUnknownError for foreign errors.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

func statusFor(code Code) int {
	switch code {
	case CodeInsufficientLiquidity, CodeDCAUnavailable:
		return http.StatusBadRequest
	case CodeInvalidAuth, CodeInvalidTimestamp, CodeInvalidPublicKey,
		CodeInvalidSignature, CodeMarketMakerNotFound, CodeInvalidAPIKey:
		return http.StatusUnauthorized
	case CodeRateLimitExceeded, CodeBlacklisted, CodeMarketMakerRateLimit:
		return http.StatusTooManyRequests
	case CodeCircuitOpen, CodePriceUnavailable:
		return http.StatusServiceUnavailable
	}

	s := string(code)
	switch {
	case strings.Contains(s, "NOT_FOUND"):
		return http.StatusNotFound
	case strings.Contains(s, "INVALID"):
		return http.StatusBadRequest
	case strings.Contains(s, "CONNECTION"), strings.Contains(s, "TIMEOUT"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
