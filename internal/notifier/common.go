package notifier

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RateLimitError is a 429 answer from the sink.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError is a non-retryable 4xx answer.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError is a retryable 5xx answer.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

func is429Error(err error) (*RateLimitError, bool) {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr, true
	}
	return nil, false
}

// isRetryableError: server and network errors are retried, client errors are not.
func isRetryableError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}

	var rateLimitErr *RateLimitError
	return !errors.As(err, &rateLimitErr)
}

// truncate cuts text to maxLength characters, never inside a rune.
func truncate(text string, maxLength int, suffix string) string {
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}

	keep := maxLength - utf8.RuneCountInString(suffix)
	if keep < 0 {
		keep = 0
	}

	runes := []rune(text)
	return string(runes[:keep]) + suffix
}
