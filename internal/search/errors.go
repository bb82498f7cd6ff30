package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	ErrorTypeConfig      = "config"
	ErrorTypeNetwork     = "network"
	ErrorTypeTimeout     = "timeout"
	ErrorTypeRateLimit   = "rate_limit"
	ErrorTypeUpstream5xx = "upstream_5xx"
	ErrorTypeCircuitOpen = "circuit_open"
	ErrorTypeUnknown     = "unknown"
)

type TypedError struct {
	Type string
	Err  error
}

func (e *TypedError) Error() string {
	if e == nil {
		return "unknown error"
	}
	if e.Err == nil {
		return e.Type
	}
	return e.Err.Error()
}

func (e *TypedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewTypedError(errorType string, err error) error {
	if err == nil {
		return &TypedError{Type: errorType, Err: errors.New(errorType)}
	}
	return &TypedError{Type: errorType, Err: err}
}

// IsConfigError reports whether retrying err can never succeed.
func IsConfigError(err error) bool {
	return ClassifyError(err) == ErrorTypeConfig
}

// Retryable reports whether another attempt against the same upstream may
// succeed. Rate limits are not retried within one search.
func Retryable(err error) bool {
	switch ClassifyError(err) {
	case "", ErrorTypeConfig, ErrorTypeRateLimit, ErrorTypeCircuitOpen:
		return false
	}
	return true
}

func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	var typed *TypedError
	if errors.As(err, &typed) && strings.TrimSpace(typed.Type) != "" {
		return typed.Type
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	if strings.Contains(msg, "timeout") {
		return ErrorTypeTimeout
	}
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") {
		return ErrorTypeNetwork
	}
	if strings.Contains(msg, "429") {
		return ErrorTypeRateLimit
	}
	if strings.Contains(msg, "http 5") {
		return ErrorTypeUpstream5xx
	}
	return ErrorTypeUnknown
}

// statusError turns a non-2xx upstream response into a typed error carrying a
// short excerpt of the body.
func statusError(provider string, res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		detail = res.Status
	}
	errorType := ErrorTypeUnknown
	if res.StatusCode == http.StatusTooManyRequests {
		errorType = ErrorTypeRateLimit
	} else if res.StatusCode >= 500 {
		errorType = ErrorTypeUpstream5xx
	}
	return NewTypedError(errorType, fmt.Errorf("%s http %d: %s", provider, res.StatusCode, detail))
}
