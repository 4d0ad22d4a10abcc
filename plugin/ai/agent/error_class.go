package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrorClass represents the category of error for retry decisions.
type ErrorClass int

const (
	// ErrorClassTransient indicates a temporary error that should be retried.
	// Examples: network timeout, temporary service unavailability.
	ErrorClassTransient ErrorClass = iota

	// ErrorClassPermanent indicates a non-retryable error.
	// Examples: validation failures, invalid transitions.
	ErrorClassPermanent

	// ErrorClassStarved indicates retrieval could not supply enough content.
	// Not retried; the caller is told to broaden the topic or ingest more
	// material.
	ErrorClassStarved
)

func (e ErrorClass) String() string {
	switch e {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassPermanent:
		return "permanent"
	case ErrorClassStarved:
		return "starved"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with its classification and retry guidance.
type ClassifiedError struct {
	Class      ErrorClass
	Original   error
	RetryAfter time.Duration
	ActionHint string
}

func (c *ClassifiedError) Error() string {
	if c.Original == nil {
		return fmt.Sprintf("classified error: class=%s", c.Class)
	}
	return fmt.Sprintf("%s: %v", c.Class, c.Original)
}

// Unwrap returns the original error for errors.Is/As.
func (c *ClassifiedError) Unwrap() error {
	return c.Original
}

func (c *ClassifiedError) IsTransient() bool {
	return c.Class == ErrorClassTransient
}

func (c *ClassifiedError) IsPermanent() bool {
	return c.Class == ErrorClassPermanent
}

func (c *ClassifiedError) IsStarved() bool {
	return c.Class == ErrorClassStarved
}

// ClassifyError analyzes an error and determines its class and retry strategy.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrContentUnavailable) {
		return &ClassifiedError{
			Class:      ErrorClassStarved,
			Original:   err,
			ActionHint: "broaden_topic",
		}
	}

	if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrSessionNotFound) {
		return &ClassifiedError{
			Class:    ErrorClassPermanent,
			Original: err,
		}
	}

	if errors.Is(err, ErrNetworkError) || errors.Is(err, ErrServiceUnavailable) {
		return &ClassifiedError{
			Class:      ErrorClassTransient,
			Original:   err,
			RetryAfter: 2 * time.Second,
		}
	}

	if isTimeoutError(err) {
		return &ClassifiedError{
			Class:      ErrorClassTransient,
			Original:   err,
			RetryAfter: 3 * time.Second,
		}
	}

	if isNetworkError(err) {
		return &ClassifiedError{
			Class:      ErrorClassTransient,
			Original:   err,
			RetryAfter: 2 * time.Second,
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "invalid") ||
		strings.Contains(errMsg, "not found") ||
		strings.Contains(errMsg, "unauthorized") ||
		strings.Contains(errMsg, "forbidden") ||
		strings.Contains(errMsg, "required") {
		return &ClassifiedError{
			Class:    ErrorClassPermanent,
			Original: err,
		}
	}

	// Unknown errors are permanent (fail safe).
	return &ClassifiedError{
		Class:    ErrorClassPermanent,
		Original: err,
	}
}

// isNetworkError checks if an error is network-related (transient).
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"no such host",
		"temporary failure",
		"dial tcp",
		"eof",
		"connection lost",
		"status code: 5",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if an error is timeout-related (transient).
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	timeoutPatterns := []string{
		"timeout",
		"deadline exceeded",
		"i/o timeout",
		"operation timed out",
	}
	for _, pattern := range timeoutPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// ShouldRetry returns true if the error warrants a retry attempt.
func ShouldRetry(err error) bool {
	return ClassifyError(err).IsTransient()
}

// GetRetryDelay returns the suggested delay before retry, or 0 if not
// retryable.
func GetRetryDelay(err error) time.Duration {
	classified := ClassifyError(err)
	if classified.IsTransient() && classified.RetryAfter > 0 {
		return classified.RetryAfter
	}
	return 0
}
