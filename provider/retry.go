package provider

import (
	"context"
	"errors"
	"net"
	"slices"
	"strings"
	"time"
)

const (
	DefaultAttempts = 5
	DefaultDelay    = 2 * time.Second
	DefaultTimeout  = 5 * time.Minute
)

// DefaultSignatures are the lower-cased error fragments treated as transient.
var DefaultSignatures = []string{
	"econnreset",
	"econnaborted",
	"econnrefused",
	"etimedout",
	"enotfound",
	"eai_again",
	"connection reset",
	"connection aborted",
	"connection refused",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"network error",
	"socket hang up",
	"unexpected eof",
}

// DefaultRetryableStatus are the HTTP status codes treated as transient.
var DefaultRetryableStatus = []int{429, 500, 502, 503, 504}

// RetryPolicy configures the resilience wrapper.
type RetryPolicy struct {
	// Attempts is the total number of attempts, including the first one.
	Attempts int
	// Delay is the constant pause between attempts.
	Delay time.Duration
	// BackoffFactor is accepted from configuration but only a factor of 1
	// (constant delay) is applied.
	BackoffFactor float64
	// Timeout bounds every single network call. Zero disables it.
	Timeout time.Duration
	// Signatures are matched case-insensitively against error text.
	Signatures []string
	// RetryableStatus lists the HTTP status codes that are retried.
	RetryableStatus []int
}

// DefaultRetryPolicy returns 5 attempts, 2s fixed delay and a 5 minute
// per-call timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:        DefaultAttempts,
		Delay:           DefaultDelay,
		BackoffFactor:   1,
		Timeout:         DefaultTimeout,
		Signatures:      slices.Clone(DefaultSignatures),
		RetryableStatus: slices.Clone(DefaultRetryableStatus),
	}
}

// DelayFor returns the pause after the given failed attempt. The delay is
// constant regardless of the attempt number.
func (p RetryPolicy) DelayFor(int) time.Duration {
	return p.Delay
}

// MaxAttempts returns the attempt budget, never less than one.
func (p RetryPolicy) MaxAttempts() int {
	return max(1, p.Attempts)
}

// IsRetryable classifies err as transient (true) or fatal (false).
func (p RetryPolicy) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) {
		return true
	}
	if IsConfigError(err) || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return slices.Contains(p.RetryableStatus, statusErr.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range p.Signatures {
		if sig != "" && strings.Contains(msg, strings.ToLower(sig)) {
			return true
		}
	}
	return false
}
