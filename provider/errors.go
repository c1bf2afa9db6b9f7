package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse is returned when a call succeeded but produced no usable text.
	ErrEmptyResponse = errors.New("provider returned an empty response")
	// ErrStreamingUnsupported is returned by adapters whose transport cannot stream.
	ErrStreamingUnsupported = errors.New("streaming is not supported by this provider")
	// ErrUnknownFormat is returned when no adapter is registered for a wire format.
	ErrUnknownFormat = errors.New("unknown provider format")
)

// StatusError is a non-2xx answer from a provider endpoint.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: http status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: http status %d: %s", e.Provider, e.Code, e.Body)
}

// TransportError is a failure to reach the provider or to read its answer.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a provider answer that could not be understood.
type DecodeError struct {
	Provider string
	Reason   string
	Raw      string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Provider, e.Reason)
}

// ConfigError is a setup-time failure: unknown, disabled or credential-less
// provider. It is never retried.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q: %s", e.Provider, e.Reason)
}

// ExhaustedError is returned once the retry budget is spent.
type ExhaustedError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Provider, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is (or wraps) a configuration failure.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
