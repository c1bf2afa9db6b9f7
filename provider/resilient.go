package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/pkg/slogx"
	"github.com/fogfish/opts"
)

// Generator is the uniform contract the orchestrator talks to.
type Generator interface {
	Name() string
	Model() string
	GenerateResponse(ctx context.Context, history []conversation.Message, instructions string) (string, error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type wrapOptions struct {
	policy    RetryPolicy
	streaming bool
	sleep     SleepFunc
	logger    *slog.Logger
}

// WrapOption configures Wrap.
type WrapOption = opts.Option[wrapOptions]

var (
	WithPolicy    = opts.ForName[wrapOptions, RetryPolicy]("policy")
	WithStreaming = opts.ForName[wrapOptions, bool]("streaming")
)

// WithSleep replaces the pause between attempts, mostly for tests.
func WithSleep(fn SleepFunc) WrapOption {
	return opts.Type[wrapOptions](func(o *wrapOptions) error {
		if fn == nil {
			return errors.New("sleep function is required")
		}
		o.sleep = fn
		return nil
	})
}

// WithLogger sets the logger retries and failures are reported to.
func WithLogger(logger *slog.Logger) WrapOption {
	return opts.Type[wrapOptions](func(o *wrapOptions) error {
		o.logger = logger
		return nil
	})
}

// Resilient wraps an Adapter with streaming fallback and fixed-delay retry.
type Resilient[P, R, C any] struct {
	name    string
	adapter Adapter[P, R, C]
	wrapOptions
}

var _ Generator = (*Resilient[any, any, any])(nil)

// Wrap builds the Generator for adapter. Streaming is on and the default
// retry policy applies unless overridden.
func Wrap[P, R, C any](name string, adapter Adapter[P, R, C], options ...WrapOption) *Resilient[P, R, C] {
	cfg := wrapOptions{
		policy:    DefaultRetryPolicy(),
		streaming: true,
		sleep:     Sleep,
	}
	if err := opts.Apply(&cfg, options); err != nil {
		panic(err)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	cfg.logger = cfg.logger.With(slogx.LoggerName("provider"), slogx.Provider(name))
	return &Resilient[P, R, C]{
		name:        name,
		adapter:     adapter,
		wrapOptions: cfg,
	}
}

func (r *Resilient[P, R, C]) Name() string {
	return r.name
}

func (r *Resilient[P, R, C]) Model() string {
	return r.adapter.Model()
}

// Policy returns the retry policy in effect.
func (r *Resilient[P, R, C]) Policy() RetryPolicy {
	return r.policy
}

// GenerateResponse returns the trimmed, non-empty answer for history.
// Transient failures are retried; fatal ones are returned immediately and an
// exhausted budget yields an *ExhaustedError wrapping the last failure.
func (r *Resilient[P, R, C]) GenerateResponse(ctx context.Context, history []conversation.Message, instructions string) (string, error) {
	payload, err := r.adapter.FormatMessages(history)
	if err != nil {
		return "", fmt.Errorf("%s: format messages: %w", r.name, err)
	}

	attempts := r.policy.MaxAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := r.attempt(ctx, payload, instructions)
		if err == nil {
			if attempt > 1 {
				r.logger.InfoContext(ctx, "provider recovered", slogx.Attempt(attempt, attempts))
			}
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", errors.Join(ctx.Err(), lastErr)
		}
		if !r.policy.IsRetryable(err) {
			r.logger.ErrorContext(ctx, "provider call failed", slogx.Attempt(attempt, attempts), slogx.Error(err))
			return "", err
		}
		if attempt == attempts {
			break
		}

		delay := r.policy.DelayFor(attempt)
		r.logger.WarnContext(ctx, "transient provider failure, retrying",
			slogx.Attempt(attempt, attempts),
			slog.Duration("delay", delay),
			slogx.Error(err),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return "", errors.Join(err, lastErr)
		}
	}

	r.logger.ErrorContext(ctx, "provider retries exhausted", slog.Int("attempts", attempts), slogx.Error(lastErr))
	return "", &ExhaustedError{Provider: r.name, Attempts: attempts, Err: lastErr}
}

func (r *Resilient[P, R, C]) attempt(ctx context.Context, payload P, instructions string) (string, error) {
	var (
		text string
		err  error
	)
	if r.streaming {
		text, err = r.stream(ctx, payload, instructions)
		if err != nil && ctx.Err() == nil {
			r.logger.DebugContext(ctx, "streaming failed, falling back to a buffered call", slogx.Error(err))
			text, err = r.buffered(ctx, payload, instructions)
		}
	} else {
		text, err = r.buffered(ctx, payload, instructions)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", r.name, ErrEmptyResponse)
	}
	return text, nil
}

func (r *Resilient[P, R, C]) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.policy.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.policy.Timeout)
}

func (r *Resilient[P, R, C]) stream(ctx context.Context, payload P, instructions string) (string, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	call, err := r.adapter.MakeCall(callCtx, payload, instructions, true)
	if err != nil {
		return "", err
	}
	if !call.IsStream() {
		return "", ErrStreamingUnsupported
	}

	var sb strings.Builder
	for chunk, err := range call.Fragments {
		if err != nil {
			return "", err
		}
		if text, ok := r.adapter.ParseStreamFragment(chunk); ok {
			sb.WriteString(text)
		}
	}
	if err := callCtx.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *Resilient[P, R, C]) buffered(ctx context.Context, payload P, instructions string) (string, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	call, err := r.adapter.MakeCall(callCtx, payload, instructions, false)
	if err != nil {
		return "", err
	}
	return r.adapter.ParseResponse(call.Response)
}
