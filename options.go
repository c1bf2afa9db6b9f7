package symposium

import (
	"errors"
	"log/slog"
	"time"

	"github.com/casualjim/symposium/events"
	"github.com/casualjim/symposium/provider"
	"github.com/casualjim/symposium/store"
	"github.com/fogfish/opts"
)

const (
	DefaultFirstSpeakerAttempts = 3
	DefaultFirstSpeakerDelay    = 3 * time.Second
	DefaultPacing               = 2 * time.Second
	DefaultMaxRounds            = 1
)

// Option configures an Orchestrator.
type Option = opts.Option[Orchestrator]

// WithPacing sets the pause between the opening answer and the middle tier.
var WithPacing = opts.ForName[Orchestrator, time.Duration]("pacing")

// WithSleep replaces the function used for every protocol pause.
var WithSleep = opts.ForName[Orchestrator, provider.SleepFunc]("sleep")

// WithFirstSpeakerRetry sets the outer retry budget around the first speaker.
func WithFirstSpeakerRetry(attempts int, delay time.Duration) Option {
	return opts.Type[Orchestrator](func(o *Orchestrator) error {
		if attempts < 1 {
			return errors.New("first speaker attempts must be at least 1")
		}
		o.firstSpeakerAttempts = attempts
		o.firstSpeakerDelay = delay
		return nil
	})
}

// WithMaxRounds sets how many times the middle tier speaks. Every round
// after the first sees the answers of the previous rounds.
func WithMaxRounds(n int) Option {
	return opts.Type[Orchestrator](func(o *Orchestrator) error {
		if n < 1 {
			return errors.New("max rounds must be at least 1")
		}
		o.maxRounds = n
		return nil
	})
}

// WithStore persists conversations in s.
func WithStore(s store.Store) Option {
	return opts.Type[Orchestrator](func(o *Orchestrator) error {
		if s == nil {
			return errors.New("store is nil")
		}
		o.store = s
		return nil
	})
}

// WithSink adds event sinks. Repeated use adds to the existing sinks.
func WithSink(sinks ...events.Sink) Option {
	return opts.Type[Orchestrator](func(o *Orchestrator) error {
		o.sinks = append(o.sinks, sinks...)
		return nil
	})
}

// WithPrompts replaces the prompts sent to participants.
func WithPrompts(p Prompter) Option {
	return opts.Type[Orchestrator](func(o *Orchestrator) error {
		if p == nil {
			return errors.New("prompter is nil")
		}
		o.prompts = p
		return nil
	})
}

// WithLogger sets the logger discussions are reported to. It defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return opts.Type[Orchestrator](func(o *Orchestrator) error {
		if logger == nil {
			return errors.New("logger is nil")
		}
		o.logger = logger
		return nil
	})
}
