package symposium

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/events"
	"github.com/casualjim/symposium/pkg/slogx"
	"github.com/casualjim/symposium/provider"
	"github.com/casualjim/symposium/provider/registry"
	"github.com/casualjim/symposium/role"
	"github.com/casualjim/symposium/store"
	"github.com/fogfish/opts"
)

// Orchestrator runs staged discussions. It holds no per-discussion state and
// is safe for concurrent use.
type Orchestrator struct {
	resolver registry.Resolver
	catalog  *role.Catalog
	store    store.Store
	sinks    []events.Sink
	sink     events.Sink
	prompts  Prompter
	logger   *slog.Logger
	sleep    provider.SleepFunc

	pacing               time.Duration
	firstSpeakerAttempts int
	firstSpeakerDelay    time.Duration
	maxRounds            int
}

// New creates an orchestrator resolving providers through resolver and roles
// through catalog. A nil catalog uses role.Default().
func New(resolver registry.Resolver, catalog *role.Catalog, options ...opts.Option[Orchestrator]) *Orchestrator {
	if catalog == nil {
		catalog = role.Default()
	}
	o := &Orchestrator{
		resolver:             resolver,
		catalog:              catalog,
		store:                store.NewMemory(),
		prompts:              DefaultPrompts{},
		logger:               slog.Default(),
		sleep:                provider.Sleep,
		pacing:               DefaultPacing,
		firstSpeakerAttempts: DefaultFirstSpeakerAttempts,
		firstSpeakerDelay:    DefaultFirstSpeakerDelay,
		maxRounds:            DefaultMaxRounds,
	}
	if err := opts.Apply(o, options); err != nil {
		panic(err)
	}
	if o.sleep == nil {
		o.sleep = provider.Sleep
	}
	o.logger = o.logger.With(slogx.LoggerName("symposium"))
	o.sink = events.Composite(o.sinks...)
	return o
}

// Store returns the store discussions are persisted in.
func (o *Orchestrator) Store() store.Store {
	return o.store
}

// Discussion is a handle on one running or finished discussion.
type Discussion struct {
	ID      string
	OwnerID string

	state        atomic.Int32
	done         chan struct{}
	conv         *conversation.Conversation
	err          error
	participants []bound
}

// bound is a participant with its resolved generator.
type bound struct {
	conversation.Participant
	gen provider.Generator
}

// bind pairs participants with their resolved generators, keeping order.
func (d *Discussion) bind(ps ...conversation.Participant) []bound {
	out := make([]bound, 0, len(ps))
	for _, p := range ps {
		for _, b := range d.participants {
			if b.ID == p.ID {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// State reports the stage the discussion is in.
func (d *Discussion) State() State {
	return State(d.state.Load())
}

func (d *Discussion) setState(s State) {
	d.state.Store(int32(s))
}

// Done is closed when the discussion reached a terminal state.
func (d *Discussion) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the discussion finished or ctx is done. The returned
// conversation is the final transcript, also when err is not nil.
func (d *Discussion) Wait(ctx context.Context) (*conversation.Conversation, error) {
	select {
	case <-d.done:
		return d.conv, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Start validates req and runs the whole protocol. Configuration errors are
// returned before any provider is called and without a conversation. A
// protocol failure returns the conversation in error status together with an
// error wrapping ErrFirstSpeakerFailed.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*conversation.Conversation, error) {
	d, err := o.prepare(req)
	if err != nil {
		return nil, err
	}
	o.run(ctx, d)
	return d.conv, d.err
}

// StartAsync validates req synchronously and runs the protocol in the
// background. The discussion outlives ctx cancellation; ctx values are kept.
func (o *Orchestrator) StartAsync(ctx context.Context, req Request) (*Discussion, error) {
	d, err := o.prepare(req)
	if err != nil {
		return nil, err
	}
	go o.run(context.WithoutCancel(ctx), d)
	return d, nil
}

func (o *Orchestrator) prepare(req Request) (*Discussion, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	participants := make([]conversation.Participant, 0, len(req.Participants))
	var errs []error
	for _, spec := range req.Participants {
		p, err := o.catalog.BuildParticipant(spec.Role, spec.Provider, spec.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		participants = append(participants, p)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := conversation.ValidateParticipants(participants); err != nil {
		return nil, err
	}

	bindings := make([]bound, len(participants))
	for i, p := range participants {
		gen, err := o.resolver.Resolve(p.Provider)
		if err != nil {
			errs = append(errs, fmt.Errorf("participant %s: %w", p, err))
			continue
		}
		bindings[i] = bound{Participant: p, gen: gen}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	req.Question = question
	conv := conversation.New(req.owner(), req.title(), participants)
	conv.MaxRounds = o.maxRounds
	conv.Append(conversation.NewUserMessage(question))

	return &Discussion{
		ID:           conv.ID,
		OwnerID:      conv.OwnerID,
		done:         make(chan struct{}),
		conv:         conv,
		participants: bindings,
	}, nil
}
