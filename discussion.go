package symposium

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/events"
	"github.com/casualjim/symposium/pkg/slogx"
	"github.com/casualjim/symposium/provider"
)

// run drives d through the stages. It always leaves d in a terminal state and
// closes d.done.
func (o *Orchestrator) run(ctx context.Context, d *Discussion) {
	defer close(d.done)
	conv := d.conv
	log := o.logger.With(slogx.Conversation(conv.ID))

	if err := o.store.SaveConversation(ctx, conv, conv.OwnerID); err != nil {
		log.ErrorContext(ctx, "failed to persist conversation", slogx.Error(err))
	}
	o.publish(ctx, conv, events.DiscussionStarted{
		Question:     conv.Question(),
		Participants: slices.Clone(conv.Participants),
	})
	log.InfoContext(ctx, "discussion started",
		slog.String("title", conv.Title),
		slog.Int("participants", len(d.participants)),
	)

	if err := o.stages(ctx, d, log); err != nil {
		d.setState(StateErrored)
		d.err = err
		o.finish(ctx, conv, conversation.StatusError, log)
		o.publish(ctx, conv, events.DiscussionError{Error: err.Error()})
		log.ErrorContext(ctx, "discussion failed", slogx.Error(err))
		return
	}

	d.setState(StateCompleted)
	o.finish(ctx, conv, conversation.StatusCompleted, log)
	msgs := slices.Clone(conv.Messages)
	o.publish(ctx, conv, events.DiscussionCompleted{Messages: msgs, MessageCount: len(msgs)})
	log.InfoContext(ctx, "discussion completed", slog.Int("messages", len(msgs)))
}

func (o *Orchestrator) stages(ctx context.Context, d *Discussion, log *slog.Logger) error {
	lead, _ := d.conv.FirstSpeaker()
	first := d.bind(lead)[0]
	middle := d.bind(d.conv.Middle()...)
	var synthesizer *bound
	if p, ok := d.conv.Synthesizer(); ok {
		synthesizer = &d.bind(p)[0]
	}

	o.enter(ctx, d, StateStage1, first)
	opening, err := o.firstSpeaker(ctx, d, first, log)
	if err != nil {
		return err
	}
	o.record(ctx, d.conv, opening, log)

	if len(middle) == 0 && synthesizer == nil {
		return nil
	}
	if err := o.sleep(ctx, o.pacing); err != nil {
		return fmt.Errorf("pacing interrupted: %w", err)
	}

	if len(middle) > 0 {
		o.enter(ctx, d, StateStage2, middle...)
		for round := 1; round <= o.maxRounds; round++ {
			d.conv.CurrentRound = round
			prior := d.conv.AssistantMessages()
			for _, msg := range o.respond(ctx, d.conv.Question(), prior, middle, log) {
				o.record(ctx, d.conv, msg, log)
			}
		}
	}

	if synthesizer != nil {
		o.enter(ctx, d, StateStage3, *synthesizer)
		if msg, ok := o.synthesize(ctx, d.conv, *synthesizer, log); ok {
			o.record(ctx, d.conv, msg, log)
		}
	}
	return nil
}

func (o *Orchestrator) enter(ctx context.Context, d *Discussion, state State, speakers ...bound) {
	d.setState(state)
	ids := make([]string, len(speakers))
	for i, s := range speakers {
		ids[i] = s.ID
	}
	o.publish(ctx, d.conv, events.RoundStarted{Stage: state.Stage(), State: state.String(), Participants: ids})
}

// firstSpeaker asks for the opening answer, retrying on top of the provider's
// own retries. Configuration failures and cancellation end the loop early.
func (o *Orchestrator) firstSpeaker(ctx context.Context, d *Discussion, b bound, log *slog.Logger) (conversation.Message, error) {
	history := o.prompts.Open(d.conv.Question())
	plog := log.With(slogx.Participant(b.ID, b.Role, b.Provider))

	var (
		lastErr error
		reason  string
	)
	for attempt := 1; attempt <= o.firstSpeakerAttempts; attempt++ {
		text, err := b.gen.GenerateResponse(ctx, history, b.Instructions)
		if err == nil && strings.TrimSpace(text) != "" {
			return conversation.NewAssistantMessage(b.Participant, text, conversation.Metadata{
				ModelID:     b.gen.Model(),
				Stage:       StateStage1.Stage(),
				Attempts:    attempt,
				RetryReason: reason,
			}), nil
		}
		if err == nil {
			err = provider.ErrEmptyResponse
		}
		lastErr = err
		reason = err.Error()

		if provider.IsConfigError(err) || ctx.Err() != nil {
			break
		}
		plog.WarnContext(ctx, "first speaker attempt failed",
			slogx.Attempt(attempt, o.firstSpeakerAttempts),
			slogx.Error(err),
		)
		o.publish(ctx, d.conv, events.FirstSpeakerRetry{
			Attempt:     attempt,
			MaxAttempts: o.firstSpeakerAttempts,
			Reason:      reason,
		})
		if attempt == o.firstSpeakerAttempts {
			break
		}
		if err := o.sleep(ctx, o.firstSpeakerDelay); err != nil {
			lastErr = errors.Join(err, lastErr)
			break
		}
	}
	return conversation.Message{}, fmt.Errorf("%w: %s: %w", ErrFirstSpeakerFailed, b.Participant, lastErr)
}

// respond runs every middle participant concurrently and returns the
// successful answers in declared order.
func (o *Orchestrator) respond(ctx context.Context, question string, prior []conversation.Message, middle []bound, log *slog.Logger) []conversation.Message {
	results := make([]*conversation.Message, len(middle))

	var wg sync.WaitGroup
	for i, b := range middle {
		wg.Add(1)
		go func() {
			defer wg.Done()
			history := o.prompts.Respond(question, prior, b.Participant)
			text, err := b.gen.GenerateResponse(ctx, history, b.Instructions)
			if err == nil && strings.TrimSpace(text) == "" {
				err = provider.ErrEmptyResponse
			}
			if err != nil {
				log.WarnContext(ctx, "participant dropped from round",
					slogx.Participant(b.ID, b.Role, b.Provider),
					slogx.Error(err),
				)
				return
			}
			msg := conversation.NewAssistantMessage(b.Participant, text, conversation.Metadata{
				ModelID: b.gen.Model(),
				Stage:   StateStage2.Stage(),
			})
			results[i] = &msg
		}()
	}
	wg.Wait()

	out := make([]conversation.Message, 0, len(results))
	for _, msg := range results {
		if msg != nil {
			out = append(out, *msg)
		}
	}
	return out
}

func (o *Orchestrator) synthesize(ctx context.Context, conv *conversation.Conversation, b bound, log *slog.Logger) (conversation.Message, bool) {
	history := o.prompts.Synthesize(conv.Question(), conv.AssistantMessages(), b.Participant)
	text, err := b.gen.GenerateResponse(ctx, history, b.Instructions)
	if err == nil && strings.TrimSpace(text) == "" {
		err = provider.ErrEmptyResponse
	}
	if err != nil {
		log.ErrorContext(ctx, "synthesis failed",
			slogx.Participant(b.ID, b.Role, b.Provider),
			slogx.Error(err),
		)
		return conversation.Message{}, false
	}
	return conversation.NewAssistantMessage(b.Participant, text, conversation.Metadata{
		ModelID: b.gen.Model(),
		Stage:   StateStage3.Stage(),
	}), true
}

// record appends msg to the transcript, persists it and announces it.
// Persistence failures are logged and never undo the append.
func (o *Orchestrator) record(ctx context.Context, conv *conversation.Conversation, msg conversation.Message, log *slog.Logger) {
	conv.Append(msg)
	if err := o.store.SaveMessage(ctx, msg, conv.ID); err != nil {
		log.ErrorContext(ctx, "failed to persist message", slog.String("message", msg.ID), slogx.Error(err))
	}
	o.publish(ctx, conv, events.MessageReceived{Message: msg})
}

func (o *Orchestrator) finish(ctx context.Context, conv *conversation.Conversation, status conversation.Status, log *slog.Logger) {
	conv.SetStatus(status)
	if err := o.store.UpdateStatus(ctx, conv.ID, conv.OwnerID, status); err != nil {
		log.ErrorContext(ctx, "failed to persist status", slog.String("status", string(status)), slogx.Error(err))
	}
}

func (o *Orchestrator) publish(ctx context.Context, conv *conversation.Conversation, evt events.Event) {
	env := events.NewEnvelope(conv.OwnerID, conv.ID)
	switch e := evt.(type) {
	case events.DiscussionStarted:
		e.Envelope = env
		evt = e
	case events.RoundStarted:
		e.Envelope = env
		evt = e
	case events.MessageReceived:
		e.Envelope = env
		evt = e
	case events.FirstSpeakerRetry:
		e.Envelope = env
		evt = e
	case events.DiscussionCompleted:
		e.Envelope = env
		evt = e
	case events.DiscussionError:
		e.Envelope = env
		evt = e
	}
	o.sink.Publish(ctx, evt)
}
