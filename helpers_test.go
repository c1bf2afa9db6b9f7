package symposium_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/symposium"
	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/events"
	"github.com/casualjim/symposium/provider"
	"github.com/casualjim/symposium/store"
)

// respondFunc produces the answer for the n-th call (1-based).
type respondFunc func(ctx context.Context, n int, history []conversation.Message, instructions string) (string, error)

type fakeGenerator struct {
	name    string
	respond respondFunc

	mu        sync.Mutex
	calls     int
	histories [][]conversation.Message
}

func (f *fakeGenerator) Name() string  { return f.name }
func (f *fakeGenerator) Model() string { return f.name + "-model" }

func (f *fakeGenerator) GenerateResponse(ctx context.Context, history []conversation.Message, instructions string) (string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.histories = append(f.histories, history)
	f.mu.Unlock()
	return f.respond(ctx, n, history, instructions)
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeGenerator) LastHistory() []conversation.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.histories) == 0 {
		return nil
	}
	return f.histories[len(f.histories)-1]
}

func answers(text string) respondFunc {
	return func(context.Context, int, []conversation.Message, string) (string, error) {
		return text, nil
	}
}

func fails(err error) respondFunc {
	return func(context.Context, int, []conversation.Message, string) (string, error) {
		return "", err
	}
}

// failsFirst fails the first n calls and answers afterwards.
func failsFirst(n int, err error, text string) respondFunc {
	return func(_ context.Context, call int, _ []conversation.Message, _ string) (string, error) {
		if call <= n {
			return "", err
		}
		return text, nil
	}
}

func delayed(d time.Duration, text string) respondFunc {
	return func(ctx context.Context, _ int, _ []conversation.Message, _ string) (string, error) {
		select {
		case <-time.After(d):
			return text, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// resolver is a fixed name to generator table.
type resolver map[string]provider.Generator

func (r resolver) Resolve(name string) (provider.Generator, error) {
	gen, ok := r[name]
	if !ok {
		return nil, &provider.ConfigError{Provider: name, Reason: "unknown provider"}
	}
	return gen, nil
}

func newResolver(gens ...*fakeGenerator) resolver {
	r := make(resolver, len(gens))
	for _, g := range gens {
		r[g.name] = g
	}
	return r
}

// sleepRecorder records requested pauses without waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.pauses = append(s.pauses, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Pauses() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.pauses...)
}

type harness struct {
	orch     *symposium.Orchestrator
	store    *store.Memory
	recorder *events.Recorder
	sleeps   *sleepRecorder
}

func newHarness(t *testing.T, r resolver, options ...symposium.Option) *harness {
	t.Helper()
	h := &harness{
		store:    store.NewMemory(),
		recorder: events.NewRecorder(),
		sleeps:   &sleepRecorder{},
	}
	base := []symposium.Option{
		symposium.WithStore(h.store),
		symposium.WithSink(h.recorder),
		symposium.WithSleep(h.sleeps.Sleep),
	}
	h.orch = symposium.New(r, nil, append(base, options...)...)
	return h
}

func spec(roleID, providerName string) symposium.ParticipantSpec {
	return symposium.ParticipantSpec{Role: roleID, Provider: providerName}
}

func request(question string, specs ...symposium.ParticipantSpec) symposium.Request {
	return symposium.Request{OwnerID: "alice", Question: question, Participants: specs}
}

func assistantRoles(conv *conversation.Conversation) []string {
	var roles []string
	for _, m := range conv.AssistantMessages() {
		roles = append(roles, m.Metadata.ParticipantRole)
	}
	return roles
}

func assistantProviders(conv *conversation.Conversation) []string {
	var out []string
	for _, m := range conv.AssistantMessages() {
		out = append(out, m.Provider)
	}
	return out
}

var errUpstream = &provider.StatusError{Provider: "fake", Code: 503, Body: "service unavailable"}

func joinContents(msgs []conversation.Message) string {
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}

func mustNotBeCalled(t *testing.T) respondFunc {
	return func(context.Context, int, []conversation.Message, string) (string, error) {
		t.Error("generator must not be called")
		return "", errors.New("unexpected call")
	}
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return out
}
