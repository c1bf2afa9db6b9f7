package symposium_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casualjim/symposium"
	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/provider"
	"github.com/casualjim/symposium/provider/openai"
	"github.com/casualjim/symposium/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openingCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1736000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "Remote work helps focus."}
  }]
}`

// flakyOpenAI serves 503 for the first failures requests and a completion
// afterwards.
func flakyOpenAI(t *testing.T, failures int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		if hits.Add(1) <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error","code":null,"param":null}}`)
			return
		}
		_, _ = io.WriteString(w, openingCompletion)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestStart_FirstSpeakerThroughResilientProvider(t *testing.T) {
	// 3 provider attempts inside each of 3 first speaker attempts
	testCases := []struct {
		name      string
		failures  int32
		completed bool
		attempts  int
	}{
		{name: "recovers within the combined budget", failures: 6, completed: true, attempts: 3},
		{name: "fails once the combined budget is spent", failures: 9},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, hits := flakyOpenAI(t, tc.failures)

			policy := provider.DefaultRetryPolicy()
			policy.Attempts = 3
			opener := openai.NewGenerator(provider.Config{
				Name:    "openai",
				BaseURL: srv.URL + "/v1/",
				Model:   "gpt-4o-mini",
				Format:  provider.FormatOpenAI,
				Enabled: true,
				APIKey:  "test-key",
			},
				provider.WithPolicy(policy),
				provider.WithStreaming(false),
				provider.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
			)
			critic := &fakeGenerator{name: "anthropic", respond: answers("Critique.")}
			h := newHarness(t, resolver{"openai": opener, "anthropic": critic})

			conv, err := h.orch.Start(context.Background(), request(question,
				spec(conversation.RoleFirstSpeaker, "openai"),
				spec(role.Critic, "anthropic"),
			))

			if !tc.completed {
				require.ErrorIs(t, err, symposium.ErrFirstSpeakerFailed)
				var exhausted *provider.ExhaustedError
				require.ErrorAs(t, err, &exhausted)
				assert.Equal(t, 3, exhausted.Attempts)
				assert.Equal(t, int32(9), hits.Load())
				assert.Zero(t, critic.Calls())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, conversation.StatusCompleted, conv.Status)
			assert.Equal(t, tc.failures+1, hits.Load())

			opening := conv.AssistantMessages()[0]
			assert.Equal(t, "Remote work helps focus.", opening.Content)
			assert.Equal(t, tc.attempts, opening.Metadata.Attempts)
			assert.Equal(t, "gpt-4o-mini", opening.Metadata.ModelID)
			assert.Equal(t, 1, critic.Calls())
		})
	}
}
