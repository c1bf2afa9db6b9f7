package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const completionJSON = `{
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

func chunkJSON(content string) string {
	return fmt.Sprintf(`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1736000000,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, content)
}

type capture struct {
	body atomic.Value
	hits atomic.Int32
}

func (c *capture) last() gjson.Result {
	b, _ := c.body.Load().(string)
	return gjson.Parse(b)
}

func newServer(t *testing.T, c *capture, handler func(w http.ResponseWriter, stream bool)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		c.body.Store(string(b))
		c.hits.Add(1)
		handler(w, gjson.GetBytes(b, "stream").Bool())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(url string) provider.Config {
	return provider.Config{
		Name:    "openai",
		BaseURL: url + "/v1/",
		Model:   "gpt-4o-mini",
		Format:  provider.FormatOpenAI,
		Enabled: true,
		APIKey:  "test-key",
	}
}

func testHistory() []conversation.Message {
	first := conversation.Participant{ID: "p1", Role: conversation.RoleFirstSpeaker, Name: "First Speaker", Provider: "openai"}
	return []conversation.Message{
		conversation.NewUserMessage("Is remote work more productive?"),
		conversation.NewAssistantMessage(first, "It depends on the team.", conversation.Metadata{}),
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New(provider.Config{APIKey: "k"})
	assert.Equal(t, "gpt-4o-mini", a.Model())
	assert.Equal(t, "openai", a.name)
}

func TestAdapter_FormatMessages(t *testing.T) {
	a := New(testConfig("http://localhost"))

	payload, err := a.FormatMessages(testHistory())
	require.NoError(t, err)
	require.Len(t, payload.Messages, 2)
	assert.NotNil(t, payload.Messages[0].OfUser)
	assert.NotNil(t, payload.Messages[1].OfAssistant)
	assert.Equal(t, "gpt-4o-mini", payload.Model)

	_, err = a.FormatMessages(nil)
	require.Error(t, err)

	_, err = a.FormatMessages([]conversation.Message{{Role: "tool", Content: "x"}})
	require.Error(t, err)
}

func TestAdapter_BufferedCall(t *testing.T) {
	c := &capture{}
	srv := newServer(t, c, func(w http.ResponseWriter, _ bool) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionJSON)
	})
	a := New(testConfig(srv.URL))

	payload, err := a.FormatMessages(testHistory())
	require.NoError(t, err)

	call, err := a.MakeCall(context.Background(), payload, "You are the critic.", false)
	require.NoError(t, err)
	assert.False(t, call.IsStream())

	text, err := a.ParseResponse(call.Response)
	require.NoError(t, err)
	assert.Equal(t, "Remote work helps focus.", text)

	req := c.last()
	assert.Equal(t, "gpt-4o-mini", req.Get("model").String())
	assert.Equal(t, "system", req.Get("messages.0.role").String())
	assert.Equal(t, "You are the critic.", req.Get("messages.0.content").String())
	assert.Equal(t, "user", req.Get("messages.1.role").String())
	assert.Equal(t, "assistant", req.Get("messages.2.role").String())

	assert.Len(t, payload.Messages, 2, "instructions must not leak into the shared payload")
}

func TestAdapter_StreamingCall(t *testing.T) {
	c := &capture{}
	srv := newServer(t, c, func(w http.ResponseWriter, stream bool) {
		assert.True(t, stream)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Remote ", "work ", "helps."} {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", chunkJSON(part))
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})
	a := New(testConfig(srv.URL))

	payload, err := a.FormatMessages(testHistory())
	require.NoError(t, err)
	call, err := a.MakeCall(context.Background(), payload, "", true)
	require.NoError(t, err)
	require.True(t, call.IsStream())

	var sb strings.Builder
	for chunk, err := range call.Fragments {
		require.NoError(t, err)
		if text, ok := a.ParseStreamFragment(chunk); ok {
			sb.WriteString(text)
		}
	}
	assert.Equal(t, "Remote work helps.", sb.String())
}

func TestAdapter_StatusErrors(t *testing.T) {
	c := &capture{}
	srv := newServer(t, c, func(w http.ResponseWriter, _ bool) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"invalid api key","type":"invalid_request_error","code":"invalid_api_key","param":null}}`)
	})
	a := New(testConfig(srv.URL))
	payload, err := a.FormatMessages(testHistory())
	require.NoError(t, err)

	_, err = a.MakeCall(context.Background(), payload, "", false)
	require.Error(t, err)

	var statusErr *provider.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Equal(t, int32(1), c.hits.Load(), "sdk retries must be disabled")
}

func TestAdapter_ParseResponse_NoChoices(t *testing.T) {
	a := New(testConfig("http://localhost"))

	_, err := a.ParseResponse(nil)
	var decodeErr *provider.DecodeError
	require.ErrorAs(t, err, &decodeErr)

	_, ok := a.ParseStreamFragment(Fragment{})
	assert.False(t, ok)
}

func TestNewGenerator_RecoversFromServerErrors(t *testing.T) {
	c := &capture{}
	srv := newServer(t, c, func(w http.ResponseWriter, stream bool) {
		if c.hits.Load() <= 2 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error","code":null,"param":null}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionJSON)
	})

	policy := provider.DefaultRetryPolicy()
	policy.Delay = time.Millisecond
	gen := NewGenerator(testConfig(srv.URL), provider.WithPolicy(policy), provider.WithStreaming(false))

	text, err := gen.GenerateResponse(context.Background(), testHistory(), "be brief")
	require.NoError(t, err)
	assert.Equal(t, "Remote work helps focus.", text)
	assert.Equal(t, int32(3), c.hits.Load())
	assert.Equal(t, "openai", gen.Name())
	assert.Equal(t, "gpt-4o-mini", gen.Model())
}
