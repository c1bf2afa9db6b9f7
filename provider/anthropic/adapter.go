package anthropic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/provider"
	"github.com/fogfish/opts"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com/v1"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultMaxTokens = 4096
	APIVersion       = "2023-06-01"
)

var _ provider.Adapter[[]byte, []byte, []byte] = (*Adapter)(nil)

// Adapter talks to the Anthropic Messages API.
type Adapter struct {
	name        string
	baseURL     string
	model       string
	apiKey      string
	maxTokens   int
	temperature float64
	client      *http.Client
}

var (
	WithHTTPClient  = opts.ForName[Adapter, *http.Client]("client")
	WithMaxTokens   = opts.ForName[Adapter, int]("maxTokens")
	WithTemperature = opts.ForName[Adapter, float64]("temperature")
)

// New creates an adapter for cfg.
func New(cfg provider.Config, options ...opts.Option[Adapter]) *Adapter {
	a := &Adapter{
		name:        cfg.Name,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		maxTokens:   DefaultMaxTokens,
		temperature: 0.7,
		client:      http.DefaultClient,
	}
	if a.name == "" {
		a.name = string(provider.FormatAnthropic)
	}
	if a.baseURL == "" {
		a.baseURL = DefaultBaseURL
	}
	if a.model == "" {
		a.model = DefaultModel
	}
	if err := opts.Apply(a, options); err != nil {
		panic(err)
	}
	return a
}

// NewGenerator wraps a new adapter with the resilience layer.
func NewGenerator(cfg provider.Config, options ...provider.WrapOption) provider.Generator {
	adapter := New(cfg)
	return provider.Wrap[[]byte, []byte, []byte](adapter.name, adapter, options...)
}

func (a *Adapter) Model() string {
	return a.model
}

// FormatMessages maps the history onto alternating user/assistant turns.
// Consecutive messages with the same role are merged and system messages
// are lifted into the top-level system prompt.
func (a *Adapter) FormatMessages(history []conversation.Message) ([]byte, error) {
	body := []byte(`{"messages":[]}`)

	var (
		system []string
		role   string
		turn   []string
		turns  int
		setErr error
	)
	flush := func() {
		if len(turn) == 0 || setErr != nil {
			return
		}
		body, setErr = sjson.SetBytes(body, "messages.-1", map[string]string{
			"role":    role,
			"content": strings.Join(turn, "\n\n"),
		})
		turns++
		turn = turn[:0]
	}

	for _, m := range history {
		var next string
		switch m.Role {
		case conversation.RoleSystem:
			system = append(system, m.Content)
			continue
		case conversation.RoleUser:
			next = "user"
		case conversation.RoleAssistant:
			next = "assistant"
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
		if next != role {
			flush()
			role = next
		}
		turn = append(turn, m.Content)
	}
	flush()
	if setErr != nil {
		return nil, setErr
	}
	if turns == 0 {
		return nil, errors.New("history has no user or assistant messages")
	}

	var err error
	if body, err = sjson.SetBytes(body, "model", a.model); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "max_tokens", a.maxTokens); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "temperature", a.temperature); err != nil {
		return nil, err
	}
	if len(system) > 0 {
		if body, err = sjson.SetBytes(body, "system", strings.Join(system, "\n\n")); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func (a *Adapter) MakeCall(ctx context.Context, payload []byte, instructions string, streaming bool) (provider.Call[[]byte, []byte], error) {
	body := bytes.Clone(payload)
	var err error
	if instructions != "" {
		system := instructions
		if existing := gjson.GetBytes(body, "system").String(); existing != "" {
			system = instructions + "\n\n" + existing
		}
		if body, err = sjson.SetBytes(body, "system", system); err != nil {
			return provider.Call[[]byte, []byte]{}, err
		}
	}
	if body, err = sjson.SetBytes(body, "stream", streaming); err != nil {
		return provider.Call[[]byte, []byte]{}, err
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": APIVersion,
	}
	if streaming {
		headers["Accept"] = "text/event-stream"
	}
	resp, err := provider.PostJSON(ctx, a.client, a.name, a.baseURL+"/messages", headers, body)
	if err != nil {
		return provider.Call[[]byte, []byte]{}, err
	}

	if !streaming {
		raw, err := provider.ReadBody(a.name, resp)
		if err != nil {
			return provider.Call[[]byte, []byte]{}, err
		}
		return provider.Buffered[[]byte, []byte](raw), nil
	}

	events := provider.ServerSentEvents(a.name, resp.Body)
	var fragments iter.Seq2[[]byte, error] = func(yield func([]byte, error) bool) {
		for data, err := range events {
			if err != nil {
				yield(nil, err)
				return
			}
			if gjson.GetBytes(data, "type").String() == "error" {
				yield(nil, a.streamError(data))
				return
			}
			if !yield(data, nil) {
				return
			}
		}
	}
	return provider.Streamed[[]byte](fragments), nil
}

// streamError maps an in-band error event onto the status it would have had
// as a plain HTTP answer.
func (a *Adapter) streamError(data []byte) error {
	kind := gjson.GetBytes(data, "error.type").String()
	msg := gjson.GetBytes(data, "error.message").String()
	code := http.StatusBadRequest
	switch kind {
	case "overloaded_error":
		code = http.StatusServiceUnavailable
	case "rate_limit_error":
		code = http.StatusTooManyRequests
	case "api_error":
		code = http.StatusInternalServerError
	}
	return &provider.StatusError{Provider: a.name, Code: code, Body: kind + ": " + msg}
}

func (a *Adapter) ParseResponse(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", &provider.DecodeError{Provider: a.name, Reason: "response is not valid json", Raw: string(raw)}
	}
	content := gjson.GetBytes(raw, "content")
	if !content.IsArray() {
		return "", &provider.DecodeError{Provider: a.name, Reason: "response has no content blocks", Raw: string(raw)}
	}
	var sb strings.Builder
	for _, block := range content.Array() {
		if block.Get("type").String() == "text" {
			sb.WriteString(block.Get("text").String())
		}
	}
	return sb.String(), nil
}

func (a *Adapter) ParseStreamFragment(chunk []byte) (string, bool) {
	evt := gjson.ParseBytes(chunk)
	if evt.Get("type").String() != "content_block_delta" || evt.Get("delta.type").String() != "text_delta" {
		return "", false
	}
	text := evt.Get("delta.text").String()
	return text, text != ""
}
