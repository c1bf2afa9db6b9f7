package openai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"slices"

	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultTemperature is the sampling temperature sent with every request.
const DefaultTemperature = 0.7

type (
	Payload  = openai.ChatCompletionNewParams
	Response = *openai.ChatCompletion
	Fragment = openai.ChatCompletionChunk
)

var _ provider.Adapter[Payload, Response, Fragment] = (*Adapter)(nil)

// Adapter talks to a Chat Completions endpoint.
type Adapter struct {
	name   string
	model  string
	client openai.Client
}

// New creates an adapter for cfg. The SDK's internal retries are disabled.
func New(cfg provider.Config, options ...option.RequestOption) *Adapter {
	model := cfg.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	name := cfg.Name
	if name == "" {
		name = string(provider.FormatOpenAI)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, options...)

	return &Adapter{
		name:   name,
		model:  model,
		client: openai.NewClient(reqOpts...),
	}
}

// NewGenerator wraps a new adapter with the resilience layer.
func NewGenerator(cfg provider.Config, options ...provider.WrapOption) provider.Generator {
	adapter := New(cfg)
	return provider.Wrap[Payload, Response, Fragment](adapter.name, adapter, options...)
}

func (a *Adapter) Model() string {
	return a.model
}

func (a *Adapter) FormatMessages(history []conversation.Message) (Payload, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case conversation.RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Content))
		case conversation.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		case conversation.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		default:
			return Payload{}, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	if len(msgs) == 0 {
		return Payload{}, errors.New("history is empty")
	}
	return Payload{
		Messages:    msgs,
		Model:       a.model,
		Temperature: openai.Float(DefaultTemperature),
	}, nil
}

func (a *Adapter) withInstructions(payload Payload, instructions string) Payload {
	if instructions == "" {
		return payload
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(payload.Messages)+1)
	msgs = append(msgs, openai.SystemMessage(instructions))
	payload.Messages = append(msgs, slices.Clone(payload.Messages)...)
	return payload
}

func (a *Adapter) MakeCall(ctx context.Context, payload Payload, instructions string, streaming bool) (provider.Call[Response, Fragment], error) {
	params := a.withInstructions(payload, instructions)

	if !streaming {
		chat, err := a.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return provider.Call[Response, Fragment]{}, a.wrapError(ctx, err)
		}
		return provider.Buffered[Response, Fragment](chat), nil
	}

	strm := a.client.Chat.Completions.NewStreaming(ctx, params)
	fragments := func(yield func(Fragment, error) bool) {
		defer strm.Close()
		for strm.Next() {
			if !yield(strm.Current(), nil) {
				return
			}
		}
		if err := strm.Err(); err != nil {
			yield(Fragment{}, a.wrapError(ctx, err))
		}
	}
	return provider.Streamed[Response](iter.Seq2[Fragment, error](fragments)), nil
}

func (a *Adapter) ParseResponse(raw Response) (string, error) {
	if raw == nil || len(raw.Choices) == 0 {
		return "", &provider.DecodeError{Provider: a.name, Reason: "response has no choices"}
	}
	return raw.Choices[0].Message.Content, nil
}

func (a *Adapter) ParseStreamFragment(chunk Fragment) (string, bool) {
	if len(chunk.Choices) == 0 {
		return "", false
	}
	content := chunk.Choices[0].Delta.Content
	return content, content != ""
}

func (a *Adapter) wrapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &provider.StatusError{Provider: a.name, Code: apiErr.StatusCode, Body: apiErr.Message}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &provider.TransportError{Provider: a.name, Err: err}
	}
	return fmt.Errorf("%s: %w", a.name, err)
}
