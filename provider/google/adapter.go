package google

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"

	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/provider"
	"github.com/fogfish/opts"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"
)

var _ provider.Adapter[[]byte, []byte, []byte] = (*Adapter)(nil)

// Adapter talks to the Gemini generateContent API.
type Adapter struct {
	name            string
	baseURL         string
	model           string
	apiKey          string
	temperature     float64
	maxOutputTokens int
	client          *http.Client
}

var (
	WithHTTPClient      = opts.ForName[Adapter, *http.Client]("client")
	WithTemperature     = opts.ForName[Adapter, float64]("temperature")
	WithMaxOutputTokens = opts.ForName[Adapter, int]("maxOutputTokens")
)

// New creates an adapter for cfg.
func New(cfg provider.Config, options ...opts.Option[Adapter]) *Adapter {
	a := &Adapter{
		name:        cfg.Name,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: 0.7,
		client:      http.DefaultClient,
	}
	if a.name == "" {
		a.name = string(provider.FormatGoogle)
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

func (a *Adapter) FormatMessages(history []conversation.Message) ([]byte, error) {
	body := []byte(`{"contents":[]}`)
	var (
		system   []string
		turns    int
		lastRole string
		err      error
	)
	for _, m := range history {
		var role string
		switch m.Role {
		case conversation.RoleSystem:
			system = append(system, m.Content)
			continue
		case conversation.RoleUser:
			role = "user"
		case conversation.RoleAssistant:
			role = "model"
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}

		part := map[string]string{"text": m.Content}
		if role == lastRole {
			// same speaker side twice in a row: extra part on the previous turn
			path := fmt.Sprintf("contents.%d.parts.-1", turns-1)
			if body, err = sjson.SetBytes(body, path, part); err != nil {
				return nil, err
			}
			continue
		}
		if body, err = sjson.SetBytes(body, "contents.-1", map[string]any{
			"role":  role,
			"parts": []map[string]string{part},
		}); err != nil {
			return nil, err
		}
		lastRole = role
		turns++
	}
	if turns == 0 {
		return nil, errors.New("history has no user or model turns")
	}

	if body, err = sjson.SetBytes(body, "generationConfig.temperature", a.temperature); err != nil {
		return nil, err
	}
	if a.maxOutputTokens > 0 {
		if body, err = sjson.SetBytes(body, "generationConfig.maxOutputTokens", a.maxOutputTokens); err != nil {
			return nil, err
		}
	}
	if len(system) > 0 {
		if body, err = sjson.SetBytes(body, "systemInstruction.parts.0.text", strings.Join(system, "\n\n")); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func (a *Adapter) endpoint(streaming bool) string {
	model := url.PathEscape(a.model)
	if streaming {
		return a.baseURL + "/models/" + model + ":streamGenerateContent?alt=sse"
	}
	return a.baseURL + "/models/" + model + ":generateContent"
}

func (a *Adapter) MakeCall(ctx context.Context, payload []byte, instructions string, streaming bool) (provider.Call[[]byte, []byte], error) {
	body := bytes.Clone(payload)
	if instructions != "" {
		system := instructions
		if existing := gjson.GetBytes(body, "systemInstruction.parts.0.text").String(); existing != "" {
			system = instructions + "\n\n" + existing
		}
		var err error
		if body, err = sjson.SetBytes(body, "systemInstruction.parts.0.text", system); err != nil {
			return provider.Call[[]byte, []byte]{}, err
		}
	}

	headers := map[string]string{"x-goog-api-key": a.apiKey}
	resp, err := provider.PostJSON(ctx, a.client, a.name, a.endpoint(streaming), headers, body)
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
			if errMsg := gjson.GetBytes(data, "error"); errMsg.Exists() {
				yield(nil, &provider.StatusError{
					Provider: a.name,
					Code:     int(errMsg.Get("code").Int()),
					Body:     errMsg.Get("message").String(),
				})
				return
			}
			if !yield(data, nil) {
				return
			}
		}
	}
	return provider.Streamed[[]byte](fragments), nil
}

func candidateText(res gjson.Result) string {
	var sb strings.Builder
	for _, part := range res.Get("candidates.0.content.parts").Array() {
		if part.Get("thought").Bool() {
			continue
		}
		sb.WriteString(part.Get("text").String())
	}
	return sb.String()
}

func (a *Adapter) ParseResponse(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", &provider.DecodeError{Provider: a.name, Reason: "response is not valid json", Raw: string(raw)}
	}
	res := gjson.ParseBytes(raw)
	if !res.Get("candidates.0").Exists() {
		reason := "response has no candidates"
		if block := res.Get("promptFeedback.blockReason").String(); block != "" {
			reason = "prompt blocked: " + block
		}
		return "", &provider.DecodeError{Provider: a.name, Reason: reason, Raw: string(raw)}
	}
	return candidateText(res), nil
}

func (a *Adapter) ParseStreamFragment(chunk []byte) (string, bool) {
	text := candidateText(gjson.ParseBytes(chunk))
	return text, text != ""
}
