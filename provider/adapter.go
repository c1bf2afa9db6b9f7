package provider

import (
	"context"
	"iter"

	"github.com/casualjim/symposium/conversation"
)

// Format names a vendor wire-format family.
type Format string

const (
	FormatOpenAI    Format = "openai"
	FormatAnthropic Format = "anthropic"
	FormatGoogle    Format = "google"
)

// Config is the read-only configuration of one provider backend.
type Config struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	Format  Format `json:"format"`
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"-"`
}

// Usable reports whether the provider is enabled and has a credential.
func (c Config) Usable() bool {
	return c.Enabled && c.APIKey != ""
}

// Adapter translates an abstract message history into one vendor call and
// the vendor's answer back into text.
//
// P is the vendor-shaped request payload, R the buffered response and C one
// raw stream fragment.
type Adapter[P, R, C any] interface {
	// Model returns the model identifier requests are sent to.
	Model() string

	// FormatMessages converts the history into the vendor payload.
	FormatMessages(history []conversation.Message) (P, error)

	// MakeCall performs exactly one outbound request. When streaming is true
	// the returned Call carries Fragments, otherwise Response.
	// Adapters that cannot stream return ErrStreamingUnsupported.
	MakeCall(ctx context.Context, payload P, instructions string, streaming bool) (Call[R, C], error)

	// ParseResponse extracts the answer text from a buffered response.
	ParseResponse(raw R) (string, error)

	// ParseStreamFragment extracts the text carried by one stream fragment.
	// The bool is false for fragments that carry no text (role markers, pings,
	// usage reports).
	ParseStreamFragment(chunk C) (string, bool)
}

// Call is the raw result of Adapter.MakeCall.
type Call[R, C any] struct {
	// Response is set for buffered calls.
	Response R
	// Fragments is set for streaming calls. Ranging over it to completion
	// releases the underlying connection.
	Fragments iter.Seq2[C, error]
}

// Buffered wraps a complete response.
func Buffered[R, C any](response R) Call[R, C] {
	return Call[R, C]{Response: response}
}

// Streamed wraps a fragment sequence.
func Streamed[R, C any](fragments iter.Seq2[C, error]) Call[R, C] {
	return Call[R, C]{Fragments: fragments}
}

// IsStream reports whether the call carries fragments.
func (c Call[R, C]) IsStream() bool {
	return c.Fragments != nil
}
