package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	name  string
	model string
}

func (s *stubGenerator) Name() string  { return s.name }
func (s *stubGenerator) Model() string { return s.model }
func (s *stubGenerator) GenerateResponse(context.Context, []conversation.Message, string) (string, error) {
	return "stub", nil
}

func testConfigs() []provider.Config {
	return []provider.Config{
		{Name: "openai", Format: provider.FormatOpenAI, Model: "gpt-4o-mini", Enabled: true, APIKey: "k1"},
		{Name: "anthropic", Format: provider.FormatAnthropic, Model: "claude", Enabled: true, APIKey: "k2"},
		{Name: "google", Format: provider.FormatGoogle, Model: "gemini", Enabled: false, APIKey: "k3"},
		{Name: "grok", Model: "grok-2", Enabled: true},
		{Name: "local", Format: "fake", Model: "tiny", Enabled: true, APIKey: "k5"},
	}
}

func TestRegistry_ListEnabled(t *testing.T) {
	r := New(testConfigs(), provider.DefaultRetryPolicy())
	assert.Equal(t, []string{"openai", "anthropic"}, r.ListEnabled())
	for _, name := range r.ListEnabled() {
		_, err := r.Resolve(name)
		assert.NoError(t, err, name)
	}
	_, err := r.Resolve("local")
	require.Error(t, err)

	withFake := New(testConfigs(), provider.DefaultRetryPolicy(),
		WithFactory("fake", func(cfg provider.Config, _ ...provider.WrapOption) provider.Generator {
			return &stubGenerator{name: cfg.Name, model: cfg.Model}
		}),
	)
	assert.Equal(t, []string{"openai", "anthropic", "local"}, withFake.ListEnabled())
}

func TestRegistry_Configs(t *testing.T) {
	r := New(testConfigs(), provider.DefaultRetryPolicy())
	cfgs := r.Configs()
	require.Len(t, cfgs, 5)
	assert.Equal(t, "openai", cfgs[0].Name)
	assert.Equal(t, provider.FormatOpenAI, cfgs[3].Format, "missing format defaults to openai-style")
}

func TestRegistry_Resolve(t *testing.T) {
	r := New(testConfigs(), provider.DefaultRetryPolicy())

	gen, err := r.Resolve("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", gen.Name())
	assert.Equal(t, "gpt-4o-mini", gen.Model())

	gen, err = r.Resolve("anthropic")
	require.NoError(t, err)
	assert.Equal(t, "claude", gen.Model())
}

func TestRegistry_ResolveErrors(t *testing.T) {
	r := New(testConfigs(), provider.DefaultRetryPolicy())

	tests := []struct {
		name   string
		reason string
	}{
		{"mistral", "unknown provider"},
		{"google", "provider is disabled"},
		{"grok", "missing api key"},
		{"local", "unknown provider format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.name)
			require.Error(t, err)
			var cfgErr *provider.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.name, cfgErr.Provider)
			assert.Contains(t, cfgErr.Reason, tt.reason)
			assert.False(t, provider.DefaultRetryPolicy().IsRetryable(err))
		})
	}
}

func TestRegistry_MemoizesPerName(t *testing.T) {
	var built atomic.Int32
	r := New(testConfigs(), provider.RetryPolicy{Attempts: 2}, WithFactory("fake", func(cfg provider.Config, options ...provider.WrapOption) provider.Generator {
		built.Add(1)
		assert.Len(t, options, 2)
		return &stubGenerator{name: cfg.Name, model: cfg.Model}
	}), WithWrapOptions(provider.WithStreaming(false)))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gen, err := r.Resolve("local")
			assert.NoError(t, err)
			assert.Equal(t, "tiny", gen.Model())
		}()
	}
	wg.Wait()

	first, err := r.Resolve("local")
	require.NoError(t, err)
	second, err := r.Resolve("local")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.GreaterOrEqual(t, built.Load(), int32(1))
}

func TestNew_PanicsOnNilFactory(t *testing.T) {
	assert.Panics(t, func() {
		New(nil, provider.DefaultRetryPolicy(), WithFactory("x", nil))
	})
}
