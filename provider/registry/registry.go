// Package registry resolves provider names to ready-to-use generators.
//
// Generators are built lazily by a factory selected by the provider's wire
// format and memoized per name for the life of the registry.
package registry

import (
	"fmt"
	"log/slog"

	memotable "github.com/casualjim/symposium/internal/registry"
	"github.com/casualjim/symposium/pkg/slogx"
	"github.com/casualjim/symposium/provider"
	"github.com/casualjim/symposium/provider/anthropic"
	"github.com/casualjim/symposium/provider/google"
	"github.com/casualjim/symposium/provider/openai"
	"github.com/fogfish/opts"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Factory builds the generator for one provider configuration.
type Factory func(cfg provider.Config, options ...provider.WrapOption) provider.Generator

// Resolver is the read side of the registry used by the orchestrator.
type Resolver interface {
	Resolve(name string) (provider.Generator, error)
}

// Registry maps provider names to their configuration and memoizes the
// generators built for them. It is safe for concurrent use.
type Registry struct {
	configs   *orderedmap.OrderedMap[string, provider.Config]
	factories map[provider.Format]Factory
	policy    provider.RetryPolicy
	wrap      []provider.WrapOption
	memo      memotable.Registry[provider.Generator]
}

var _ Resolver = (*Registry)(nil)

// WithFactory registers (or replaces) the factory for a wire format.
func WithFactory(format provider.Format, fn Factory) opts.Option[Registry] {
	return opts.Type[Registry](func(r *Registry) error {
		if fn == nil {
			return fmt.Errorf("factory for %q is nil", format)
		}
		r.factories[format] = fn
		return nil
	})
}

// WithWrapOptions passes extra options to every resilience wrapper built.
func WithWrapOptions(options ...provider.WrapOption) opts.Option[Registry] {
	return opts.Type[Registry](func(r *Registry) error {
		r.wrap = append(r.wrap, options...)
		return nil
	})
}

// New creates a registry over cfgs. Later entries with a duplicate name
// replace earlier ones but keep the original position.
func New(cfgs []provider.Config, policy provider.RetryPolicy, options ...opts.Option[Registry]) *Registry {
	r := &Registry{
		configs: orderedmap.New[string, provider.Config](),
		factories: map[provider.Format]Factory{
			provider.FormatOpenAI:    openai.NewGenerator,
			provider.FormatAnthropic: anthropic.NewGenerator,
			provider.FormatGoogle:    google.NewGenerator,
		},
		policy: policy,
		memo:   memotable.New[provider.Generator](),
	}
	for _, cfg := range cfgs {
		if cfg.Format == "" {
			cfg.Format = provider.FormatOpenAI
		}
		r.configs.Set(cfg.Name, cfg)
	}
	if err := opts.Apply(r, options); err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the memoized generator for name. Unknown, disabled and
// credential-less providers yield a *provider.ConfigError.
func (r *Registry) Resolve(name string) (provider.Generator, error) {
	cfg, ok := r.configs.Get(name)
	if !ok {
		return nil, &provider.ConfigError{Provider: name, Reason: "unknown provider"}
	}
	if !cfg.Enabled {
		return nil, &provider.ConfigError{Provider: name, Reason: "provider is disabled"}
	}
	if cfg.APIKey == "" {
		return nil, &provider.ConfigError{Provider: name, Reason: "missing api key"}
	}
	factory, ok := r.factories[cfg.Format]
	if !ok {
		return nil, &provider.ConfigError{
			Provider: name,
			Reason:   fmt.Errorf("%w %q", provider.ErrUnknownFormat, cfg.Format).Error(),
		}
	}

	gen, loaded := r.memo.GetOrAdd(name, func() provider.Generator {
		options := make([]provider.WrapOption, 0, len(r.wrap)+1)
		options = append(options, provider.WithPolicy(r.policy))
		options = append(options, r.wrap...)
		return factory(cfg, options...)
	})
	if !loaded {
		slog.Debug("provider initialized",
			slogx.LoggerName("registry"),
			slogx.Provider(name),
			slog.String("format", string(cfg.Format)),
			slog.String("model", gen.Model()),
		)
	}
	return gen, nil
}

// ListEnabled returns, in configuration order, the names of providers that
// Resolve can build: enabled, with a credential and a known format.
func (r *Registry) ListEnabled() []string {
	var names []string
	for pair := r.configs.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := r.factories[pair.Value.Format]; ok && pair.Value.Usable() {
			names = append(names, pair.Key)
		}
	}
	return names
}

// Configs returns all configurations in order.
func (r *Registry) Configs() []provider.Config {
	out := make([]provider.Config, 0, r.configs.Len())
	for pair := r.configs.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}
