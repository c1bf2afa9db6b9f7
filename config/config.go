// Package config reads the runtime configuration from the environment.
//
// A .env file in the working directory is loaded first when present; values
// already set in the process environment win. Every provider named in
// SYMPOSIUM_PROVIDERS (default "openai,anthropic,google") is described by
//
//	<NAME>_API_KEY
//	<NAME>_BASE_URL
//	<NAME>_MODEL
//	<NAME>_FORMAT   (openai, anthropic or google; defaults to the name when it is one of those)
//	<NAME>_ENABLED  (defaults to true)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/casualjim/symposium/provider"
	"github.com/joho/godotenv"
)

const (
	DefaultProviders            = "openai,anthropic,google"
	DefaultFirstSpeakerAttempts = 3
	DefaultFirstSpeakerDelay    = 3 * time.Second
	DefaultStagePacing          = 2 * time.Second
)

// Config is the process configuration. It is read once at startup.
type Config struct {
	Providers            []provider.Config
	Retry                provider.RetryPolicy
	FirstSpeakerAttempts int
	FirstSpeakerDelay    time.Duration
	StagePacing          time.Duration
	StoreDSN             string
	NATSURL              string
}

// Load reads files (".env" when none are given) into the environment and
// builds the configuration from it. Missing files are ignored. Malformed
// values are reported together.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	var p parser

	retry := provider.DefaultRetryPolicy()
	retry.Attempts = p.positive("RETRY_ATTEMPTS", retry.Attempts)
	retry.Delay = p.millis("RETRY_DELAY_MS", retry.Delay)
	retry.BackoffFactor = p.float("RETRY_BACKOFF_FACTOR", retry.BackoffFactor)
	retry.Timeout = p.millis("REQUEST_TIMEOUT_MS", retry.Timeout)
	if sigs := envList("RETRY_SIGNATURES"); len(sigs) > 0 {
		retry.Signatures = sigs
	}

	cfg := &Config{
		Retry:                retry,
		FirstSpeakerAttempts: p.positive("FIRST_SPEAKER_ATTEMPTS", DefaultFirstSpeakerAttempts),
		FirstSpeakerDelay:    p.millis("FIRST_SPEAKER_DELAY_MS", DefaultFirstSpeakerDelay),
		StagePacing:          p.millis("STAGE_PACING_MS", DefaultStagePacing),
		StoreDSN:             os.Getenv("STORE_DSN"),
		NATSURL:              os.Getenv("NATS_URL"),
	}

	names := envList("SYMPOSIUM_PROVIDERS")
	if len(names) == 0 {
		names = strings.Split(DefaultProviders, ",")
	}
	for _, name := range names {
		cfg.Providers = append(cfg.Providers, p.provider(name))
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Provider returns the configuration for name, if present.
func (c *Config) Provider(name string) (provider.Config, bool) {
	for _, pc := range c.Providers {
		if pc.Name == name {
			return pc, true
		}
	}
	return provider.Config{}, false
}

func envStrOrDefault(key, def string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parser collects every malformed value instead of stopping at the first.
type parser struct {
	errs []error
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("invalid %s=%q: %w", key, value, err))
}

func (p *parser) int(key string, def int) int {
	s := envStrOrDefault(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, s, err)
		return def
	}
	if v < 0 {
		p.fail(key, s, errors.New("must not be negative"))
		return def
	}
	return v
}

// positive is int for counts that need at least one.
func (p *parser) positive(key string, def int) int {
	s := envStrOrDefault(key, "")
	v := p.int(key, def)
	if s != "" && v == 0 {
		p.fail(key, s, errors.New("must be at least 1"))
		return def
	}
	return v
}

func (p *parser) float(key string, def float64) float64 {
	s := envStrOrDefault(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(key, s, err)
		return def
	}
	return v
}

func (p *parser) millis(key string, def time.Duration) time.Duration {
	ms := p.int(key, -1)
	if ms < 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func (p *parser) bool(key string, def bool) bool {
	s := envStrOrDefault(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(key, s, err)
		return def
	}
	return v
}

func (p *parser) provider(name string) provider.Config {
	prefix := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name)) + "_"

	format := provider.Format(strings.ToLower(envStrOrDefault(prefix+"FORMAT", "")))
	switch format {
	case "":
		switch f := provider.Format(name); f {
		case provider.FormatOpenAI, provider.FormatAnthropic, provider.FormatGoogle:
			format = f
		}
	case provider.FormatOpenAI, provider.FormatAnthropic, provider.FormatGoogle:
	default:
		p.fail(prefix+"FORMAT", string(format), provider.ErrUnknownFormat)
	}

	return provider.Config{
		Name:    name,
		BaseURL: envStrOrDefault(prefix+"BASE_URL", ""),
		Model:   envStrOrDefault(prefix+"MODEL", ""),
		Format:  format,
		Enabled: p.bool(prefix+"ENABLED", true),
		APIKey:  envStrOrDefault(prefix+"API_KEY", ""),
	}
}
