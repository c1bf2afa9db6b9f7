package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/casualjim/symposium/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedKeys = []string{
	"SYMPOSIUM_PROVIDERS",
	"RETRY_ATTEMPTS", "RETRY_DELAY_MS", "RETRY_BACKOFF_FACTOR", "RETRY_SIGNATURES",
	"REQUEST_TIMEOUT_MS", "FIRST_SPEAKER_ATTEMPTS", "FIRST_SPEAKER_DELAY_MS",
	"STAGE_PACING_MS", "STORE_DSN", "NATS_URL",
}

// cleanEnv blanks every variable Load reads, restoring them after the test.
func cleanEnv(t *testing.T, providers ...string) {
	t.Helper()
	keys := append([]string{}, managedKeys...)
	for _, name := range append(providers, "openai", "anthropic", "google") {
		up := envPrefix(name)
		keys = append(keys, up+"API_KEY", up+"BASE_URL", up+"MODEL", up+"FORMAT", up+"ENABLED")
	}
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func envPrefix(name string) string {
	switch name {
	case "openai":
		return "OPENAI_"
	case "anthropic":
		return "ANTHROPIC_"
	case "google":
		return "GOOGLE_"
	case "local-llm":
		return "LOCAL_LLM_"
	}
	return name + "_"
}

func TestFromEnv_Defaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, provider.DefaultRetryPolicy(), cfg.Retry)
	assert.Equal(t, DefaultFirstSpeakerAttempts, cfg.FirstSpeakerAttempts)
	assert.Equal(t, DefaultFirstSpeakerDelay, cfg.FirstSpeakerDelay)
	assert.Equal(t, DefaultStagePacing, cfg.StagePacing)
	assert.Empty(t, cfg.StoreDSN)

	require.Len(t, cfg.Providers, 3)
	for i, name := range []string{"openai", "anthropic", "google"} {
		pc := cfg.Providers[i]
		assert.Equal(t, name, pc.Name)
		assert.Equal(t, provider.Format(name), pc.Format)
		assert.True(t, pc.Enabled)
		assert.False(t, pc.Usable(), "no key configured")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cleanEnv(t, "local-llm")
	t.Setenv("SYMPOSIUM_PROVIDERS", "openai, local-llm ,google")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("LOCAL_LLM_API_KEY", "local")
	t.Setenv("LOCAL_LLM_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("GOOGLE_ENABLED", "false")
	t.Setenv("GOOGLE_API_KEY", "g")
	t.Setenv("RETRY_ATTEMPTS", "2")
	t.Setenv("RETRY_DELAY_MS", "10")
	t.Setenv("RETRY_BACKOFF_FACTOR", "1.5")
	t.Setenv("RETRY_SIGNATURES", "ECONNRESET, upstream hiccup")
	t.Setenv("REQUEST_TIMEOUT_MS", "1500")
	t.Setenv("FIRST_SPEAKER_ATTEMPTS", "4")
	t.Setenv("FIRST_SPEAKER_DELAY_MS", "0")
	t.Setenv("STAGE_PACING_MS", "250")
	t.Setenv("STORE_DSN", "file:symposium.db")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Retry.Attempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Retry.Delay)
	assert.InDelta(t, 1.5, cfg.Retry.BackoffFactor, 0.0001)
	assert.Equal(t, []string{"ECONNRESET", "upstream hiccup"}, cfg.Retry.Signatures)
	assert.Equal(t, 1500*time.Millisecond, cfg.Retry.Timeout)
	assert.Equal(t, 4, cfg.FirstSpeakerAttempts)
	assert.Zero(t, cfg.FirstSpeakerDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.StagePacing)
	assert.Equal(t, "file:symposium.db", cfg.StoreDSN)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)

	openai, ok := cfg.Provider("openai")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", openai.Model)
	assert.True(t, openai.Usable())

	local, ok := cfg.Provider("local-llm")
	require.True(t, ok)
	assert.Equal(t, provider.Format(""), local.Format)
	assert.Equal(t, "http://localhost:11434/v1", local.BaseURL)
	assert.True(t, local.Usable())

	google, ok := cfg.Provider("google")
	require.True(t, ok)
	assert.False(t, google.Enabled)
	assert.False(t, google.Usable())

	_, ok = cfg.Provider("anthropic")
	assert.False(t, ok)
}

func TestFromEnv_InvalidValuesAreJoined(t *testing.T) {
	cleanEnv(t)
	t.Setenv("RETRY_ATTEMPTS", "many")
	t.Setenv("STAGE_PACING_MS", "-5")
	t.Setenv("OPENAI_FORMAT", "soap")

	_, err := FromEnv()
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUnknownFormat)
	assert.Contains(t, err.Error(), "RETRY_ATTEMPTS")
	assert.Contains(t, err.Error(), "STAGE_PACING_MS")
}

func TestFromEnv_AttemptsMustBePositive(t *testing.T) {
	for _, key := range []string{"FIRST_SPEAKER_ATTEMPTS", "RETRY_ATTEMPTS"} {
		t.Run(key, func(t *testing.T) {
			cleanEnv(t)
			t.Setenv(key, "0")

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
			assert.Contains(t, err.Error(), "at least 1")
		})
	}

	cleanEnv(t)
	t.Setenv("FIRST_SPEAKER_ATTEMPTS", "1")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.FirstSpeakerAttempts)
}

func TestLoad_DotEnv(t *testing.T) {
	cleanEnv(t)
	t.Setenv("ANTHROPIC_MODEL", "from-process")

	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte(
		"ANTHROPIC_API_KEY=sk-ant\nANTHROPIC_MODEL=from-file\nSTAGE_PACING_MS=0\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("ANTHROPIC_API_KEY")
		os.Unsetenv("STAGE_PACING_MS")
	})

	cfg, err := Load(file)
	require.NoError(t, err)

	anthropic, ok := cfg.Provider("anthropic")
	require.True(t, ok)
	assert.Equal(t, "sk-ant", anthropic.APIKey)
	assert.Equal(t, "from-process", anthropic.Model)
	assert.Zero(t, cfg.StagePacing)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	cleanEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}
