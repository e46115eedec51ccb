package testsupport

import (
	"path/filepath"
	"testing"

	"idcheck/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Pacing delays are zeroed so runs finish immediately.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	for _, mode := range []config.Mode{config.ModeVideo, config.ModeVoice} {
		mc := cfgVal.Mode(mode)
		mc.Endpoint = "http://127.0.0.1:1/" + mode.String()
		mc.SourceDir = filepath.Join(base, "source", mode.String())
		mc.RetryBackoffMS = 0
		mc.FileDelayMS = 0
		mc.FailureCooldownSeconds = 0
		cfgVal.SetMode(mode, mc)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithEndpoint points a mode at the given URL, usually an httptest server.
func WithEndpoint(mode config.Mode, endpoint string) ConfigOption {
	return func(b *configBuilder) {
		mc := b.cfg.Mode(mode)
		mc.Endpoint = endpoint
		b.cfg.SetMode(mode, mc)
	}
}

// WithPacing restores non-zero pacing for tests that assert on delays.
func WithPacing(mode config.Mode, backoffMS, fileDelayMS, cooldownSeconds int) ConfigOption {
	return func(b *configBuilder) {
		mc := b.cfg.Mode(mode)
		mc.RetryBackoffMS = backoffMS
		mc.FileDelayMS = fileDelayMS
		mc.FailureCooldownSeconds = cooldownSeconds
		b.cfg.SetMode(mode, mc)
	}
}

// WithNtfyTopic sets the notification topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}

// SourceDir returns the configured source directory for mode.
func SourceDir(cfg *config.Config, mode config.Mode) string {
	return cfg.Mode(mode).SourceDir
}
