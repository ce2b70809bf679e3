package testsupport

import (
	"path/filepath"
	"testing"

	"langtagger/internal/config"
)

// ConfigOption customizes the configuration returned by NewConfig.
type ConfigOption func(*config.Config)

// NewConfig returns the default configuration rooted in a fresh temp
// directory: no run log files, state and probe cache under the temp dir.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = ""
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Cache.Path = filepath.Join(base, "cache", "probe.db")
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithFFprobe points the config at the given fake ffprobe.
func WithFFprobe(fake *FakeProbe) ConfigOption {
	return func(cfg *config.Config) { cfg.Probe.FFprobeBinary = fake.Binary }
}

// WithCacheDisabled turns the probe cache off.
func WithCacheDisabled() ConfigOption {
	return func(cfg *config.Config) { cfg.Cache.Enabled = false }
}

// WithTagging applies fn to the tagging section.
func WithTagging(fn func(*config.Tagging)) ConfigOption {
	return func(cfg *config.Config) { fn(&cfg.Tagging) }
}
