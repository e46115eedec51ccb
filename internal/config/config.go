package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir string `toml:"log_dir"`
}

// Upload contains settings shared by every upload regardless of mode.
type Upload struct {
	MaxAttempts    int    `toml:"max_attempts"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// ModeConfig contains the per-mode endpoint, scan, and pacing settings.
type ModeConfig struct {
	Endpoint               string   `toml:"endpoint"`
	SourceDir              string   `toml:"source_dir"`
	Extensions             []string `toml:"extensions"`
	FieldName              string   `toml:"field_name"`
	ContentType            string   `toml:"content_type"`
	RetryBackoffMS         int      `toml:"retry_backoff_ms"`
	FileDelayMS            int      `toml:"file_delay_ms"`
	FailureCooldownSeconds int      `toml:"failure_cooldown_seconds"`
	DetailLog              string   `toml:"detail_log"`
	SummaryLog             string   `toml:"summary_log"`
}

// RetryBackoff is the fixed delay between upload attempts.
func (m ModeConfig) RetryBackoff() time.Duration {
	return time.Duration(m.RetryBackoffMS) * time.Millisecond
}

// FileDelay is the pause between consecutive files.
func (m ModeConfig) FileDelay() time.Duration {
	return time.Duration(m.FileDelayMS) * time.Millisecond
}

// FailureCooldown is the pause after a file whose upload failed outright.
func (m ModeConfig) FailureCooldown() time.Duration {
	return time.Duration(m.FailureCooldownSeconds) * time.Second
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Archive contains configuration for pushing run artifacts to S3-compatible
// object storage.
type Archive struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Config encapsulates all configuration values for idcheck.
//
// Configuration sections by subsystem:
//   - Paths: where logs, history, and the run lock live
//   - Upload: retry budget, per-attempt timeout, user agent
//   - Video / Voice: endpoint, source tree, form field, and pacing per mode
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
//   - Archive: optional artifact upload to object storage
type Config struct {
	Paths         Paths         `toml:"paths"`
	Upload        Upload        `toml:"upload"`
	Video         ModeConfig    `toml:"video"`
	Voice         ModeConfig    `toml:"voice"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	Archive       Archive       `toml:"archive"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/idcheck/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("idcheck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory used for logs, history, and the run lock.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	return nil
}

// Mode returns the settings for the requested run mode.
func (c *Config) Mode(mode Mode) ModeConfig {
	if mode == ModeVoice {
		return c.Voice
	}
	return c.Video
}

// SetMode replaces the settings for the requested run mode. CLI flag
// overrides go through here so they are validated like file values.
func (c *Config) SetMode(mode Mode, mc ModeConfig) {
	if mode == ModeVoice {
		c.Voice = mc
		return
	}
	c.Video = mc
}

// DetailLogPath returns the absolute path of the per-file detail log for mode.
func (c *Config) DetailLogPath(mode Mode) string {
	return filepath.Join(c.Paths.LogDir, c.Mode(mode).DetailLog)
}

// SummaryLogPath returns the absolute path of the per-group summary log for mode.
func (c *Config) SummaryLogPath(mode Mode) string {
	return filepath.Join(c.Paths.LogDir, c.Mode(mode).SummaryLog)
}

// HistoryPath returns the SQLite database path used for run history.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// LockPath returns the file used to keep two runs from appending to the same logs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "idcheck.lock")
}

// UploadTimeout returns the per-attempt HTTP timeout.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.Upload.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
