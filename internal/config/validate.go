package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Mode-specific requirements
// (endpoint, source directory) are checked separately by ValidateMode because
// a config only needs to be complete for the mode being run.
func (c *Config) Validate() error {
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := validatePacing("video", c.Video); err != nil {
		return err
	}
	if err := validatePacing("voice", c.Voice); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	return nil
}

// ValidateMode checks the settings a run in the given mode cannot do without.
func (c *Config) ValidateMode(mode Mode) error {
	mc := c.Mode(mode)
	section := mode.String()
	if mc.Endpoint == "" {
		return fmt.Errorf("%s.endpoint must be set (or export IDCHECK_%s_ENDPOINT)", section, strings.ToUpper(section))
	}
	parsed, err := url.Parse(mc.Endpoint)
	if err != nil {
		return fmt.Errorf("%s.endpoint: %w", section, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s.endpoint must be an http(s) URL, got %q", section, mc.Endpoint)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s.endpoint is missing a host: %q", section, mc.Endpoint)
	}
	if mc.SourceDir == "" {
		return fmt.Errorf("%s.source_dir must be set", section)
	}
	if len(mc.Extensions) == 0 {
		return fmt.Errorf("%s.extensions must list at least one extension", section)
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.MaxAttempts < 1 {
		return errors.New("upload.max_attempts must be at least 1")
	}
	if c.Upload.TimeoutSeconds <= 0 {
		return errors.New("upload.timeout_seconds must be positive")
	}
	return nil
}

func validatePacing(section string, mc ModeConfig) error {
	if mc.RetryBackoffMS < 0 {
		return fmt.Errorf("%s.retry_backoff_ms must be >= 0", section)
	}
	if mc.FileDelayMS < 0 {
		return fmt.Errorf("%s.file_delay_ms must be >= 0", section)
	}
	if mc.FailureCooldownSeconds < 0 {
		return fmt.Errorf("%s.failure_cooldown_seconds must be >= 0", section)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateArchive() error {
	if !c.Archive.Enabled {
		return nil
	}
	if c.Archive.Endpoint == "" {
		return errors.New("archive.endpoint must be set when archive.enabled is true")
	}
	if strings.Contains(c.Archive.Endpoint, "://") {
		return fmt.Errorf("archive.endpoint must be host[:port] without a scheme, got %q", c.Archive.Endpoint)
	}
	if c.Archive.Bucket == "" {
		return errors.New("archive.bucket must be set when archive.enabled is true")
	}
	if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
		return errors.New("archive.access_key and archive.secret_key must be set when archive.enabled is true")
	}
	return nil
}
