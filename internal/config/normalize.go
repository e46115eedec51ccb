package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeUpload()
	if err := c.normalizeMode("video", &c.Video, defaultVideo(), "IDCHECK_VIDEO_ENDPOINT"); err != nil {
		return err
	}
	if err := c.normalizeMode("voice", &c.Voice, defaultVoice(), "IDCHECK_VOICE_ENDPOINT"); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeNotifications()
	c.normalizeArchive()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeUpload() {
	c.Upload.UserAgent = strings.TrimSpace(c.Upload.UserAgent)
	if c.Upload.UserAgent == "" {
		c.Upload.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeMode(section string, mc *ModeConfig, defaults ModeConfig, endpointEnv string) error {
	if value, ok := os.LookupEnv(endpointEnv); ok && strings.TrimSpace(value) != "" {
		mc.Endpoint = value
	}
	mc.Endpoint = strings.TrimSpace(mc.Endpoint)

	if source := strings.TrimSpace(mc.SourceDir); source != "" {
		expanded, err := expandPath(source)
		if err != nil {
			return fmt.Errorf("%s.source_dir: %w", section, err)
		}
		mc.SourceDir = expanded
	} else {
		mc.SourceDir = ""
	}

	mc.Extensions = normalizeExtensions(mc.Extensions)
	if len(mc.Extensions) == 0 {
		mc.Extensions = append([]string(nil), defaults.Extensions...)
	}

	mc.FieldName = strings.TrimSpace(mc.FieldName)
	if mc.FieldName == "" {
		mc.FieldName = defaults.FieldName
	}
	mc.ContentType = strings.TrimSpace(mc.ContentType)
	if mc.ContentType == "" {
		mc.ContentType = defaults.ContentType
	}
	mc.DetailLog = strings.TrimSpace(mc.DetailLog)
	if mc.DetailLog == "" {
		mc.DetailLog = defaults.DetailLog
	}
	mc.SummaryLog = strings.TrimSpace(mc.SummaryLog)
	if mc.SummaryLog == "" {
		mc.SummaryLog = defaults.SummaryLog
	}
	return nil
}

// normalizeExtensions lower-cases, dot-prefixes, and de-duplicates extensions
// while keeping their configured order.
func normalizeExtensions(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.Endpoint = strings.TrimSpace(c.Archive.Endpoint)
	c.Archive.Bucket = strings.TrimSpace(c.Archive.Bucket)
	c.Archive.Prefix = strings.Trim(strings.TrimSpace(c.Archive.Prefix), "/")
	if value, ok := os.LookupEnv("IDCHECK_ARCHIVE_ACCESS_KEY"); ok && value != "" {
		c.Archive.AccessKey = value
	}
	if value, ok := os.LookupEnv("IDCHECK_ARCHIVE_SECRET_KEY"); ok && value != "" {
		c.Archive.SecretKey = value
	}
	c.Archive.AccessKey = strings.TrimSpace(c.Archive.AccessKey)
	c.Archive.SecretKey = strings.TrimSpace(c.Archive.SecretKey)
}
