package config

const (
	defaultLogDir               = "~/.local/share/idcheck"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultMaxAttempts          = 3
	defaultUploadTimeoutSeconds = 60
	defaultUserAgent            = "idcheck/0.1.0"
	defaultNotifyTimeout        = 10
	defaultArchivePrefix        = "idcheck"
)

var (
	defaultVideoExtensions = []string{".mp4"}
	defaultVoiceExtensions = []string{".mov", ".mp3", ".wav", ".m4a", ".mkv"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Upload: Upload{
			MaxAttempts:    defaultMaxAttempts,
			TimeoutSeconds: defaultUploadTimeoutSeconds,
			UserAgent:      defaultUserAgent,
		},
		Video: defaultVideo(),
		Voice: defaultVoice(),
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Archive: Archive{
			Prefix: defaultArchivePrefix,
			UseSSL: true,
		},
	}
}

func defaultVideo() ModeConfig {
	return ModeConfig{
		Extensions:             append([]string(nil), defaultVideoExtensions...),
		FieldName:              "file",
		ContentType:            "video/mp4",
		RetryBackoffMS:         1000,
		FileDelayMS:            5000,
		FailureCooldownSeconds: 30,
		DetailLog:              "results_log.txt",
		SummaryLog:             "results_status.txt",
	}
}

func defaultVoice() ModeConfig {
	return ModeConfig{
		Extensions:             append([]string(nil), defaultVoiceExtensions...),
		FieldName:              "audio",
		ContentType:            "application/octet-stream",
		RetryBackoffMS:         2000,
		FileDelayMS:            500,
		FailureCooldownSeconds: 0,
		DetailLog:              "upload_log_audio_detail.txt",
		SummaryLog:             "upload_log_audio_summary.txt",
	}
}
