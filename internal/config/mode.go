package config

import (
	"fmt"
	"strings"
)

// Mode selects which recognition API a run exercises.
type Mode string

const (
	ModeVideo Mode = "video"
	ModeVoice Mode = "voice"
)

// ParseMode accepts "video" or "voice" in any case.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeVideo:
		return ModeVideo, nil
	case ModeVoice:
		return ModeVoice, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected video or voice)", value)
	}
}

func (m Mode) String() string {
	return string(m)
}
