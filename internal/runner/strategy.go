package runner

import (
	"idcheck/internal/classify"
	"idcheck/internal/config"
	"idcheck/internal/grouping"
	"idcheck/internal/scan"
	"idcheck/internal/verdict"
)

// Strategy bundles the per-mode behaviour of the pipeline. The two modes share
// everything else.
type Strategy struct {
	Mode       config.Mode
	Scan       func(dir string, extensions []string, parser grouping.KeyParser) (scan.Result, error)
	Parser     grouping.KeyParser
	Classifier classify.Classifier
	Policy     grouping.CountingPolicy
	Rules      verdict.Rules
}

// StrategyFor returns the strategy for mode.
func StrategyFor(mode config.Mode) Strategy {
	if mode == config.ModeVoice {
		return Strategy{
			Mode:       config.ModeVoice,
			Scan:       scan.Voice,
			Parser:     grouping.FolderKeyParser{},
			Classifier: classify.NewVoice(),
			Policy:     grouping.VoicePolicy(),
			Rules:      verdict.Voice{},
		}
	}
	return Strategy{
		Mode:       config.ModeVideo,
		Scan:       scan.Video,
		Parser:     grouping.FilenameKeyParser{},
		Classifier: classify.NewVideo(),
		Policy:     grouping.VideoPolicy(),
		Rules:      verdict.Video{},
	}
}
