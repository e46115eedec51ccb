package classify

import (
	"encoding/json"
	"strings"

	"idcheck/internal/uploader"
)

// VideoMarkers are the substrings the video API embeds in its descriptor,
// e.g. "A1B2C3 (User found)".
type VideoMarkers struct {
	ExtractionFailed string
	Created          string
	Found            string
}

// DefaultVideoMarkers returns the markers emitted by the video identify API.
func DefaultVideoMarkers() VideoMarkers {
	return VideoMarkers{
		ExtractionFailed: "Failed to extract face",
		Created:          "(Created a new user)",
		Found:            "(User found)",
	}
}

// Video classifies responses shaped like {"video": {"id": "<identifier> (<status>)"}}.
type Video struct {
	Markers VideoMarkers
}

// NewVideo returns a video classifier using the default markers.
func NewVideo() Video {
	return Video{Markers: DefaultVideoMarkers()}
}

type videoResponse struct {
	Video *struct {
		ID *string `json:"id"`
	} `json:"video"`
}

// Classify implements Classifier.
func (v Video) Classify(outcome uploader.Outcome) Result {
	if !outcome.OK() {
		return Result{Kind: UploadFailed}
	}
	var payload videoResponse
	if err := json.Unmarshal([]byte(outcome.Body), &payload); err != nil {
		return Result{Kind: Malformed}
	}
	if payload.Video == nil || payload.Video.ID == nil {
		return Result{Kind: Malformed}
	}
	return v.classifyDescriptor(*payload.Video.ID)
}

func (v Video) classifyDescriptor(descriptor string) Result {
	markers := v.Markers
	switch {
	case markers.ExtractionFailed != "" && strings.Contains(descriptor, markers.ExtractionFailed):
		return Result{Kind: ExtractionFailed}
	case markers.Created != "" && strings.Contains(descriptor, markers.Created):
		return identityResult(NewIdentity, descriptor)
	case markers.Found != "" && strings.Contains(descriptor, markers.Found):
		return identityResult(ExistingIdentity, descriptor)
	default:
		return Result{Kind: Malformed}
	}
}

// identityResult takes the identifier as the text before the first " ("
// annotation. A descriptor with nothing before the annotation carries no
// identifier and is treated as malformed.
func identityResult(kind Kind, descriptor string) Result {
	id, _, _ := strings.Cut(descriptor, " (")
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "(") {
		return Result{Kind: Malformed}
	}
	return Result{Kind: kind, Identifier: id}
}
