package history

import "time"

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunInterrupted RunStatus = "interrupted"
	RunFailed      RunStatus = "failed"
)

// Run is one invocation of the harness.
type Run struct {
	ID           string    `json:"id"`
	Mode         string    `json:"mode"`
	Endpoint     string    `json:"endpoint,omitempty"`
	SourceDir    string    `json:"source_dir,omitempty"`
	Status       RunStatus `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
	Total        int       `json:"total_files"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	GroupsPassed int       `json:"groups_passed"`
	GroupsFailed int       `json:"groups_failed"`
	ErrorMessage string    `json:"error,omitempty"`
}

// Finished reports whether the run has left the running state.
func (r Run) Finished() bool {
	return r.Status != RunRunning
}

// Upload is one per-file record.
type Upload struct {
	RunID          string    `json:"run_id"`
	Group          string    `json:"group"`
	File           string    `json:"file"`
	Size           int64     `json:"size"`
	SHA256         string    `json:"sha256,omitempty"`
	Attempts       int       `json:"attempts"`
	StatusCode     int       `json:"status_code,omitempty"`
	Failure        string    `json:"failure"`
	Classification string    `json:"classification"`
	Identifier     string    `json:"identifier,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// GroupVerdict is the persisted verdict for one group of a run.
type GroupVerdict struct {
	RunID            string   `json:"run_id"`
	Group            string   `json:"group"`
	Total            int      `json:"total"`
	New              int      `json:"new"`
	Existing         int      `json:"existing"`
	ExtractionFailed int      `json:"extraction_failed"`
	Malformed        int      `json:"malformed"`
	FailedUploads    int      `json:"failed_uploads"`
	Identifiers      []string `json:"identifiers"`
	Status           string   `json:"status"`
	Reason           string   `json:"reason"`
}
