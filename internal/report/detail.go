package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"idcheck/internal/classify"
	"idcheck/internal/config"
	"idcheck/internal/fileutil"
	"idcheck/internal/uploader"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	entrySeparator  = "======================================================================"
	headerRule      = "===================="

	noResponseMessage = "No response received from API after all retries."
)

// Entry is one detail log record.
type Entry struct {
	Group   string
	File    string
	Time    time.Time
	Outcome uploader.Outcome
	Result  classify.Result
}

// DetailLog is the append-only per-file log.
type DetailLog struct {
	path string
	mode config.Mode
	file *os.File
}

// OpenDetailLog opens (or creates) the detail log for appending.
func OpenDetailLog(path string, mode config.Mode) (*DetailLog, error) {
	file, err := fileutil.OpenAppend(path)
	if err != nil {
		return nil, err
	}
	return &DetailLog{path: path, mode: mode, file: file}, nil
}

// Path returns the log location.
func (l *DetailLog) Path() string {
	return l.path
}

// WriteSessionHeader marks the start of a run.
func (l *DetailLog) WriteSessionHeader(now time.Time, runID string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s STARTING UPLOAD SESSION AT %s %s\n", headerRule, now.Format(timestampLayout), headerRule)
	if runID != "" {
		fmt.Fprintf(&b, "Run ID: %s\n", runID)
	}
	b.WriteString("\n")
	return l.write(b.String())
}

// WriteEntry appends one file record.
func (l *DetailLog) WriteEntry(entry Entry) error {
	var b strings.Builder
	if l.mode == config.ModeVoice {
		fmt.Fprintf(&b, "Voice ID Folder: %s\n", entry.Group)
	} else {
		fmt.Fprintf(&b, "Group: %s\n", entry.Group)
	}
	fmt.Fprintf(&b, "File Name: %s\n", entry.File)
	fmt.Fprintf(&b, "Timestamp: %s\n", entry.Time.Format(timestampLayout))
	fmt.Fprintf(&b, "Attempts: %d\n", entry.Outcome.Attempts)
	if entry.Outcome.HasStatus() {
		fmt.Fprintf(&b, "HTTP Status Code: %d\n", entry.Outcome.StatusCode)
		fmt.Fprintf(&b, "Classification: %s\n", entry.Result)
		b.WriteString("Response Content:\n")
		b.WriteString(FormatBody(entry.Outcome.Body))
		b.WriteString("\n")
	} else {
		switch entry.Outcome.Failure {
		case uploader.FailureLocal:
			fmt.Fprintf(&b, "Could not read file: %v\n", entry.Outcome.LastError)
		case uploader.FailureCancelled:
			b.WriteString("Upload cancelled before a response was received.\n")
		default:
			b.WriteString(noResponseMessage + "\n")
			if entry.Outcome.LastStatus != 0 {
				fmt.Fprintf(&b, "Last HTTP Status Code: %d\n", entry.Outcome.LastStatus)
			}
			if entry.Outcome.LastError != nil {
				fmt.Fprintf(&b, "Last Error: %v\n", entry.Outcome.LastError)
			}
		}
	}
	b.WriteString(entrySeparator + "\n\n")
	return l.write(b.String())
}

func (l *DetailLog) write(s string) error {
	if _, err := l.file.WriteString(s); err != nil {
		return fmt.Errorf("write detail log: %w", err)
	}
	return nil
}

// Close releases the file handle.
func (l *DetailLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
