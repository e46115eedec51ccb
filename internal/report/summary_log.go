package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"idcheck/internal/config"
	"idcheck/internal/fileutil"
)

// SummaryLog is the append-only per-run verdict log.
type SummaryLog struct {
	path string
	mode config.Mode
	file *os.File
}

// OpenSummaryLog opens (or creates) the summary log for appending.
func OpenSummaryLog(path string, mode config.Mode) (*SummaryLog, error) {
	file, err := fileutil.OpenAppend(path)
	if err != nil {
		return nil, err
	}
	return &SummaryLog{path: path, mode: mode, file: file}, nil
}

// Path returns the log location.
func (l *SummaryLog) Path() string {
	return l.path
}

// WriteSessionHeader marks the start of a run.
func (l *SummaryLog) WriteSessionHeader(now time.Time, runID string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s SUMMARY RESULTS AT %s %s\n", headerRule, now.Format(timestampLayout), headerRule)
	if runID != "" {
		fmt.Fprintf(&b, "Run ID: %s\n", runID)
	}
	b.WriteString("\n")
	return l.write(b.String())
}

// WriteEmptyGroup records a group that had nothing to upload.
func (l *SummaryLog) WriteEmptyGroup(name string) error {
	return l.write(fmt.Sprintf("%s: %s - NO FILES FOUND FOR TESTING.\n\n", l.groupLabel(), name))
}

// WriteGroup appends one group block.
func (l *SummaryLog) WriteGroup(group GroupSummary) error {
	if l.mode == config.ModeVoice {
		return l.write(formatVoiceGroup(group))
	}
	return l.write(formatVideoGroup(group))
}

// WriteRunSummary appends the overall totals.
func (l *SummaryLog) WriteRunSummary(summary RunSummary) error {
	return l.write(FormatRunSummary(summary))
}

func (l *SummaryLog) groupLabel() string {
	if l.mode == config.ModeVoice {
		return "Voice ID"
	}
	return "Group"
}

func (l *SummaryLog) write(s string) error {
	if _, err := l.file.WriteString(s); err != nil {
		return fmt.Errorf("write summary log: %w", err)
	}
	return nil
}

// Close releases the file handle.
func (l *SummaryLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func formatVideoGroup(g GroupSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "* Testcase: %s\n", g.Testcase)
	fmt.Fprintf(&b, "User %s\n", g.User)
	fmt.Fprintf(&b, "   Total files: %d\n", g.Total)
	fmt.Fprintf(&b, "   User found: %d\n", g.Existing)
	fmt.Fprintf(&b, "   Created new user: %d\n", g.New)
	if g.ExtractionFailed > 0 {
		fmt.Fprintf(&b, "   Failed to extract face: %d times\n", g.ExtractionFailed)
	}
	if g.Malformed > 0 {
		fmt.Fprintf(&b, "   Unrecognized responses: %d\n", g.Malformed)
	}
	if g.FailedUploads > 0 {
		fmt.Fprintf(&b, "   Failed uploads (not counted): %d\n", g.FailedUploads)
	}
	writeCounts(&b, "   Found IDs:\n", g.ExistingIdentifiers)
	writeCounts(&b, "   Created New User IDs:\n", g.NewIdentifiers)
	fmt.Fprintf(&b, "   STATUS: %s - %s\n\n", g.Status, g.Reason)
	return b.String()
}

func writeCounts(b *strings.Builder, heading string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	b.WriteString(heading)
	for _, c := range sortedCounts(counts) {
		fmt.Fprintf(b, "     - %s: %d times\n", c.ID, c.Count)
	}
}

func formatVoiceGroup(g GroupSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Voice ID Folder: %s\n", g.Group)
	fmt.Fprintf(&b, "  Total files processed: %d\n", g.Total)
	fmt.Fprintf(&b, "  New records created: %d\n", g.New)
	fmt.Fprintf(&b, "  Existing records found: %d\n", g.Existing)
	fmt.Fprintf(&b, "  Failed uploads: %d\n", g.FailedUploads)
	if g.Malformed > 0 {
		fmt.Fprintf(&b, "  Unrecognized responses: %d\n", g.Malformed)
	}
	fmt.Fprintf(&b, "  Unique User IDs returned: [%s]\n", strings.Join(g.Identifiers, ", "))
	fmt.Fprintf(&b, "  STATUS: %s - %s\n\n", g.Status, g.Reason)
	b.WriteString(entrySeparator + "\n\n")
	return b.String()
}

// FormatRunSummary renders the overall totals shared by the summary log and
// the console.
func FormatRunSummary(s RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== RUN RESULTS (%s) ===\n", s.Mode)
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run ID: %s\n", s.RunID)
	}
	fmt.Fprintf(&b, "Total files attempted: %d\n", s.Total)
	fmt.Fprintf(&b, "Successful uploads: %d\n", s.Succeeded)
	fmt.Fprintf(&b, "Failed uploads: %d\n", s.Failed)
	fmt.Fprintf(&b, "Groups tested: %d\n", s.GroupsTested())
	fmt.Fprintf(&b, "Groups passed: %d\n", s.GroupsPassed)
	fmt.Fprintf(&b, "Groups failed: %d\n", s.GroupsFailed)
	if len(s.EmptyGroups) > 0 {
		fmt.Fprintf(&b, "Groups without files: %s\n", strings.Join(s.EmptyGroups, ", "))
	}
	if s.Interrupted {
		b.WriteString("Run interrupted before all files were processed.\n")
	}
	b.WriteString("\n")
	return b.String()
}
