package main

import (
	"fmt"
	"strconv"
	"strings"

	"idcheck/internal/report"
)

func renderRunResult(summary report.RunSummary, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader(fmt.Sprintf("Run %s (%s)", shortID(summary.RunID), summary.Mode), colorize) {
		b.WriteString(line + "\n")
	}
	if len(summary.Groups) > 0 {
		b.WriteString(renderTable(tableSpec{
			Headers: []string{"Group", "Total", "New", "Existing", "Failed", "Identifiers", "Status", "Reason"},
			Rows:    groupRows(summary.Groups, colorize),
			Aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignLeft},
		}))
		b.WriteString("\n")
	}
	for _, name := range summary.EmptyGroups {
		b.WriteString(renderStatusLine(name, statusWarn, "no files found for testing", colorize) + "\n")
	}

	b.WriteString(renderStatusLine("Files", statusInfo,
		fmt.Sprintf("%d attempted, %d succeeded, %d failed", summary.Total, summary.Succeeded, summary.Failed), colorize) + "\n")
	groupKind := statusOK
	if summary.GroupsFailed > 0 || summary.GroupsPassed == 0 {
		groupKind = statusError
	}
	b.WriteString(renderStatusLine("Groups", groupKind,
		fmt.Sprintf("%d tested, %d passed, %d failed", summary.GroupsTested(), summary.GroupsPassed, summary.GroupsFailed), colorize) + "\n")
	if summary.Interrupted {
		b.WriteString(renderStatusLine("Run", statusWarn, "interrupted before all files were uploaded", colorize) + "\n")
	}
	b.WriteString(renderStatusLine("Detail log", statusInfo, summary.DetailLog, colorize) + "\n")
	b.WriteString(renderStatusLine("Summary log", statusInfo, summary.SummaryLog, colorize) + "\n")
	return b.String()
}

func groupRows(groups []report.GroupSummary, colorize bool) [][]string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		status := g.Status
		if colorize {
			color := ansiGreen
			if !g.Passed {
				color = ansiRed
			}
			status = color + status + ansiReset
		}
		rows = append(rows, []string{
			g.Group,
			strconv.Itoa(g.Total),
			strconv.Itoa(g.New),
			strconv.Itoa(g.Existing),
			strconv.Itoa(g.FailedUploads + g.Malformed + g.ExtractionFailed),
			strings.Join(g.Identifiers, ", "),
			status,
			g.Reason,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
