package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"idcheck/internal/history"
)

const historyTimeLayout = "2006-01-02 15:04"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
					Headers: []string{"Run", "Mode", "Started", "Status", "Files", "OK", "Failed", "Groups", "Passed"},
					Rows:    historyRows(runs),
					Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
				}))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show group verdicts and uploads for a run (ID prefixes accepted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %q not found", args[0])
				}
				groups, err := store.RunGroups(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				uploads, err := store.RunUploads(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, map[string]any{
						"run":     run,
						"groups":  groups,
						"uploads": uploads,
					})
				}
				printRunDetail(cmd, run, groups, uploads)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run as JSON")
	return cmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func printRunDetail(cmd *cobra.Command, run *history.Run, groups []history.GroupVerdict, uploads []history.Upload) {
	out := cmd.OutOrStdout()
	colorize := colorizeFor(cmd)

	printLines(out, renderSectionHeader(fmt.Sprintf("Run %s (%s)", run.ID, run.Mode), colorize))
	fmt.Fprintf(out, "Endpoint:   %s\n", run.Endpoint)
	fmt.Fprintf(out, "Source:     %s\n", run.SourceDir)
	fmt.Fprintf(out, "Started:    %s\n", formatHistoryTime(run.StartedAt))
	fmt.Fprintf(out, "Finished:   %s\n", formatHistoryTime(run.FinishedAt))
	fmt.Fprintf(out, "Status:     %s\n", run.Status)
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      %s\n", run.ErrorMessage)
	}
	fmt.Fprintln(out)

	if len(groups) > 0 {
		rows := make([][]string, 0, len(groups))
		for _, g := range groups {
			rows = append(rows, []string{
				g.Group,
				strconv.Itoa(g.Total),
				strconv.Itoa(g.New),
				strconv.Itoa(g.Existing),
				strings.Join(g.Identifiers, ", "),
				g.Status,
				g.Reason,
			})
		}
		fmt.Fprintln(out, renderTable(tableSpec{
			Headers: []string{"Group", "Total", "New", "Existing", "Identifiers", "Status", "Reason"},
			Rows:    rows,
			Aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignLeft},
			Footer:  []string{"", "", "", "", "", fmt.Sprintf("%d/%d passed", run.GroupsPassed, run.GroupsPassed+run.GroupsFailed)},
		}))
	}

	if len(uploads) > 0 {
		rows := make([][]string, 0, len(uploads))
		for _, u := range uploads {
			status := "-"
			if u.StatusCode != 0 {
				status = strconv.Itoa(u.StatusCode)
			}
			rows = append(rows, []string{
				u.Group,
				u.File,
				strconv.Itoa(u.Attempts),
				status,
				u.Classification,
				u.Identifier,
			})
		}
		fmt.Fprintln(out, renderTable(tableSpec{
			Headers: []string{"Group", "File", "Attempts", "HTTP", "Classification", "Identifier"},
			Rows:    rows,
			Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
		}))
	}
}

func historyRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.Mode,
			formatHistoryTime(run.StartedAt),
			string(run.Status),
			strconv.Itoa(run.Total),
			strconv.Itoa(run.Succeeded),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.GroupsPassed + run.GroupsFailed),
			strconv.Itoa(run.GroupsPassed),
		})
	}
	return rows
}

func formatHistoryTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(historyTimeLayout)
}
