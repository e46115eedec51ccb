package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"idcheck/internal/config"
	"idcheck/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify a mode is ready to run (source, logs, endpoint)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			modes := []config.Mode{config.ModeVideo, config.ModeVoice}
			if modeFlag != "" {
				mode, err := config.ParseMode(modeFlag)
				if err != nil {
					return err
				}
				modes = []config.Mode{mode}
			}

			all := make(map[string][]preflight.Result, len(modes))
			passed := true
			for _, mode := range modes {
				results := preflight.RunAll(cmd.Context(), cfg, mode)
				all[mode.String()] = results
				passed = passed && preflight.AllPassed(results)
			}

			if jsonOutput {
				if err := writeJSON(cmd, all); err != nil {
					return err
				}
			} else {
				colorize := colorizeFor(cmd)
				out := cmd.OutOrStdout()
				for _, mode := range modes {
					printLines(out, renderSectionHeader(fmt.Sprintf("%s readiness", mode), colorize))
					printLines(out, preflightLines(all[mode.String()], colorize))
					fmt.Fprintln(out)
				}
			}
			if !passed {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "", "Check only this mode (video or voice)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}
