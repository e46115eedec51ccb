package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"idcheck/internal/config"
	"idcheck/internal/runner"
)

// errRunFailed is returned when a run completed but did not pass. main exits
// non-zero without printing it again.
var errRunFailed = errors.New("run failed")

func newRunCommand(ctx *commandContext) *cobra.Command {
	var sourceDir string
	var endpoint string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:       "run video|voice",
		Short:     "Upload every file in the source directory and report per-group verdicts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(config.ModeVideo), string(config.ModeVoice)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := config.ParseMode(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			mc := cfg.Mode(mode)
			if dir := strings.TrimSpace(sourceDir); dir != "" {
				expanded, err := config.ExpandPath(dir)
				if err != nil {
					return fmt.Errorf("resolve source dir: %w", err)
				}
				mc.SourceDir = expanded
			}
			if url := strings.TrimSpace(endpoint); url != "" {
				mc.Endpoint = url
			}
			cfg.SetMode(mode, mc)

			logger, err := ctx.newLogger(jsonOutput)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			r, err := runner.New(cfg, mode, runner.WithLogger(logger))
			if err != nil {
				return err
			}
			result, err := r.Run(signalCtx)
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := writeJSON(cmd, result.Summary); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderRunResult(result.Summary, colorizeFor(cmd)))
			}
			if result.Summary.Interrupted || !result.Summary.Passed() {
				return errRunFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "", "Override the mode's source_dir")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Override the mode's API endpoint")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
	return cmd
}
