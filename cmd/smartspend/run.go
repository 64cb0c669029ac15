package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/smartspend/internal/cli"
	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/pipeline"
	"github.com/spf13/cobra"
)

func runCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run RECEIPT [RECEIPT...]",
		Short: "Process one or more receipts",
		Long: `Read each receipt (an image, a PDF, or a plain text file), resolve its
lines against the catalogue, add them to the ledger, and report the
cumulative spend per category with any budget alerts.

Receipts are processed in order. A failing receipt stops the batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			quiet, _ := cmd.Flags().GetBool("quiet")
			return runReceipts(cmd, opts, args, jsonOut, quiet)
		},
	}

	cmd.Flags().Bool("json", false, "print the snapshot as JSON")
	cmd.Flags().BoolP("quiet", "q", false, "hide the progress bar")

	return cmd
}

type runResult struct {
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	Snapshot any    `json:"snapshot"`
}

func runReceipts(cmd *cobra.Command, opts *rootOptions, sources []string, jsonOut, quiet bool) error {
	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := interrupts.HandleInterrupts(cmd.Context())
	defer stop()

	a, err := buildApp(ctx, opts.cfg, wireFull)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var progress *cli.ProgressObserver
	if !quiet && !jsonOut {
		a.controller.OnStateChange(func(state pipeline.State) {
			if progress != nil {
				progress.Observe(state)
			}
		})
	}

	results := make([]runResult, 0, len(sources))
	for _, source := range sources {
		if !quiet && !jsonOut {
			progress = cli.NewProgressObserver(cmd.ErrOrStderr())
		}

		summary, runErr := a.controller.Run(ctx, source)
		if runErr != nil {
			if interrupts.WasInterrupted() {
				return common.NewUserError("Interrupted. The ledger was not changed for "+source+".", runErr)
			}
			return describeRunError(source, runErr)
		}

		snapshot, _ := a.controller.LastSnapshot()
		if jsonOut {
			results = append(results, runResult{Source: source, Summary: summary, Snapshot: snapshot})
			continue
		}
		if err := cli.RenderSnapshot(cmd.OutOrStdout(), snapshot, summary); err != nil {
			return err
		}
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return nil
}

// describeRunError turns a pipeline failure into a message naming the stage.
func describeRunError(source string, err error) error {
	if errors.Is(err, common.ErrMissingConfig) {
		return common.NewUserError(cli.FormatError(err.Error()), err)
	}
	if errors.Is(err, os.ErrNotExist) {
		return common.NewUserError(cli.FormatError("receipt not found: "+source), err)
	}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		slog.Debug("pipeline stage failed", "source", source, "stage", stageErr.Stage, "error", stageErr.Err)
		return common.NewUserError(cli.FormatError(fmt.Sprintf("%s failed while %s: %v", source, stageErr.Stage, stageErr.Err)), err)
	}
	return err
}
