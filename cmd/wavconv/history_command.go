package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"wavconv/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversion runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			store, ok, err := openHistoryStore(ctx)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					humanize.Time(run.StartedAt),
					run.InputDir,
					strconv.Itoa(run.Encoded),
					strconv.Itoa(run.Skipped),
					strconv.Itoa(run.Failed),
					strconv.Itoa(run.Canceled),
					formatDuration(run.FinishedAt.Sub(run.StartedAt)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Input", "Encoded", "Skipped", "Failed", "Canceled", "Elapsed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "l", 20, "Number of runs to show")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show the per-file results of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, ok, err := openHistoryStore(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("run %s not found", args[0])
			}
			defer store.Close()

			runID := strings.TrimSpace(args[0])
			jobs, err := store.Jobs(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				return fmt.Errorf("run %s not found", runID)
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					filepath.Base(job.InputPath),
					job.Status,
					formatBytes(job.BytesOut),
					formatDuration(job.Duration),
					firstLine(job.Error),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"File", "Status", "Output", "Elapsed", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

// openHistoryStore opens the ledger when it exists. ok is false when no run
// has ever been recorded.
func openHistoryStore(ctx *commandContext) (*history.Store, bool, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, false, err
	}
	path := cfg.HistoryPath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("inspect history: %w", err)
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, false, err
	}
	return store, true, nil
}
