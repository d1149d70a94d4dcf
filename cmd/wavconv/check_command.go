package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wavconv/internal/deps"
	"wavconv/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "check [DIR]",
		Short: "Verify encoder binaries and directory permissions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			inputDir := "."
			if len(args) > 0 {
				inputDir = args[0]
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			missing := 0
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				rows = append(rows, []string{status.Name, binaryState(status), yesNo(!status.Optional), dependencyDetail(status)})
				if !status.Available && !status.Optional {
					missing++
				}
			}
			fmt.Fprintln(out, renderTable([]string{"Binary", "Status", "Required", "Detail"}, rows, nil))

			results := preflight.RunAll(cfg, preflight.Dirs{Input: inputDir, Output: outputDir})
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			if ctx.configExists {
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, "defaults (no config file)", colorize))
			}

			failed := missing + len(preflight.Failed(results))
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory to check (default: the input directory)")
	return cmd
}

func binaryState(status deps.Status) string {
	if status.Available {
		return "found"
	}
	return "missing"
}

func dependencyDetail(status deps.Status) string {
	switch {
	case !status.Available:
		return status.Detail
	case status.Version != "":
		return fmt.Sprintf("%s (%s)", status.Path, status.Version)
	default:
		return status.Path
	}
}
