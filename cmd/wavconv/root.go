package main

import (
	"github.com/spf13/cobra"
)

// version is shown by --version; override at build time with
// -ldflags "-X main.version=...".
var version = "0.1.0-dev"

type convertFlags struct {
	output       string
	quality      string
	maxCores     string
	backend      string
	skipExisting bool
	upperExt     bool
	usage        bool
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var flags convertFlags

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:   "wavconv [DIR]",
		Short: "Convert the WAV files in a directory to MP3",
		Long: `wavconv converts every .wav file directly inside DIR (default: the current
directory) to MP3, running up to one encoder per CPU core at a time.

Outputs keep the input base name with an .mp3 extension and are written next
to the inputs unless --output names another directory.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.usage || shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.usage {
				return cmd.Help()
			}
			return runConvert(cmd, ctx, flags, args)
		},
	}
	rootCmd.SetVersionTemplate("wavconv {{.Version}}\n")

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory (default: the input directory)")
	rootCmd.Flags().StringVarP(&flags.quality, "quality", "q", "", "Quality: high, mid or low (default from config)")
	rootCmd.Flags().StringVarP(&flags.maxCores, "max-cores", "n", "", "Maximum concurrent encodes; must be below twice the core count")
	rootCmd.Flags().StringVar(&flags.backend, "backend", "", "Encoder backend: lame or ffmpeg (default from config)")
	rootCmd.Flags().BoolVar(&flags.skipExisting, "skip-existing", false, "Skip files whose MP3 already exists")
	rootCmd.Flags().BoolVar(&flags.upperExt, "upper-ext", false, "Write .MP3 instead of .mp3")
	rootCmd.Flags().BoolVar(&flags.usage, "usage", false, "Print usage and exit")

	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
