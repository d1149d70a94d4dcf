package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"wavconv/internal/batch"
	"wavconv/internal/config"
	"wavconv/internal/encoder"
	"wavconv/internal/history"
	"wavconv/internal/logging"
	"wavconv/internal/pathcat"
	"wavconv/internal/services"
)

func runConvert(cmd *cobra.Command, ctx *commandContext, flags convertFlags, args []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := applyConvertFlags(cmd, cfg, flags); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "logging", "", err)
	}
	logger = logging.NewComponentLogger(logger, "wavconv")

	quality, err := config.QualityValue(cfg.Encoder.Quality)
	if err != nil {
		return err
	}
	extCase, err := pathcat.ParseCase(cfg.Batch.ExtensionCase)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "extension case", "", err)
	}
	cores := runtime.NumCPU()
	concurrency, ok := config.ResolveConcurrency(flags.maxCores, cfg.Batch.MaxConcurrency, cores)
	if !ok {
		logger.Warn("ignoring concurrency limit outside 1..2x cores",
			logging.String("requested", strings.TrimSpace(flags.maxCores)),
			logging.Int("configured", cfg.Batch.MaxConcurrency),
			logging.Int("cores", cores),
		)
	}

	enc, err := encoder.New(cfg)
	if err != nil {
		return err
	}
	logger.Debug("encoder selected",
		logging.String("backend", enc.Name()),
		logging.String("binary", enc.Binary()),
	)

	driverOpts := []batch.Option{
		batch.WithLogger(logging.NewComponentLogger(logger, "batch")),
		batch.WithLockDir(cfg.LockDir()),
	}
	if cfg.History.Enabled {
		if store := openHistory(cfg, logger); store != nil {
			defer store.Close()
			driverOpts = append(driverOpts, batch.WithRecorder(store))
		}
	}

	inputDir := "."
	if len(args) > 0 {
		inputDir = args[0]
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := batch.NewDriver(enc, driverOpts...).Run(runCtx, batch.Options{
		InputDir:        inputDir,
		OutputDir:       flags.output,
		Quality:         quality,
		MaxConcurrency:  concurrency,
		InputExtension:  cfg.Batch.InputExtension,
		OutputExtension: cfg.Batch.OutputExtension,
		ExtensionCase:   extCase,
		SkipExisting:    cfg.Batch.SkipExisting,
	})
	if summary.RunID == "" {
		return runErr
	}

	printSummary(cmd.OutOrStdout(), summary, shouldColorize(cmd.OutOrStdout()))
	if runErr != nil {
		return runErr
	}
	if cfg.Batch.FailOnJobError {
		return summary.Err()
	}
	return nil
}

// applyConvertFlags layers command-line overrides onto the loaded config.
func applyConvertFlags(cmd *cobra.Command, cfg *config.Config, flags convertFlags) error {
	if cmd.Flags().Changed("backend") {
		backend := strings.ToLower(strings.TrimSpace(flags.backend))
		if backend != cfg.Encoder.Backend {
			cfg.Encoder.Binary = ""
		}
		cfg.Encoder.Backend = backend
	}
	if cmd.Flags().Changed("quality") {
		cfg.Encoder.Quality = flags.quality
	}
	if flags.skipExisting {
		cfg.Batch.SkipExisting = true
	}
	if flags.upperExt {
		cfg.Batch.ExtensionCase = pathcat.CaseUpper.String()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid option: %w", err)
	}
	return nil
}

func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logger.Warn("run history unavailable", logging.String("path", cfg.HistoryPath()), logging.Error(err))
		return nil
	}
	return store
}
