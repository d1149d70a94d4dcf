package config

import (
	"errors"
	"fmt"
	"strings"

	"wavconv/internal/services"
)

// Validate ensures the configuration is usable. Failures wrap
// services.ErrConfiguration.
func (c *Config) Validate() error {
	err := c.validate()
	if err == nil || errors.Is(err, services.ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %w", services.ErrConfiguration, err)
}

func (c *Config) validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateEncoder() error {
	switch c.Encoder.Backend {
	case BackendLame, BackendFFmpeg:
	default:
		return fmt.Errorf("encoder.backend must be one of %s, %s (got %q)", BackendLame, BackendFFmpeg, c.Encoder.Backend)
	}
	if _, err := QualityValue(c.Encoder.Quality); err != nil {
		return fmt.Errorf("encoder.quality: %w", err)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.MaxConcurrency < 0 {
		return errors.New("batch.max_concurrency must be >= 0")
	}
	if strings.ContainsAny(c.Batch.InputExtension, `/\.`) {
		return fmt.Errorf("batch.input_extension must be a bare extension (got %q)", c.Batch.InputExtension)
	}
	if strings.ContainsAny(c.Batch.OutputExtension, `/\.`) {
		return fmt.Errorf("batch.output_extension must be a bare extension (got %q)", c.Batch.OutputExtension)
	}
	switch c.Batch.ExtensionCase {
	case "lower", "upper":
	default:
		return fmt.Errorf("batch.extension_case must be lower or upper (got %q)", c.Batch.ExtensionCase)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}
