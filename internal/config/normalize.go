package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoder()
	c.normalizeBatch()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" || c.Paths.StateDir == defaultStateDir {
		c.Paths.StateDir = defaultStateDirPath()
	}
	var err error
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func defaultStateDirPath() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "wavconv")
	}
	return defaultStateDir
}

func (c *Config) normalizeEncoder() {
	c.Encoder.Backend = strings.ToLower(strings.TrimSpace(c.Encoder.Backend))
	if c.Encoder.Backend == "" {
		c.Encoder.Backend = defaultEncoderBackend
	}
	c.Encoder.Binary = strings.TrimSpace(c.Encoder.Binary)
	c.Encoder.Quality = strings.ToLower(strings.TrimSpace(c.Encoder.Quality))
	if c.Encoder.Quality == "" {
		c.Encoder.Quality = defaultQuality
	}
	args := c.Encoder.ExtraArgs[:0]
	for _, arg := range c.Encoder.ExtraArgs {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Encoder.ExtraArgs = args
}

func (c *Config) normalizeBatch() {
	c.Batch.InputExtension = trimExtension(c.Batch.InputExtension, defaultInputExtension)
	c.Batch.OutputExtension = trimExtension(c.Batch.OutputExtension, defaultOutputExtension)
	c.Batch.ExtensionCase = strings.ToLower(strings.TrimSpace(c.Batch.ExtensionCase))
	if c.Batch.ExtensionCase == "" {
		c.Batch.ExtensionCase = defaultExtensionCase
	}
}

// trimExtension strips whitespace and a leading dot so ".WAV" and "WAV" compare alike.
func trimExtension(value, fallback string) string {
	value = strings.TrimPrefix(strings.TrimSpace(value), ".")
	if value == "" {
		return fallback
	}
	return value
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		var err error
		if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}
