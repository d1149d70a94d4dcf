// Package logging assembles structured slog loggers and formatting helpers used
// across wavconv.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so batch code can tag log lines
// with run identifiers and job names. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging
