// Package services defines shared utilities consumed by the batch driver and
// the external encoder integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and job names for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (configuration, missing directories, external tools) with
//     errors.Is and map them to exit codes.
package services
