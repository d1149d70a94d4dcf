// Package config loads, normalizes, and validates wavconv configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML or YAML files, and honours XDG_STATE_HOME for the
// state directory. The Config type centralizes the encoder, batch, history and
// logging knobs so the CLI can merge flag overrides on top of one value.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
