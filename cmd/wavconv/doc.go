// Package main hosts the wavconv CLI entrypoint and command graph.
//
// The root command converts every WAV file in a directory to MP3 using a
// bounded pool of external encoder processes. Subcommands cover preflight
// checks, the run history ledger and configuration scaffolding.
//
// Keep this package lean: conversion logic lives in internal/batch and its
// collaborators; commands here only resolve configuration, apply flag
// overrides and render results.
package main
