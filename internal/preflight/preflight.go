package preflight

import (
	"wavconv/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Dirs are the batch directories checked alongside the state directory.
// An empty Output means the input directory receives the MP3 files.
type Dirs struct {
	Input  string
	Output string
}

// RunAll executes the filesystem checks for a run.
func RunAll(cfg *config.Config, dirs Dirs) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if dirs.Input != "" {
		if dirs.Output == "" {
			results = append(results, CheckDirectoryAccess("Input/output directory", dirs.Input))
		} else {
			results = append(results, CheckReadableDirectory("Input directory", dirs.Input))
		}
	}
	if dirs.Output != "" {
		results = append(results, CheckDirectoryAccess("Output directory", dirs.Output))
	}

	// State directory (always checked)
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
