// Package batch drives one conversion run: it validates the directories,
// scans the input directory, submits one Job per matching file to a bounded
// pool, waits for the pool to drain and reports a Summary.
//
// Job failures never abort the run. They are collected by the pool and
// surfaced through Summary.Err so the CLI can decide the exit status.
package batch
