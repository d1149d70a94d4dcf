package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"wavconv/internal/batch"
	"wavconv/internal/config"
	"wavconv/internal/services"
	"wavconv/internal/testsupport"
)

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}

func TestConvertEndToEnd(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	testsupport.WriteWAV(t, filepath.Join(dir, "track1.wav"), testsupport.ShortWAV)
	testsupport.WriteWAV(t, filepath.Join(dir, "track2.WAV"), testsupport.ShortWAV)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"-n", "2", dir}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	requireContains(t, out, "Converted")
	requireContains(t, out, "2 file(s)")

	got := strings.Join(listNames(t, dir), ",")
	if got != "notes.txt,track1.mp3,track1.wav,track2.WAV,track2.mp3" {
		t.Fatalf("unexpected directory contents: %s", got)
	}
	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	if err != nil || string(data) != "notes" {
		t.Fatalf("notes.txt changed: %q %v", data, err)
	}
}

func TestConvertOutputDirAndUpperExt(t *testing.T) {
	env := setupCLITestEnv(t)
	in := t.TempDir()
	out := t.TempDir()
	testsupport.WriteWAV(t, filepath.Join(in, "song.wav"), testsupport.ShortWAV)

	if _, _, err := runCLI(t, []string{"-o", out, "--upper-ext", "-q", "low", in}, env.configPath); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got := listNames(t, out); len(got) != 1 || got[0] != "song.MP3" {
		t.Fatalf("unexpected output contents: %v", got)
	}
}

func TestConvertMissingDirectory(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(t.TempDir(), "missing")

	out, _, err := runCLI(t, []string{missing}, env.configPath)
	if !errors.Is(err, services.ErrDirectoryNotFound) {
		t.Fatalf("expected directory not found, got %v", err)
	}
	requireContains(t, err.Error(), "input directory")
	if out != "" {
		t.Fatalf("expected no summary for startup failure, got %q", out)
	}
}

func TestConvertFailedJobsExitNonZero(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteStub(t, env.binDir, "lame", "echo 'Error reading input' >&2\nexit 3")
	dir := t.TempDir()
	testsupport.WriteWAV(t, filepath.Join(dir, "a.wav"), testsupport.ShortWAV)

	out, _, err := runCLI(t, []string{dir}, env.configPath)
	if !errors.Is(err, batch.ErrJobsFailed) {
		t.Fatalf("expected ErrJobsFailed, got %v", err)
	}
	requireContains(t, out, "Failed")
	requireContains(t, out, "Error reading input")
	if names := listNames(t, dir); len(names) != 1 {
		t.Fatalf("expected no output files, got %v", names)
	}

	env.cfg.Batch.FailOnJobError = false
	env.writeConfig(t)
	if _, _, err := runCLI(t, []string{dir}, env.configPath); err != nil {
		t.Fatalf("expected success with fail_on_job_error=false, got %v", err)
	}
}

func TestConvertRejectsUnknownQuality(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"-q", "ultra", t.TempDir()}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestConvertRejectsUnknownBackend(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"--backend", "sox", t.TempDir()}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestConvertIgnoresOutOfRangeMaxCores(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	testsupport.WriteWAV(t, filepath.Join(dir, "a.wav"), testsupport.ShortWAV)

	for _, value := range []string{"0", "-3", "100000", "many"} {
		if _, _, err := runCLI(t, []string{"-n", value, dir}, env.configPath); err != nil {
			t.Fatalf("max-cores %q: %v", value, err)
		}
	}
}

func TestConvertCanceledContext(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	testsupport.WriteWAV(t, filepath.Join(dir, "a.wav"), testsupport.ShortWAV)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd := newRootCommand()
	cmd.SetOut(&strings.Builder{})
	cmd.SetArgs([]string{"--config", env.configPath, dir})
	err := cmd.ExecuteContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "a.mp3")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output after cancellation")
	}
}

func TestUnknownFlag(t *testing.T) {
	_, _, err := runCLI(t, []string{"--bogus"}, "")
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	requireContains(t, err.Error(), "--bogus")
}

func TestVersionFlag(t *testing.T) {
	for _, flag := range []string{"--version", "-v"} {
		out, _, err := runCLI(t, []string{flag}, "")
		if err != nil {
			t.Fatalf("%s: %v", flag, err)
		}
		if out != "wavconv "+version+"\n" {
			t.Fatalf("%s: unexpected output %q", flag, out)
		}
	}
}

func TestUsageFlag(t *testing.T) {
	for _, flag := range []string{"--usage", "--help", "-h"} {
		out, _, err := runCLI(t, []string{flag}, "")
		if err != nil {
			t.Fatalf("%s: %v", flag, err)
		}
		requireContains(t, out, "Usage:")
		requireContains(t, out, "--max-cores")
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check", t.TempDir()}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "LAME")
	requireContains(t, out, "found")
	requireContains(t, out, "Input/output directory")
	requireContains(t, out, env.configPath)

	_, _, err = runCLI(t, []string{"check", filepath.Join(t.TempDir(), "nope")}, env.configPath)
	if err == nil {
		t.Fatal("expected failure for missing directory")
	}
}

func TestCheckCommandMissingEncoder(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Encoder.Binary = filepath.Join(env.baseDir, "no-such-lame")
	env.writeConfig(t)

	out, _, err := runCLI(t, []string{"check", t.TempDir()}, env.configPath)
	if err == nil {
		t.Fatal("expected failure for missing encoder")
	}
	requireContains(t, out, "missing")
}

func TestHistoryCommands(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHistory())

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	dir := t.TempDir()
	testsupport.WriteWAV(t, filepath.Join(dir, "take.wav"), testsupport.ShortWAV)
	if _, _, err := runCLI(t, []string{dir}, env.configPath); err != nil {
		t.Fatalf("convert: %v", err)
	}

	store := testsupport.MustOpenHistory(t, env.cfg)
	runs, err := store.Recent(context.Background(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %d (%v)", len(runs), err)
	}
	runID := runs[0].ID

	out, _, err = runCLI(t, []string{"history", "--limit", "5"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, runID)

	out, _, err = runCLI(t, []string{"history", "show", runID}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "take.wav")
	requireContains(t, out, "encoded")

	if _, _, err := runCLI(t, []string{"history", "show", "no-such-run"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestConfigInitValidateShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "show", "--format", "yaml"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "backend: lame")
	requireContains(t, out, env.cfg.Paths.StateDir)
}
