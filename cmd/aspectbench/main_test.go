package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aspectbench/internal/experiment"
)

// execCLI runs the root command in-process with the given arguments.
func execCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestTest_ListRepos(t *testing.T) {
	out, err := execCLI(t, "test", "--list-repos", "--harness-dir", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "fastapi-template") || !strings.Contains(out, "djangopackages") {
		t.Errorf("repo listing missing defaults:\n%s", out)
	}
}

func TestTest_NoSelection(t *testing.T) {
	testFlags.listRepos = false // flag values persist across in-process invocations
	_, err := execCLI(t, "test", "--repo", "fastapi-template", "--harness-dir", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "nothing selected") {
		t.Errorf("err = %v, want selection error", err)
	}
}

func TestTasks_List(t *testing.T) {
	harness := t.TempDir()
	tasksDir := filepath.Join(harness, "repos", "fastapi-template", "tasks")
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	body := "id: task01\nname: Fix the duplicate email check\ndifficulty: easy\n"
	if err := os.WriteFile(filepath.Join(tasksDir, "task01.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execCLI(t, "tasks", "--repo", "fastapi-template", "--harness-dir", harness)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "task01") || !strings.Contains(out, "Fix the duplicate email check") {
		t.Errorf("task listing:\n%s", out)
	}
}

func TestTasks_ShowOne(t *testing.T) {
	harness := t.TempDir()
	tasksDir := filepath.Join(harness, "repos", "fastapi-template", "tasks")
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	body := "id: task07\nname: Pagination fix\nknown_failing:\n  - tests/test_x.py::test_flaky\n"
	if err := os.WriteFile(filepath.Join(tasksDir, "task07.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execCLI(t, "tasks", "task07", "--repo", "fastapi-template", "--harness-dir", harness)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"task07", "Pagination fix", "tests/test_x.py::test_flaky"} {
		if !strings.Contains(out, want) {
			t.Errorf("task detail missing %q:\n%s", want, out)
		}
	}
}

func TestReport_FromDocument(t *testing.T) {
	dir := t.TempDir()
	doc := &experiment.Document{
		ExperimentID: "20250314_150926",
		Repos:        []string{"fastapi-template"},
		Provider:     "anthropic",
		Model:        "claude-sonnet-4-20250514",
		Modes:        []string{"baseline", "aspect"},
		StartedAt:    time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
		Summary: map[string]*experiment.ModeSummary{
			"baseline": {Attempted: 1, Failed: 1},
			"aspect":   {Attempted: 1, Passed: 1, TestsFixed: 3},
		},
	}
	path, err := experiment.WriteDocument(doc, dir)
	if err != nil {
		t.Fatal(err)
	}

	out, err := execCLI(t, "report", path, "--harness-dir", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "# Benchmark Experiment 20250314_150926") {
		t.Errorf("markdown report:\n%s", out)
	}

	mdPath := filepath.Join(dir, "report.md")
	if _, err := execCLI(t, "report", path, "-o", mdPath, "--harness-dir", t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(mdPath); err != nil {
		t.Fatalf("report file not written: %v", err)
	}
	// Reset so later invocations print to stdout again.
	reportFlags.output = ""
}

func TestHistory_Empty(t *testing.T) {
	harness := t.TempDir()
	out, err := execCLI(t, "history", "--harness-dir", harness)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No experiments recorded yet.") {
		t.Errorf("history output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(harness, "history.db")); err != nil {
		t.Errorf("history db not created: %v", err)
	}
}

func TestHistory_AfterRecord(t *testing.T) {
	harness := t.TempDir()
	doc := &experiment.Document{
		ExperimentID: "20250314_150926",
		Repos:        []string{"fastapi-template"},
		Provider:     "anthropic",
		Model:        "claude-sonnet-4-20250514",
		Modes:        []string{"baseline", "aspect"},
		StartedAt:    time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
		ElapsedSec:   42,
		Summary: map[string]*experiment.ModeSummary{
			"baseline": {Attempted: 2, Failed: 2},
			"aspect":   {Attempted: 2, Passed: 2, TestsFixed: 5},
		},
	}
	rootFlags.harnessDir = harness
	runFlags.dbPath = ""
	indexExperiment(doc, filepath.Join(harness, "results.json"))

	out, err := execCLI(t, "history", "--harness-dir", harness)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"20250314_150926", "aspect", "+5"} {
		if !strings.Contains(out, want) {
			t.Errorf("history missing %q:\n%s", want, out)
		}
	}
}

func TestRun_RejectsUnknownProvider(t *testing.T) {
	_, err := execCLI(t, "run", "--repo", "fastapi-template",
		"--provider", "other", "--api-key", "k", "--harness-dir", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "unsupported provider") {
		t.Errorf("err = %v, want unsupported provider", err)
	}
}

func TestRun_RequiresRepoSelection(t *testing.T) {
	runFlags.repo = "" // flag values persist across in-process invocations
	_, err := execCLI(t, "run", "--api-key", "k", "--harness-dir", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "no repository selected") {
		t.Errorf("err = %v, want repo selection error", err)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := execCLI(t, "--help")
	if err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"run", "test", "tasks", "prompts", "report", "history"} {
		if !strings.Contains(out, fmt.Sprintf("\n  %s", sub)) && !strings.Contains(out, sub) {
			t.Errorf("help missing subcommand %q", sub)
		}
	}
}
