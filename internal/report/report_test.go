package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aspectbench/internal/experiment"
	"aspectbench/internal/report"
	"aspectbench/internal/testrun"
)

func sampleDocument() *experiment.Document {
	pre := &testrun.TestResult{Passed: 5, Failed: 3, Total: 8, ExitCode: 1}
	fixed := &testrun.TestResult{Passed: 8, Failed: 0, Total: 8}
	return &experiment.Document{
		ExperimentID: "20250314_150926",
		Repos:        []string{"fastapi-template"},
		Provider:     "anthropic",
		Model:        "claude-sonnet-4-20250514",
		Modes:        []string{"baseline", "aspect"},
		StartedAt:    time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
		ElapsedSec:   96.5,
		Tasks: []*experiment.TaskRuns{
			{
				TaskID:   "task01",
				TaskName: "Fix the duplicate email check",
				Repo:     "fastapi-template",
				Runs: map[string]*experiment.Run{
					"baseline": {
						TaskID: "task01", Mode: "baseline",
						PreTest: pre, PostTest: pre,
						Classification: "no-op",
					},
					"aspect": {
						TaskID: "task01", Mode: "aspect",
						PreTest: pre, PostTest: fixed,
						TestsFixed: 3, Classification: "fix", Success: true,
						TrueRegressions: []string{"tests/test_users.py::test_listing"},
					},
				},
			},
			{
				TaskID:   "task02",
				TaskName: "Handle missing pagination params",
				Repo:     "fastapi-template",
				Runs: map[string]*experiment.Run{
					"baseline": {
						TaskID: "task02", Mode: "baseline",
						Error: &experiment.ErrorRecord{
							Stage:   experiment.StageInvokeAgent,
							Kind:    experiment.KindTransport,
							Message: "api: overloaded",
						},
					},
					"aspect": {
						TaskID: "task02", Mode: "aspect",
						PreTest: pre, PostTest: fixed,
						TestsFixed: 3, Classification: "fix", Success: true,
					},
				},
			},
		},
		Summary: map[string]*experiment.ModeSummary{
			"baseline": {Attempted: 2, Failed: 1, Errored: 1},
			"aspect":   {Attempted: 2, Passed: 2, TestsFixed: 6, TrueRegressions: 1},
		},
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	report.Console(&buf, sampleDocument())
	out := buf.String()

	for _, want := range []string{
		"20250314_150926",
		"claude-sonnet-4-20250514",
		"baseline",
		"aspect",
		"task01",
		"✓ +3",
		"error: transport",
		"Errored runs:",
		"api: overloaded",
		"1m 36s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdown(t *testing.T) {
	out := report.Markdown(sampleDocument())

	for _, want := range []string{
		"# Benchmark Experiment 20250314_150926",
		"**Model:** claude-sonnet-4-20250514",
		"## Summary",
		"## Output statistics",
		"## Per-task results",
		"| Task",
		"## True regressions",
		"task01 (aspect): tests/test_users.py::test_listing",
		"## Errored runs",
		"task02 (baseline) at invoke_agent: api: overloaded",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown report missing %q", want)
		}
	}
}

func TestWriteMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	if err := report.WriteMarkdown(sampleDocument(), path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Benchmark Experiment") {
		t.Errorf("written report starts with %q", string(data[:40]))
	}
}

func TestLatestResults(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"aspect_ab_experiment_20250101_000000.json",
		"benchmark_experiment_20250301_120000.json",
		"aspect_ab_experiment_20250215_090000.json",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := report.LatestResults(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "benchmark_experiment_20250301_120000.json" {
		t.Errorf("latest = %s", got)
	}
}

func TestLatestResults_Empty(t *testing.T) {
	if _, err := report.LatestResults(t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}
