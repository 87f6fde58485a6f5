package testrun

import (
	"regexp"
	"strconv"
)

// Tail-retention limits for captured child output. The pytest summary and
// failure context live at the tail; unbounded retention is rejected so a
// chatty run cannot bloat the persisted result document.
const (
	stdoutTailChars = 5000
	stderrTailChars = 2000
)

// TestResult is one test-runner invocation, parsed. Produced exactly twice
// per experiment run (pre and post) and immutable once constructed.
type TestResult struct {
	Passed         int     `json:"tests_passed"`
	Failed         int     `json:"tests_failed"`
	Total          int     `json:"tests_total"`
	ExitCode       int     `json:"exit_code"`
	Stdout         string  `json:"stdout"`
	Stderr         string  `json:"stderr"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	// FailedTests holds test ids parsed from "FAILED <id>" lines within the
	// retained output tail, for name-level regression accounting.
	FailedTests []string `json:"failed_tests,omitempty"`
}

var (
	passedRe     = regexp.MustCompile(`(\d+)\s+passed`)
	failedRe     = regexp.MustCompile(`(\d+)\s+failed`)
	failedTestRe = regexp.MustCompile(`(?m)^FAILED\s+(\S+)`)
)

// ParseCounts extracts passed/failed counts from runner output. When the
// summary line is absent both counts stay zero regardless of the exit code;
// that ambiguous state is the "harness broken" signal, distinct from an
// empty suite that ran cleanly.
func ParseCounts(output string) (passed, failed int) {
	if m := passedRe.FindStringSubmatch(output); m != nil {
		passed, _ = strconv.Atoi(m[1])
	}
	if m := failedRe.FindStringSubmatch(output); m != nil {
		failed, _ = strconv.Atoi(m[1])
	}
	return passed, failed
}

// ParseFailedTests extracts the ids of individual failing tests.
func ParseFailedTests(output string) []string {
	var ids []string
	for _, m := range failedTestRe.FindAllStringSubmatch(output, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

// HarnessBroken reports whether the runner produced no parsed outcome while
// exiting non-zero: the target code failed to load or collect at all. This
// must never be conflated with "tests ran and some failed".
func (r TestResult) HarnessBroken() bool {
	return r.Total == 0 && r.ExitCode != 0
}

// EmptySuite reports a genuinely empty suite that the runner completed
// cleanly.
func (r TestResult) EmptySuite() bool {
	return r.Total == 0 && r.ExitCode == 0
}

// AllPassed reports whether the invocation exited cleanly.
func (r TestResult) AllPassed() bool {
	return r.ExitCode == 0
}

// tail keeps the trailing max characters of s.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
