// Package score classifies experiment runs by comparing before/after test
// results. Classification is a pure function of parsed counts; whether the
// post-edit harness still runs at all is tracked separately so "task not
// solved" is never confused with "code no longer loads".
package score

import (
	"aspectbench/internal/testrun"
)

// Classification names the outcome of one run.
type Classification string

const (
	// Fix: the edit made previously failing tests pass.
	Fix Classification = "fix"
	// Regression: the edit made previously passing tests fail.
	Regression Classification = "regression"
	// NoOp: the pass count did not move.
	NoOp Classification = "no-op"
)

// Score is the derived outcome of one (task, mode) run.
type Score struct {
	// Delta is post.Passed - pre.Passed.
	Delta          int            `json:"delta"`
	Classification Classification `json:"classification"`
	// Success is the binary run outcome: every task-targeted test passes
	// after the edit. Independent of Delta's sign; a run that started green
	// and stayed green is a success with Delta zero.
	Success bool `json:"success"`
	// HarnessBroken marks a post state where the runner produced no parsed
	// outcome and exited non-zero.
	HarnessBroken bool `json:"harness_broken"`
}

// Compare derives the run score from the pre and post task-suite results.
func Compare(pre, post testrun.TestResult) Score {
	delta := post.Passed - pre.Passed

	classification := NoOp
	switch {
	case delta > 0:
		classification = Fix
	case delta < 0:
		classification = Regression
	}

	return Score{
		Delta:          delta,
		Classification: classification,
		Success:        post.Failed == 0 && !post.HarnessBroken(),
		HarnessBroken:  post.HarnessBroken(),
	}
}

// TrueRegressions names the regression-suite tests that were passing before
// the attempt and fail afterward, excluding knownFailing — the explicit
// per-task set of tests already failing prior to any edit. The exclusion
// set is configuration, never inferred.
func TrueRegressions(preReg, postReg testrun.TestResult, knownFailing []string) []string {
	excluded := make(map[string]bool, len(preReg.FailedTests)+len(knownFailing))
	for _, id := range preReg.FailedTests {
		excluded[id] = true
	}
	for _, id := range knownFailing {
		excluded[id] = true
	}

	var regressions []string
	for _, id := range postReg.FailedTests {
		if !excluded[id] {
			regressions = append(regressions, id)
		}
	}
	return regressions
}
