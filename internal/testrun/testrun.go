// Package testrun spawns a target repository's test runner and parses its
// pass/fail summary. Invocations are restricted by marker so only
// benchmark-relevant tests execute, and always run from the repo's backend
// root so target imports resolve.
package testrun

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"os/exec"
	"time"

	"aspectbench/internal/logging"
	"aspectbench/internal/registry"
	"aspectbench/internal/taskdef"
)

// Runner executes marker-filtered test invocations for registered repos.
type Runner struct {
	reg     *registry.Registry
	verbose bool
}

// NewRunner returns a Runner resolving targets through reg. verbose passes
// -v to the underlying test runner.
func NewRunner(reg *registry.Registry, verbose bool) *Runner {
	return &Runner{reg: reg, verbose: verbose}
}

// Outcome bundles the task invocation with the optional regression-suite
// invocation. The two are independent child processes.
type Outcome struct {
	Task       TestResult  `json:"task"`
	Regression *TestResult `json:"regression,omitempty"`
}

// RunTask runs the benchmark tests for one task. When includeRegression is
// set, the regression suite runs as a second, independent invocation.
func (r *Runner) RunTask(repoName, taskID string, includeRegression bool) (Outcome, error) {
	rc, err := r.reg.Lookup(repoName)
	if err != nil {
		return Outcome{}, err
	}

	testFile, err := taskdef.TestFile(r.reg.TestsDir(repoName), taskID)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := os.Stat(testFile); err != nil {
		return Outcome{}, fmt.Errorf("testrun: test file for task %q not found: %w", taskID, err)
	}

	workDir, err := r.reg.BackendRoot(repoName)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Task: r.invoke(rc, workDir, []string{testFile}, rc.TaskMarker)}

	if includeRegression {
		reg, err := r.RunRegression(repoName)
		if err != nil {
			return out, err
		}
		out.Regression = &reg
	}
	return out, nil
}

// RunRegression runs only the side-effect regression suite. A repo without
// a regression file yields a clean empty result rather than an error.
func (r *Runner) RunRegression(repoName string) (TestResult, error) {
	rc, err := r.reg.Lookup(repoName)
	if err != nil {
		return TestResult{}, err
	}
	workDir, err := r.reg.BackendRoot(repoName)
	if err != nil {
		return TestResult{}, err
	}

	regFile := taskdef.RegressionFile(r.reg.TestsDir(repoName))
	if _, err := os.Stat(regFile); err != nil {
		logging.New("testrun").Warn("no regression suite for repo", "repo", repoName)
		return TestResult{}, nil
	}
	return r.invoke(rc, workDir, []string{regFile}, rc.RegressionMarker), nil
}

// RunAll runs every benchmark test file registered for the repo.
func (r *Runner) RunAll(repoName string) (TestResult, error) {
	rc, err := r.reg.Lookup(repoName)
	if err != nil {
		return TestResult{}, err
	}
	workDir, err := r.reg.BackendRoot(repoName)
	if err != nil {
		return TestResult{}, err
	}

	files, err := taskdef.BenchmarkTestFiles(r.reg.TestsDir(repoName))
	if err != nil {
		return TestResult{}, err
	}
	if len(files) == 0 {
		return TestResult{}, fmt.Errorf("testrun: no benchmark tests found for %q", repoName)
	}
	return r.invoke(rc, workDir, files, rc.TaskMarker), nil
}

// invoke spawns one test-runner child process and parses its output. The
// call blocks until the runner exits; there is deliberately no timeout
// here (a known gap shared with the rest of the pipeline).
func (r *Runner) invoke(rc registry.RepoConfig, workDir string, testFiles []string, marker string) TestResult {
	args := append([]string{}, testFiles...)
	args = append(args, "-m", marker)
	if r.verbose {
		args = append(args, "-v")
	}

	logger := logging.New("testrun")
	logger.Debug("running tests", "cmd", rc.TestCommand, "marker", marker, "cwd", workDir)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(rc.TestCommand, args...)
	cmd.Dir = workDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Seconds()

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			// Runner missing or unstartable. Mirror the shell convention so
			// the result still flows through scoring as harness-broken.
			exitCode = 127
			fmt.Fprintf(&stderr, "%v\n", err)
		}
	}

	passed, failed := ParseCounts(stdout.String())
	return TestResult{
		Passed:         passed,
		Failed:         failed,
		Total:          passed + failed,
		ExitCode:       exitCode,
		Stdout:         tail(stdout.String(), stdoutTailChars),
		Stderr:         tail(stderr.String(), stderrTailChars),
		ElapsedSeconds: math.Round(elapsed*100) / 100,
		FailedTests:    ParseFailedTests(stdout.String()),
	}
}
