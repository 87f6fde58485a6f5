package experiment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"aspectbench/internal/registry"
	"aspectbench/internal/testrun"
)

// fixtureEnv wires a Controller against an on-disk harness layout with
// every external effect stubbed. The stubs share an event log so tests can
// assert stage ordering.
type fixtureEnv struct {
	reg      *registry.Registry
	repoRoot string
	events   *[]string
}

func newFixture(t *testing.T, taskIDs ...string) *fixtureEnv {
	t.Helper()
	harness := t.TempDir()
	bench := t.TempDir()

	reg, err := registry.New(harness, bench, []registry.RepoConfig{{
		Name:        "demo",
		Title:       "Demo",
		Path:        "demo",
		BackendPath: "backend",
	}})
	if err != nil {
		t.Fatal(err)
	}

	tasksDir := reg.TasksDir("demo")
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i, id := range taskIDs {
		body := fmt.Sprintf("id: %s\nname: Task %s\n", id, id)
		path := filepath.Join(tasksDir, fmt.Sprintf("task%02d.yaml", i+1))
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	root, err := reg.RepoRoot("demo")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "backend"), 0o755); err != nil {
		t.Fatal(err)
	}

	events := []string{}
	return &fixtureEnv{reg: reg, repoRoot: root, events: &events}
}

func (f *fixtureEnv) record(ev string) { *f.events = append(*f.events, ev) }

// fixMarker is the file the stub agent "writes" when it solves a task. The
// agent annotates it app/fix.py, so the applier's backend fallback lands it
// under backend/app/. The stub test executor keys its post-edit result on
// this file's presence, and the stub resetter deletes it, so
// reset/apply/re-test interact the same way they do against a real tree.
func (f *fixtureEnv) fixMarker() string {
	return filepath.Join(f.repoRoot, "backend", "app", "fix.py")
}

type stubResetter struct{ env *fixtureEnv }

func (r stubResetter) Reset(repoRoot string) error {
	r.env.record("reset")
	os.Remove(r.env.fixMarker())
	return nil
}

type stubTests struct {
	env *fixtureEnv
}

func (s stubTests) RunTask(repoName, taskID string, includeRegression bool) (testrun.Outcome, error) {
	s.env.record("test")
	res := testrun.TestResult{Passed: 5, Failed: 3, Total: 8, ExitCode: 1}
	if data, err := os.ReadFile(s.env.fixMarker()); err == nil && strings.Contains(string(data), "fixed") {
		res = testrun.TestResult{Passed: 8, Failed: 0, Total: 8, ExitCode: 0}
	}
	out := testrun.Outcome{Task: res}
	if includeRegression {
		reg := testrun.TestResult{Passed: 20, Failed: 1, Total: 21, ExitCode: 1,
			FailedTests: []string{"tests/test_x.py::test_flaky"}}
		if res.Failed == 0 {
			reg = testrun.TestResult{Passed: 19, Failed: 2, Total: 21, ExitCode: 1,
				FailedTests: []string{"tests/test_x.py::test_flaky", "tests/test_y.py::test_broken"}}
		}
		out.Regression = &reg
	}
	return out, nil
}

type stubPrompts struct{ env *fixtureEnv }

func (p stubPrompts) Load(repo, taskID, mode string) (string, error) {
	return fmt.Sprintf("solve %s for %s in %s mode", taskID, repo, mode), nil
}

// stubAgent answers with a path-annotated fence whose content depends on
// the prompting mode; a fixed reply or error can be forced instead.
type stubAgent struct {
	env   *fixtureEnv
	reply string
	err   error
}

func (a stubAgent) Name() string  { return "anthropic" }
func (a stubAgent) Model() string { return "claude-sonnet-4-20250514" }

func (a stubAgent) Complete(_ context.Context, promptText string) (string, error) {
	a.env.record("invoke")
	if a.err != nil {
		return "", a.err
	}
	if a.reply != "" {
		return a.reply, nil
	}
	if strings.Contains(promptText, "aspect mode") {
		return "Here is the fix:\n```python\n# filepath: app/fix.py\nresult = 'fixed'\n```\n", nil
	}
	return "```python\n# filepath: app/fix.py\nresult = 'noop'\n```\n", nil
}

func newTestController(t *testing.T, env *fixtureEnv, cfg Config, agent stubAgent) *Controller {
	t.Helper()
	cfg.Repos = []string{"demo"}
	return New(cfg, env.reg, agent,
		WithResetter(stubResetter{env: env}),
		WithTestExecutor(stubTests{env: env}),
		WithPromptLoader(stubPrompts{env: env}),
		WithClock(func() time.Time {
			return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
		}))
}

func TestRun_FullMatrix(t *testing.T) {
	env := newFixture(t, "task01", "task02")
	c := newTestController(t, env, Config{}, stubAgent{env: env})

	doc, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if doc.ExperimentID != "20250314_150926" {
		t.Errorf("experiment id = %q", doc.ExperimentID)
	}
	if len(doc.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(doc.Tasks))
	}
	for _, tr := range doc.Tasks {
		if len(tr.Runs) != 2 {
			t.Fatalf("task %s runs = %d, want 2", tr.TaskID, len(tr.Runs))
		}
	}

	// Aspect-mode edits fix the suite; baseline edits do not move it.
	for _, tr := range doc.Tasks {
		aspect, baseline := tr.Runs["aspect"], tr.Runs["baseline"]
		if !aspect.Success || aspect.TestsFixed != 3 || aspect.Classification != "fix" {
			t.Errorf("task %s aspect run = %+v", tr.TaskID, aspect)
		}
		if baseline.Success || baseline.TestsFixed != 0 || baseline.Classification != "no-op" {
			t.Errorf("task %s baseline run = %+v", tr.TaskID, baseline)
		}
	}

	want := map[string]*ModeSummary{
		"baseline": {Attempted: 2, Failed: 2,
			ResponseChars: doc.Summary["baseline"].ResponseChars,
			CodeLines:     doc.Summary["baseline"].CodeLines,
			LinesAdded:    doc.Summary["baseline"].LinesAdded},
		"aspect": {Attempted: 2, Passed: 2, TestsFixed: 6,
			ResponseChars: doc.Summary["aspect"].ResponseChars,
			CodeLines:     doc.Summary["aspect"].CodeLines,
			LinesAdded:    doc.Summary["aspect"].LinesAdded},
	}
	if diff := cmp.Diff(want, doc.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

// Each run resets the tree exactly once, before its pre-edit measurement.
func TestRun_StageOrder(t *testing.T) {
	env := newFixture(t, "task01")
	c := newTestController(t, env, Config{}, stubAgent{env: env})

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"reset", "test", "invoke", "test",
		"reset", "test", "invoke", "test",
	}
	if diff := cmp.Diff(want, *env.events); diff != "" {
		t.Errorf("event order mismatch (-want +got):\n%s", diff)
	}
}

// The cumulative per-mode delta equals the sum of per-run deltas.
func TestRun_AggregateDeltaConsistency(t *testing.T) {
	env := newFixture(t, "task01", "task02", "task03")
	c := newTestController(t, env, Config{}, stubAgent{env: env})

	doc, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for _, mode := range doc.Modes {
		sum := 0
		for _, tr := range doc.Tasks {
			sum += tr.Runs[mode].TestsFixed
		}
		if sum != doc.Summary[mode].TestsFixed {
			t.Errorf("mode %s: sum of deltas %d != summary %d",
				mode, sum, doc.Summary[mode].TestsFixed)
		}
	}
}

func TestRun_TaskSubset(t *testing.T) {
	env := newFixture(t, "task01", "task02", "task03")
	c := newTestController(t, env, Config{TaskIDs: []string{"task02"}}, stubAgent{env: env})

	doc, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Tasks) != 1 || doc.Tasks[0].TaskID != "task02" {
		t.Fatalf("tasks = %+v, want only task02", doc.Tasks)
	}
}

// A provider failure errors that run and the matrix keeps going.
func TestRun_TransportErrorDoesNotAbortMatrix(t *testing.T) {
	env := newFixture(t, "task01", "task02")
	c := newTestController(t, env, Config{}, stubAgent{env: env, err: errors.New("api: overloaded")})

	doc, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(doc.Tasks))
	}
	for _, tr := range doc.Tasks {
		for mode, run := range tr.Runs {
			if run.Error == nil {
				t.Fatalf("task %s mode %s: expected recorded error", tr.TaskID, mode)
			}
			if run.Error.Stage != StageInvokeAgent || run.Error.Kind != KindTransport {
				t.Errorf("error = %+v", run.Error)
			}
		}
	}
	if doc.Summary["baseline"].Errored != 2 || doc.Summary["aspect"].Errored != 2 {
		t.Errorf("summary = %+v", doc.Summary)
	}
}

func TestRun_EmptyExtractionIsRunError(t *testing.T) {
	env := newFixture(t, "task01")
	agent := stubAgent{env: env, reply: "I would look at the router configuration first."}
	c := New(Config{Repos: []string{"demo"}, Modes: []string{"chatty"}}, env.reg, agent,
		WithResetter(stubResetter{env: env}),
		WithTestExecutor(stubTests{env: env}),
		WithPromptLoader(stubPrompts{env: env}),
	)

	doc, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	run := doc.Tasks[0].Runs["chatty"]
	if run.Error == nil || run.Error.Kind != KindExtractionEmpty {
		t.Fatalf("run error = %+v, want extraction_empty", run.Error)
	}
	if run.PostTest != nil {
		t.Error("post-test should not run after empty extraction")
	}
}

func TestRun_TrueRegressionsExcludeKnownFailing(t *testing.T) {
	env := newFixture(t, "task01")
	tasksDir := env.reg.TasksDir("demo")
	body := "id: task01\nname: Task one\nknown_failing:\n  - tests/test_x.py::test_flaky\n"
	if err := os.WriteFile(filepath.Join(tasksDir, "task01.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(Config{Repos: []string{"demo"}, WithRegression: true}, env.reg, stubAgent{env: env},
		WithResetter(stubResetter{env: env}),
		WithTestExecutor(stubTests{env: env}),
		WithPromptLoader(stubPrompts{env: env}),
	)

	doc, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	run := doc.Tasks[0].Runs["aspect"]
	if run.PreRegression == nil || run.PostRegression == nil {
		t.Fatal("regression results missing from run record")
	}
	want := []string{"tests/test_y.py::test_broken"}
	if diff := cmp.Diff(want, run.TrueRegressions); diff != "" {
		t.Errorf("true regressions mismatch (-want +got):\n%s", diff)
	}
	if doc.Summary["aspect"].TrueRegressions != 1 {
		t.Errorf("summary true regressions = %d, want 1", doc.Summary["aspect"].TrueRegressions)
	}
}

func TestRun_PersistsDocumentAndResponses(t *testing.T) {
	env := newFixture(t, "task01")
	c := newTestController(t, env, Config{}, stubAgent{env: env})

	doc, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	resultsPath := filepath.Join(env.reg.ResultsDir(),
		"aspect_ab_experiment_"+doc.ExperimentID+".json")
	loaded, err := ReadDocument(resultsPath)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ExperimentID != doc.ExperimentID || len(loaded.Tasks) != 1 {
		t.Errorf("reloaded document = %+v", loaded)
	}

	for _, mode := range doc.Modes {
		respPath := filepath.Join(env.reg.ResponsesDir(),
			ResponseFileName("demo", "task01", mode, doc.ExperimentID))
		data, err := os.ReadFile(respPath)
		if err != nil {
			t.Fatalf("response file for %s: %v", mode, err)
		}
		if !strings.Contains(string(data), "filepath: app/fix.py") {
			t.Errorf("response file for %s missing raw reply", mode)
		}
	}
}

func TestResultsFileName(t *testing.T) {
	if got := ResultsFileName("x", []string{"baseline", "aspect"}); got != "aspect_ab_experiment_x.json" {
		t.Errorf("default modes name = %q", got)
	}
	if got := ResultsFileName("x", []string{"baseline", "aspect", "oracle"}); got != "benchmark_experiment_x.json" {
		t.Errorf("custom modes name = %q", got)
	}
	if got := ResultsFileName("x", []string{"aspect", "baseline"}); got != "benchmark_experiment_x.json" {
		t.Errorf("order-sensitive name = %q", got)
	}
}
