// Package experiment drives the full evaluation matrix: every selected task
// crossed with every prompting mode, strictly sequentially, task-major.
// Each cell runs the same pipeline — reset the target tree, measure the
// failing tests, ask the agent for a fix, apply whatever edits its response
// carries, measure again, score the movement. A stage failure marks that
// one run errored and the matrix moves on; nothing is retried.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"aspectbench/internal/extract"
	"aspectbench/internal/logging"
	"aspectbench/internal/prompt"
	"aspectbench/internal/provider"
	"aspectbench/internal/registry"
	"aspectbench/internal/repostate"
	"aspectbench/internal/score"
	"aspectbench/internal/taskdef"
	"aspectbench/internal/testrun"
)

// experimentIDFormat stamps each experiment with a sortable wall-clock id.
const experimentIDFormat = "20060102_150405"

// Resetter restores a working tree to its committed state.
type Resetter interface {
	Reset(repoRoot string) error
}

// TestExecutor runs the benchmark tests for one task, optionally with the
// regression suite.
type TestExecutor interface {
	RunTask(repoName, taskID string, includeRegression bool) (testrun.Outcome, error)
}

// PromptLoader resolves the prebuilt prompt for a (repo, task, mode) cell.
type PromptLoader interface {
	Load(repo, taskID, mode string) (string, error)
}

// registryPrompts loads prompts from each repo's prompts directory.
type registryPrompts struct {
	reg *registry.Registry
}

func (p registryPrompts) Load(repo, taskID, mode string) (string, error) {
	return prompt.NewSource(p.reg.PromptsDir(repo)).Load(taskID, mode)
}

// Config selects what the experiment covers.
type Config struct {
	// Repos to evaluate. Empty means every registered repo.
	Repos []string
	// TaskIDs restricts the run to a subset. Empty means all tasks found.
	TaskIDs []string
	// Modes are the prompt variants compared per task. Empty means
	// DefaultModes.
	Modes []string
	// WithRegression adds the pre/post regression-suite pass to every run.
	WithRegression bool
	// ResultsDir and ResponsesDir override the registry's default output
	// locations when non-empty.
	ResultsDir   string
	ResponsesDir string
}

// Controller owns one experiment execution.
type Controller struct {
	cfg     Config
	reg     *registry.Registry
	client  provider.Client
	reset   Resetter
	tests   TestExecutor
	prompts PromptLoader
	now     func() time.Time
	log     *slog.Logger
}

// Option overrides a Controller collaborator, mainly for tests.
type Option func(*Controller)

// WithResetter substitutes the working-tree resetter.
func WithResetter(r Resetter) Option {
	return func(c *Controller) { c.reset = r }
}

// WithTestExecutor substitutes the test runner.
func WithTestExecutor(t TestExecutor) Option {
	return func(c *Controller) { c.tests = t }
}

// WithPromptLoader substitutes the prompt source.
func WithPromptLoader(p PromptLoader) Option {
	return func(c *Controller) { c.prompts = p }
}

// WithClock substitutes the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New builds a Controller with production collaborators: git-based reset,
// the marker-filtered test runner, and per-repo prompt directories.
func New(cfg Config, reg *registry.Registry, client provider.Client, opts ...Option) *Controller {
	c := &Controller{
		cfg:     cfg,
		reg:     reg,
		client:  client,
		reset:   repostate.NewManager("git"),
		tests:   testrun.NewRunner(reg, false),
		prompts: registryPrompts{reg: reg},
		now:     time.Now,
		log:     logging.New("experiment"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the whole matrix and persists the result document. The
// returned Document is complete even when individual runs errored; Run
// itself fails only when the matrix cannot be assembled or the document
// cannot be written.
func (c *Controller) Run(ctx context.Context) (*Document, error) {
	modes := c.cfg.Modes
	if len(modes) == 0 {
		modes = DefaultModes
	}
	repos := c.cfg.Repos
	if len(repos) == 0 {
		repos = c.reg.Names()
	}

	started := c.now()
	doc := &Document{
		ExperimentID: started.Format(experimentIDFormat),
		Repos:        repos,
		Provider:     c.client.Name(),
		Model:        c.client.Model(),
		Temperature:  provider.Temperature,
		Modes:        modes,
		StartedAt:    started.UTC(),
		Summary:      make(map[string]*ModeSummary, len(modes)),
	}
	for _, mode := range modes {
		doc.Summary[mode] = &ModeSummary{}
	}

	subset := make(map[string]bool, len(c.cfg.TaskIDs))
	for _, id := range c.cfg.TaskIDs {
		subset[id] = true
	}

	c.log.Info("experiment started",
		"experiment_id", doc.ExperimentID,
		"repos", repos,
		"modes", modes,
		"provider", doc.Provider,
		"model", doc.Model)

	for _, repoName := range repos {
		rc, err := c.reg.Lookup(repoName)
		if err != nil {
			return nil, err
		}
		tasks, err := taskdef.List(c.reg.TasksDir(repoName))
		if err != nil {
			return nil, fmt.Errorf("listing tasks for %s: %w", repoName, err)
		}
		for _, task := range tasks {
			if len(subset) > 0 && !subset[task.ID] {
				continue
			}
			tr := &TaskRuns{
				TaskID:   task.ID,
				TaskName: task.Name,
				Repo:     repoName,
				Runs:     make(map[string]*Run, len(modes)),
			}
			for _, mode := range modes {
				run := c.runOne(ctx, rc, task, mode, doc.ExperimentID)
				tr.Runs[mode] = run
				doc.Summary[mode].add(run)
			}
			doc.Tasks = append(doc.Tasks, tr)
		}
	}

	finished := c.now()
	doc.FinishedAt = finished.UTC()
	doc.ElapsedSec = round2(finished.Sub(started).Seconds())

	path, err := WriteDocument(doc, c.resultsDir())
	if err != nil {
		return doc, err
	}
	c.log.Info("experiment finished",
		"experiment_id", doc.ExperimentID,
		"elapsed_seconds", doc.ElapsedSec,
		"results", path)
	return doc, nil
}

// runOne executes the pipeline for a single (task, mode) cell. It always
// returns a record; failures are captured on the record, never propagated.
func (c *Controller) runOne(ctx context.Context, rc registry.RepoConfig, task taskdef.Task, mode, expID string) *Run {
	run := &Run{
		TaskID:        task.ID,
		TaskName:      task.Name,
		Repo:          rc.Name,
		Mode:          mode,
		Provider:      c.client.Name(),
		Model:         c.client.Model(),
		Timestamp:     c.now().UTC(),
		ExperimentID:  expID,
		FilesModified: []string{},
	}
	log := c.log.With("task", task.ID, "mode", mode)
	log.Info("run started")

	fail := func(stage Stage, kind ErrorKind, err error) *Run {
		run.setError(&RunError{Stage: stage, Kind: kind, Err: err})
		log.Error("run errored", "stage", stage, "kind", kind, "error", err)
		return run
	}

	root, err := c.reg.RepoRoot(rc.Name)
	if err != nil {
		return fail(StageReset, KindConfiguration, err)
	}
	if err := c.reset.Reset(root); err != nil {
		return fail(StageReset, KindEnvironment, err)
	}

	pre, err := c.tests.RunTask(rc.Name, task.ID, c.cfg.WithRegression)
	if err != nil {
		return fail(StagePreTest, KindConfiguration, err)
	}
	run.PreTest = &pre.Task
	run.PreRegression = pre.Regression
	log.Info("pre-test measured", "passed", pre.Task.Passed, "failed", pre.Task.Failed)

	promptText, err := c.prompts.Load(rc.Name, task.ID, mode)
	if err != nil {
		return fail(StageLoadPrompt, KindConfiguration, err)
	}

	invokeStart := time.Now()
	response, err := c.client.Complete(ctx, promptText)
	run.AgentSeconds = round2(time.Since(invokeStart).Seconds())
	if err != nil {
		return fail(StageInvokeAgent, KindTransport, err)
	}
	run.Response = response
	run.ResponseLength = len(response)

	if _, err := WriteResponse(c.responsesDir(), rc.Name, task.ID, mode, expID, response); err != nil {
		log.Warn("could not save raw response", "error", err)
	}

	blocks := extract.Blocks(response)
	run.ResponseCodeLines = extract.TotalCodeLines(blocks)
	run.LinesAdded = extract.LinesToApply(blocks)
	changes := extract.Changes(blocks)
	run.BlocksExtracted = len(changes)
	if len(changes) == 0 {
		return fail(StageExtract, KindExtractionEmpty,
			errors.New("no path-annotated code blocks in response"))
	}

	applier := &extract.Applier{BackendPrefix: rc.BackendPath}
	run.FilesModified = applier.Apply(changes, root)
	log.Info("edits applied", "files", len(run.FilesModified), "lines", run.LinesAdded)

	post, err := c.tests.RunTask(rc.Name, task.ID, c.cfg.WithRegression)
	if err != nil {
		return fail(StagePostTest, KindEnvironment, err)
	}
	run.PostTest = &post.Task
	run.PostRegression = post.Regression

	sc := score.Compare(pre.Task, post.Task)
	run.TestsFixed = sc.Delta
	run.Classification = sc.Classification
	run.Success = sc.Success
	run.HarnessBroken = sc.HarnessBroken
	if pre.Regression != nil && post.Regression != nil {
		run.TrueRegressions = score.TrueRegressions(*pre.Regression, *post.Regression, task.KnownFailing)
	}

	log.Info("run scored",
		"classification", run.Classification,
		"delta", run.TestsFixed,
		"success", run.Success,
		"harness_broken", run.HarnessBroken)
	return run
}

func (c *Controller) resultsDir() string {
	if c.cfg.ResultsDir != "" {
		return c.cfg.ResultsDir
	}
	return c.reg.ResultsDir()
}

func (c *Controller) responsesDir() string {
	if c.cfg.ResponsesDir != "" {
		return c.cfg.ResponsesDir
	}
	return c.reg.ResponsesDir()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
