package experiment

import (
	"time"

	"aspectbench/internal/score"
	"aspectbench/internal/testrun"
)

// DefaultModes is the canonical A/B pair compared when no modes are given.
var DefaultModes = []string{"baseline", "aspect"}

// Stage names one step of the per-run state machine, in execution order.
type Stage string

const (
	StageReset       Stage = "reset"
	StagePreTest     Stage = "pre_test"
	StageLoadPrompt  Stage = "load_prompt"
	StageInvokeAgent Stage = "invoke_agent"
	StageExtract     Stage = "extract"
	StageApply       Stage = "apply"
	StagePostTest    Stage = "post_test"
	StageScore       Stage = "score"
	StagePersist     Stage = "persist"
)

// ErrorKind classifies a run-level failure.
type ErrorKind string

const (
	// KindConfiguration: unknown task or repository, missing prompt file.
	KindConfiguration ErrorKind = "configuration"
	// KindTransport: the provider call failed. Never retried.
	KindTransport ErrorKind = "transport"
	// KindExtractionEmpty: no path-annotated fenced blocks in the response.
	KindExtractionEmpty ErrorKind = "extraction_empty"
	// KindEnvironment: reset or test invocation could not run at all.
	KindEnvironment ErrorKind = "environment"
)

// RunError is a stage failure recorded on a run. It halts only that run;
// the controller advances to the next (task, mode) pair unconditionally.
type RunError struct {
	Stage Stage
	Kind  ErrorKind
	Err   error
}

func (e *RunError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() error { return e.Err }

// ErrorRecord is the serialized form of a RunError.
type ErrorRecord struct {
	Stage   Stage     `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Run is one (task, mode) execution through the full pipeline. It is
// mutated monotonically through the stages, then serialized and never
// touched again.
type Run struct {
	TaskID       string    `json:"task_id"`
	TaskName     string    `json:"task_name"`
	Repo         string    `json:"repo"`
	Mode         string    `json:"mode"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Timestamp    time.Time `json:"timestamp"`
	ExperimentID string    `json:"experiment_id"`

	PreTest  *testrun.TestResult `json:"pre_test"`
	PostTest *testrun.TestResult `json:"post_test"`
	// Regression-suite results, present only when the regression pass is
	// enabled for the experiment.
	PreRegression  *testrun.TestResult `json:"pre_regression,omitempty"`
	PostRegression *testrun.TestResult `json:"post_regression,omitempty"`

	Response          string  `json:"llm_response"`
	ResponseLength    int     `json:"llm_response_length"`
	ResponseCodeLines int     `json:"llm_response_code_lines"`
	AgentSeconds      float64 `json:"llm_time_seconds"`

	BlocksExtracted int      `json:"code_blocks_extracted"`
	LinesAdded      int      `json:"lines_added_to_repo"`
	FilesModified   []string `json:"files_modified"`

	TestsFixed      int                  `json:"tests_fixed"`
	Classification  score.Classification `json:"classification,omitempty"`
	Success         bool                 `json:"success"`
	HarnessBroken   bool                 `json:"harness_broken"`
	TrueRegressions []string             `json:"true_regressions,omitempty"`

	Error *ErrorRecord `json:"error"`
}

// setError records a stage failure on the run.
func (r *Run) setError(err *RunError) {
	r.Error = &ErrorRecord{Stage: err.Stage, Kind: err.Kind, Message: err.Err.Error()}
}

// ModeSummary is the per-mode aggregate, updated incrementally after every
// run. The cumulative TestsFixed always equals the sum of per-run deltas.
type ModeSummary struct {
	Attempted int `json:"total"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Errored   int `json:"errors"`

	TestsFixed      int `json:"tests_fixed"`
	TrueRegressions int `json:"true_regressions"`

	ResponseChars int `json:"response_chars"`
	CodeLines     int `json:"code_lines"`
	LinesAdded    int `json:"lines_added"`
}

// add folds one completed run into the summary.
func (s *ModeSummary) add(r *Run) {
	s.Attempted++
	switch {
	case r.Error != nil:
		s.Errored++
	case r.Success:
		s.Passed++
	default:
		s.Failed++
	}

	s.TestsFixed += r.TestsFixed
	s.TrueRegressions += len(r.TrueRegressions)
	s.ResponseChars += r.ResponseLength
	s.CodeLines += r.ResponseCodeLines
	s.LinesAdded += r.LinesAdded
}

// TaskRuns groups one task's runs across modes, keyed by mode name.
type TaskRuns struct {
	TaskID   string          `json:"task_id"`
	TaskName string          `json:"task_name"`
	Repo     string          `json:"repo"`
	Runs     map[string]*Run `json:"runs"`
}

// Document is the one structured result persisted at the end of the whole
// matrix, containing every run.
type Document struct {
	ExperimentID string   `json:"experiment_id"`
	Repos        []string `json:"repos"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	Temperature  float64  `json:"temperature"`
	Modes        []string `json:"modes"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	ElapsedSec float64   `json:"total_elapsed_seconds"`

	Tasks   []*TaskRuns             `json:"tasks"`
	Summary map[string]*ModeSummary `json:"summary"`
}
