// Package registry holds the immutable configuration for benchmark target
// repositories. The registry is built once at process start, either from the
// compiled-in defaults or from a YAML/JSON override file, and passed by
// reference to every component; there is no mutable global state.
package registry

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrUnknownRepo is returned when a repository name is not registered.
var ErrUnknownRepo = errors.New("unknown repository")

// RepoConfig describes one benchmark target repository.
type RepoConfig struct {
	// Name is the short registry key (e.g. "fastapi-template").
	Name string `json:"name" yaml:"name"`
	// Title is the human-readable repository name.
	Title string `json:"title" yaml:"title"`
	// Path is the checkout directory under the benchmarks root.
	Path string `json:"path" yaml:"path"`
	// BackendPath is the backend root relative to the repo root.
	// Empty means the repo root itself (root-level projects).
	BackendPath string `json:"backend_path" yaml:"backend_path"`
	// TestPath is where the target's own tests live, relative to the repo root.
	TestPath string `json:"test_path" yaml:"test_path"`
	Language string `json:"language" yaml:"language"`
	GitURL   string `json:"git_url" yaml:"git_url"`
	// TestCommand is the test runner binary. Default "pytest".
	TestCommand string `json:"test_command" yaml:"test_command"`
	// TaskMarker restricts runs to benchmark-relevant tests.
	TaskMarker string `json:"task_marker" yaml:"task_marker"`
	// RegressionMarker selects the side-effect regression suite.
	RegressionMarker string `json:"regression_marker" yaml:"regression_marker"`
}

// Registry is the resolved, read-only set of target repositories plus the
// directory roots everything is resolved against.
type Registry struct {
	harnessDir     string
	benchmarksRoot string
	repos          map[string]RepoConfig
	order          []string
}

const (
	defaultTestCommand      = "pytest"
	defaultTaskMarker       = "aspect_bench"
	defaultRegressionMarker = "regression"
)

func defaultRepos() []RepoConfig {
	return []RepoConfig{
		{
			Name:        "fastapi-template",
			Title:       "FastAPI Full-Stack Template",
			Path:        "fastapi-template",
			BackendPath: "backend",
			TestPath:    "backend/tests",
			Language:    "python",
			GitURL:      "https://github.com/fastapi/full-stack-fastapi-template.git",
		},
		{
			Name:        "djangopackages",
			Title:       "Django Packages - Directory of Reusable Django Apps",
			Path:        "djangopackages",
			BackendPath: "", // root-level Django project
			TestPath:    "", // tests distributed across apps
			Language:    "python",
			GitURL:      "https://github.com/djangopackages/djangopackages.git",
		},
	}
}

// Default builds a Registry with the compiled-in target repositories.
// harnessDir is where per-repo tasks/tests/prompts live; benchmarksRoot is
// where the target repositories are cloned.
func Default(harnessDir, benchmarksRoot string) *Registry {
	r, _ := build(harnessDir, benchmarksRoot, defaultRepos())
	return r
}

// New builds a Registry from an explicit repo list. Repo names must be unique.
func New(harnessDir, benchmarksRoot string, repos []RepoConfig) (*Registry, error) {
	return build(harnessDir, benchmarksRoot, repos)
}

func build(harnessDir, benchmarksRoot string, repos []RepoConfig) (*Registry, error) {
	r := &Registry{
		harnessDir:     harnessDir,
		benchmarksRoot: benchmarksRoot,
		repos:          make(map[string]RepoConfig, len(repos)),
	}
	for _, rc := range repos {
		if rc.Name == "" {
			return nil, fmt.Errorf("registry: repo with empty name")
		}
		if _, dup := r.repos[rc.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate repo %q", rc.Name)
		}
		if rc.Path == "" {
			rc.Path = rc.Name
		}
		if rc.TestCommand == "" {
			rc.TestCommand = defaultTestCommand
		}
		if rc.TaskMarker == "" {
			rc.TaskMarker = defaultTaskMarker
		}
		if rc.RegressionMarker == "" {
			rc.RegressionMarker = defaultRegressionMarker
		}
		r.repos[rc.Name] = rc
		r.order = append(r.order, rc.Name)
	}
	return r, nil
}

// Names returns registered repo names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup returns the configuration for a repo name.
func (r *Registry) Lookup(name string) (RepoConfig, error) {
	rc, ok := r.repos[name]
	if !ok {
		return RepoConfig{}, fmt.Errorf("registry: %w: %q", ErrUnknownRepo, name)
	}
	return rc, nil
}

// RepoRoot returns the working-tree root for a repo.
func (r *Registry) RepoRoot(name string) (string, error) {
	rc, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.benchmarksRoot, rc.Path), nil
}

// BackendRoot returns the directory the test runner must execute from.
// For root-level projects this is the repo root itself.
func (r *Registry) BackendRoot(name string) (string, error) {
	rc, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	root := filepath.Join(r.benchmarksRoot, rc.Path)
	if rc.BackendPath == "" {
		return root, nil
	}
	return filepath.Join(root, rc.BackendPath), nil
}

// TasksDir returns the harness directory holding a repo's task definitions.
func (r *Registry) TasksDir(name string) string {
	return filepath.Join(r.harnessDir, "repos", name, "tasks")
}

// TestsDir returns the harness directory holding a repo's benchmark tests.
func (r *Registry) TestsDir(name string) string {
	return filepath.Join(r.harnessDir, "repos", name, "tests")
}

// PromptsDir returns the harness directory holding a repo's prompt files.
func (r *Registry) PromptsDir(name string) string {
	return filepath.Join(r.harnessDir, "repos", name, "prompts")
}

// ResultsDir returns the harness directory experiment documents are written to.
func (r *Registry) ResultsDir() string {
	return filepath.Join(r.harnessDir, "results")
}

// ResponsesDir returns the harness directory raw provider responses are written to.
func (r *Registry) ResponsesDir() string {
	return filepath.Join(r.harnessDir, "responses")
}
