package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"aspectbench/internal/experiment"
	"aspectbench/internal/provider"
	"aspectbench/internal/registry"
	"aspectbench/internal/report"
	"aspectbench/internal/store"
)

var runFlags struct {
	repo           string
	allRepos       bool
	provider       string
	model          string
	apiKey         string
	tasks          []string
	modes          []string
	withRegression bool
	resultsDir     string
	responsesDir   string
	dbPath         string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark matrix against a live agent",
	Long: "Runs every selected task in every prompting mode, strictly\n" +
		"sequentially: reset, pre-test, agent call, apply edits, post-test,\n" +
		"score. Results land as one JSON document plus the raw agent replies.",
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.repo, "repo", "r", "", "Target repository to benchmark")
	f.BoolVar(&runFlags.allRepos, "all-repos", false, "Benchmark every registered repository")
	f.StringVarP(&runFlags.provider, "provider", "p", provider.Anthropic, "Agent provider (anthropic|openai)")
	f.StringVarP(&runFlags.model, "model", "m", "", "Model identifier; empty uses the provider default")
	f.StringVar(&runFlags.apiKey, "api-key", "", "Provider API key; empty reads the provider's env var")
	f.StringSliceVarP(&runFlags.tasks, "tasks", "t", nil, "Task id subset; empty runs every task")
	f.StringSliceVar(&runFlags.modes, "modes", experiment.DefaultModes, "Prompting modes to compare per task")
	f.BoolVar(&runFlags.withRegression, "with-regression", false, "Also run the regression suite before and after each attempt")
	f.StringVar(&runFlags.resultsDir, "results-dir", "", "Results directory override")
	f.StringVar(&runFlags.responsesDir, "responses-dir", "", "Raw-response directory override")
	f.StringVar(&runFlags.dbPath, "db", "", "History index database; empty = <harness-dir>/history.db")
}

func runRun(cmd *cobra.Command, _ []string) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}
	repos, err := resolveRepos(reg, runFlags.repo, runFlags.allRepos)
	if err != nil {
		return err
	}

	client, err := provider.New(provider.Config{
		Provider: runFlags.provider,
		Model:    runFlags.model,
		APIKey:   runFlags.apiKey,
	})
	if err != nil {
		return err
	}

	cfg := experiment.Config{
		Repos:          repos,
		TaskIDs:        runFlags.tasks,
		Modes:          runFlags.modes,
		WithRegression: runFlags.withRegression,
		ResultsDir:     runFlags.resultsDir,
		ResponsesDir:   runFlags.responsesDir,
	}
	doc, err := experiment.New(cfg, reg, client).Run(cmd.Context())
	if err != nil {
		return err
	}

	report.Console(cmd.OutOrStdout(), doc)
	indexExperiment(doc, resultsPathFor(reg, doc))
	return nil
}

func resultsPathFor(reg *registry.Registry, doc *experiment.Document) string {
	dir := runFlags.resultsDir
	if dir == "" {
		dir = reg.ResultsDir()
	}
	return filepath.Join(dir, experiment.ResultsFileName(doc.ExperimentID, doc.Modes))
}

// indexExperiment records the finished experiment in the history database.
// Best-effort: the JSON document is already on disk, so index trouble is a
// warning, never a failure.
func indexExperiment(doc *experiment.Document, resultsPath string) {
	dbPath := runFlags.dbPath
	if dbPath == "" {
		dbPath = filepath.Join(rootFlags.harnessDir, "history.db")
	}
	s, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: history index unavailable: %v\n", err)
		return
	}
	defer s.Close()
	if err := s.Record(doc, resultsPath); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: could not index experiment: %v\n", err)
	}
}
