package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"aspectbench/internal/registry"
	"aspectbench/internal/taskdef"
	"aspectbench/internal/testrun"
)

var testFlags struct {
	repo           string
	taskID         string
	all            bool
	withRegression bool
	regressionOnly bool
	list           bool
	listRepos      bool
	verbose        bool
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run benchmark tests for a task without any agent",
	Long: "Runs the marker-filtered benchmark tests for one task, for the whole\n" +
		"suite, or for the regression suite only. Exits non-zero unless every\n" +
		"selected test passes.",
	RunE: runTest,
}

func init() {
	f := testCmd.Flags()
	f.StringVarP(&testFlags.repo, "repo", "r", "", "Target repository")
	f.StringVarP(&testFlags.taskID, "task-id", "t", "", "Run the tests for one task")
	f.BoolVarP(&testFlags.all, "all", "a", false, "Run the full benchmark suite")
	f.BoolVar(&testFlags.withRegression, "with-regression", false, "Also run the regression suite")
	f.BoolVar(&testFlags.regressionOnly, "regression-only", false, "Run only the regression suite")
	f.BoolVarP(&testFlags.list, "list", "l", false, "List the repository's tasks and exit")
	f.BoolVar(&testFlags.listRepos, "list-repos", false, "List registered repositories and exit")
	f.BoolVarP(&testFlags.verbose, "verbose", "v", false, "Pass -v to the underlying test runner")
}

func runTest(cmd *cobra.Command, _ []string) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if testFlags.listRepos {
		for _, name := range reg.Names() {
			rc, _ := reg.Lookup(name)
			fmt.Fprintf(out, "%-20s %s\n", name, rc.Title)
		}
		return nil
	}

	if testFlags.repo == "" {
		return fmt.Errorf("no repository selected; use --repo")
	}
	if _, err := reg.Lookup(testFlags.repo); err != nil {
		return err
	}

	if testFlags.list {
		return listTasks(out, reg, testFlags.repo)
	}

	runner := testrun.NewRunner(reg, testFlags.verbose)

	switch {
	case testFlags.regressionOnly:
		res, err := runner.RunRegression(testFlags.repo)
		if err != nil {
			return err
		}
		printResult(out, "regression suite", res)
		return failUnlessGreen(res)

	case testFlags.all:
		res, err := runner.RunAll(testFlags.repo)
		if err != nil {
			return err
		}
		printResult(out, "benchmark suite", res)
		return failUnlessGreen(res)

	case testFlags.taskID != "":
		outc, err := runner.RunTask(testFlags.repo, testFlags.taskID, testFlags.withRegression)
		if err != nil {
			return err
		}
		printResult(out, testFlags.taskID, outc.Task)
		if outc.Regression != nil {
			printResult(out, "regression suite", *outc.Regression)
			if err := failUnlessGreen(*outc.Regression); err != nil {
				return err
			}
		}
		return failUnlessGreen(outc.Task)

	default:
		return fmt.Errorf("nothing selected; use --task-id, --all or --regression-only")
	}
}

func listTasks(out io.Writer, reg *registry.Registry, repo string) error {
	tasks, err := taskdef.List(reg.TasksDir(repo))
	if err != nil {
		return err
	}
	for _, task := range tasks {
		fmt.Fprintf(out, "%-10s %s\n", task.ID, task.Name)
	}
	return nil
}

func printResult(out io.Writer, label string, res testrun.TestResult) {
	switch {
	case res.HarnessBroken():
		fmt.Fprintf(out, "%s: harness broken (exit %d, no tests collected)\n", label, res.ExitCode)
	default:
		fmt.Fprintf(out, "%s: %d passed, %d failed (%.2fs)\n",
			label, res.Passed, res.Failed, res.ElapsedSeconds)
	}
}

func failUnlessGreen(res testrun.TestResult) error {
	if res.HarnessBroken() {
		return fmt.Errorf("test harness broken: exit %d with no parsed results", res.ExitCode)
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d test(s) failed", res.Failed)
	}
	return nil
}
