package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"aspectbench/internal/format"
	"aspectbench/internal/store"
)

var historyFlags struct {
	dbPath string
	limit  int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past experiments from the local index",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.dbPath, "db", "", "History index database; empty = <harness-dir>/history.db")
	f.IntVarP(&historyFlags.limit, "limit", "n", 20, "Show at most this many experiments")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	dbPath := historyFlags.dbPath
	if dbPath == "" {
		dbPath = filepath.Join(rootFlags.harnessDir, "history.db")
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	experiments, err := s.List(historyFlags.limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(experiments) == 0 {
		fmt.Fprintln(out, "No experiments recorded yet.")
		return nil
	}

	tb := format.NewTable(format.ASCII)
	tb.Header("Experiment", "Provider", "Model", "Repos", "Mode", "Passed", "Fixed", "Time")
	for _, info := range experiments {
		if len(info.Summaries) == 0 {
			tb.Row(info.ExperimentID, info.Provider, info.Model,
				format.Truncate(info.Repos, 30), "-", "-", "-",
				format.FmtSeconds(info.ElapsedSec))
			continue
		}
		for i, sum := range info.Summaries {
			id, prov, model, repos, elapsed := "", "", "", "", ""
			if i == 0 {
				id, prov, model = info.ExperimentID, info.Provider, info.Model
				repos = format.Truncate(info.Repos, 30)
				elapsed = format.FmtSeconds(info.ElapsedSec)
			}
			tb.Row(id, prov, model, repos, sum.Mode,
				fmt.Sprintf("%d/%d", sum.Passed, sum.Attempted),
				format.FmtDelta(sum.TestsFixed), elapsed)
		}
	}
	fmt.Fprintln(out, tb.String())
	return nil
}
