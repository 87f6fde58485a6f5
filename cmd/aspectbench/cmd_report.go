package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aspectbench/internal/experiment"
	"aspectbench/internal/report"
)

var reportFlags struct {
	output  string
	console bool
}

var reportCmd = &cobra.Command{
	Use:   "report [results.json]",
	Short: "Render a Markdown report from a results document",
	Long: "Renders the experiment report from a persisted results JSON. With no\n" +
		"argument the newest document in the results directory is used.",
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVarP(&reportFlags.output, "output", "o", "", "Write the Markdown report here; empty prints to stdout")
	f.BoolVar(&reportFlags.console, "console", false, "Print the console summary tables instead of Markdown")
}

func runReport(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		reg, err := buildRegistry()
		if err != nil {
			return err
		}
		path, err = report.LatestResults(reg.ResultsDir())
		if err != nil {
			return err
		}
	}

	doc, err := experiment.ReadDocument(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if reportFlags.console {
		report.Console(out, doc)
		return nil
	}
	if reportFlags.output != "" {
		if err := report.WriteMarkdown(doc, reportFlags.output); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", reportFlags.output)
		return nil
	}
	fmt.Fprintln(out, strings.TrimRight(report.Markdown(doc), "\n"))
	return nil
}
