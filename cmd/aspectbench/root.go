package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	harnessDir     string
	benchmarksRoot string
	registryPath   string
	logLevel       string
	logFormat      string
}

var rootCmd = &cobra.Command{
	Use:   "aspectbench",
	Short: "A/B benchmark harness for AI coding agents",
	Long: "Aspectbench measures whether knowledge-base-augmented prompts make an\n" +
		"AI coding agent better at fixing real failing tests. Each run resets a\n" +
		"target repository, measures the failing suite, asks the agent for a fix,\n" +
		"applies the edits its reply carries, and measures again.",
	PersistentPreRunE: setupLogging,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.harnessDir, "harness-dir", ".",
		"Harness root; tasks, prompts, results and responses live under it")
	pf.StringVar(&rootFlags.benchmarksRoot, "benchmarks-root", "benchmarks",
		"Directory holding the target repository checkouts")
	pf.StringVar(&rootFlags.registryPath, "registry", "",
		"Repository registry file (YAML or JSON); empty uses the built-in registry")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text|json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
