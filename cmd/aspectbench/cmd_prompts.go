package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aspectbench/internal/prompt"
)

var promptsFlags struct {
	repo       string
	agentsFile string
	kbFile     string
	suffix     string
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Generate knowledge-base-augmented prompt variants",
	Long: "Derives a <task>_<suffix>.txt prompt next to every\n" +
		"<task>_baseline.txt by prepending the agent-instructions block and\n" +
		"the knowledge-base content.",
	RunE: runPrompts,
}

func init() {
	f := promptsCmd.Flags()
	f.StringVarP(&promptsFlags.repo, "repo", "r", "", "Target repository")
	f.StringVar(&promptsFlags.agentsFile, "agents-file", "AGENTS.md",
		"File carrying the ASPECT_CODE-delimited instructions block")
	f.StringVar(&promptsFlags.kbFile, "kb-file", "",
		"Knowledge-base file prepended to each prompt (required)")
	f.StringVar(&promptsFlags.suffix, "suffix", "aspect", "Suffix for the generated variants")

	_ = promptsCmd.MarkFlagRequired("repo")
	_ = promptsCmd.MarkFlagRequired("kb-file")
}

func runPrompts(cmd *cobra.Command, _ []string) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}
	if _, err := reg.Lookup(promptsFlags.repo); err != nil {
		return err
	}

	agentsMD, err := os.ReadFile(promptsFlags.agentsFile)
	if err != nil {
		return fmt.Errorf("read agents file: %w", err)
	}
	block, err := prompt.ExtractAgentsBlock(string(agentsMD))
	if err != nil {
		return err
	}
	kb, err := os.ReadFile(promptsFlags.kbFile)
	if err != nil {
		return fmt.Errorf("read kb file: %w", err)
	}

	src := prompt.NewSource(reg.PromptsDir(promptsFlags.repo))
	written, err := src.Generate(prompt.KBHeader(block, string(kb)), promptsFlags.suffix)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d prompt variant(s)\n", len(written))
	return nil
}
