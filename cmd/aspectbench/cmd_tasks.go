package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aspectbench/internal/format"
	"aspectbench/internal/taskdef"
)

var tasksFlags struct {
	repo string
}

var tasksCmd = &cobra.Command{
	Use:   "tasks [task-id]",
	Short: "List task definitions, or show one in full",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTasks,
}

func init() {
	tasksCmd.Flags().StringVarP(&tasksFlags.repo, "repo", "r", "", "Target repository")
	_ = tasksCmd.MarkFlagRequired("repo")
}

func runTasks(cmd *cobra.Command, args []string) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}
	if _, err := reg.Lookup(tasksFlags.repo); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	tasksDir := reg.TasksDir(tasksFlags.repo)

	if len(args) == 1 {
		task, err := taskdef.ByID(tasksDir, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "ID:          %s\n", task.ID)
		fmt.Fprintf(out, "Name:        %s\n", task.Name)
		if task.Difficulty != "" {
			fmt.Fprintf(out, "Difficulty:  %s\n", task.Difficulty)
		}
		if len(task.Tags) > 0 {
			fmt.Fprintf(out, "Tags:        %s\n", strings.Join(task.Tags, ", "))
		}
		if len(task.KnownFailing) > 0 {
			fmt.Fprintf(out, "Known failing:\n")
			for _, test := range task.KnownFailing {
				fmt.Fprintf(out, "  - %s\n", test)
			}
		}
		if task.Description != "" {
			fmt.Fprintf(out, "\n%s\n", strings.TrimSpace(task.Description))
		}
		return nil
	}

	tasks, err := taskdef.List(tasksDir)
	if err != nil {
		return err
	}
	tb := format.NewTable(format.ASCII)
	tb.Header("ID", "Name", "Difficulty", "Tags")
	for _, task := range tasks {
		tb.Row(task.ID, format.Truncate(task.Name, 50), task.Difficulty,
			strings.Join(task.Tags, ","))
	}
	fmt.Fprintln(out, tb.String())
	return nil
}
