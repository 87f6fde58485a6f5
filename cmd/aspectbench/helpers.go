package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aspectbench/internal/logging"
	"aspectbench/internal/registry"
)

func setupLogging(_ *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(rootFlags.logLevel)
	if err != nil {
		return err
	}
	logging.Init(level, rootFlags.logFormat)
	return nil
}

// buildRegistry resolves the target-repository registry from the --registry
// override or the built-in defaults.
func buildRegistry() (*registry.Registry, error) {
	if rootFlags.registryPath != "" {
		return registry.LoadFromPath(rootFlags.registryPath, rootFlags.harnessDir, rootFlags.benchmarksRoot)
	}
	return registry.Default(rootFlags.harnessDir, rootFlags.benchmarksRoot), nil
}

// resolveRepos expands the repo selection: an explicit name, or every
// registered repo when all is set.
func resolveRepos(reg *registry.Registry, repo string, all bool) ([]string, error) {
	if all {
		return reg.Names(), nil
	}
	if repo == "" {
		return nil, fmt.Errorf("no repository selected; use --repo or --all-repos")
	}
	if _, err := reg.Lookup(repo); err != nil {
		return nil, err
	}
	return []string{repo}, nil
}
