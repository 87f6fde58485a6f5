// Package repostate restores benchmark working trees to a clean state.
// Every run starts from the last committed revision with no untracked
// files, so before/after test scores are comparable across runs.
package repostate

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"aspectbench/internal/logging"
)

// Manager resets one working tree through the git CLI.
type Manager struct {
	gitBin string
}

// NewManager returns a Manager using the given git binary, or plain "git"
// from PATH when empty.
func NewManager(gitBin string) *Manager {
	if gitBin == "" {
		gitBin = "git"
	}
	return &Manager{gitBin: gitBin}
}

// Reset restores all version-controlled files under repoRoot to the last
// committed revision and removes every untracked file and directory. Failure
// of either step is returned as an error; the caller must not proceed with a
// dirty tree.
func (m *Manager) Reset(repoRoot string) error {
	if _, err := os.Stat(repoRoot); err != nil {
		return fmt.Errorf("repostate: repository not found at %q: %w", repoRoot, err)
	}

	logger := logging.New("repostate")
	logger.Debug("resetting working tree", "root", repoRoot)

	if out, err := m.run(repoRoot, "checkout", "."); err != nil {
		return fmt.Errorf("repostate: git checkout in %q: %w: %s", repoRoot, err, out)
	}
	if out, err := m.run(repoRoot, "clean", "-fd"); err != nil {
		return fmt.Errorf("repostate: git clean in %q: %w: %s", repoRoot, err, out)
	}
	return nil
}

// run executes a git subcommand with repoRoot as the working directory and
// returns combined output for error context.
func (m *Manager) run(repoRoot string, args ...string) (string, error) {
	cmd := exec.Command(m.gitBin, args...)
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
