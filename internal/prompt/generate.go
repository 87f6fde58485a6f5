package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aspectbench/internal/logging"
)

// Markers delimiting the reusable agent-instructions block inside an
// AGENTS.md-style file.
const (
	startMarker = "<!-- ASPECT_CODE_START -->"
	endMarker   = "<!-- ASPECT_CODE_END -->"
)

// ExtractAgentsBlock returns the content between the ASPECT_CODE markers.
func ExtractAgentsBlock(agentsMD string) (string, error) {
	start := strings.Index(agentsMD, startMarker)
	end := strings.Index(agentsMD, endMarker)
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("prompt: ASPECT_CODE markers not found in agents file")
	}
	return strings.TrimSpace(agentsMD[start+len(startMarker) : end]), nil
}

// KBHeader assembles the knowledge-base header prepended to baseline prompts.
func KBHeader(agentsBlock, kbContent string) string {
	return fmt.Sprintf(`# AI Coding Assistant Instructions

%s
%s
%s

# Aspect Code Knowledge Base

%s

`, startMarker, agentsBlock, endMarker, kbContent)
}

// Generate derives <task>_<suffix>.txt prompt variants from every
// <task>_baseline.txt in the Source's directory by prepending header.
// It returns the paths written.
func (s *Source) Generate(header, suffix string) ([]string, error) {
	baselines, err := filepath.Glob(filepath.Join(s.dir, "*_baseline.txt"))
	if err != nil {
		return nil, fmt.Errorf("prompt: glob baselines: %w", err)
	}
	sort.Strings(baselines)

	logger := logging.New("prompt")
	var written []string
	for _, base := range baselines {
		content, err := os.ReadFile(base)
		if err != nil {
			return written, fmt.Errorf("prompt: read %q: %w", base, err)
		}

		taskID := strings.TrimSuffix(filepath.Base(base), "_baseline.txt")
		out := filepath.Join(s.dir, fmt.Sprintf("%s_%s.txt", taskID, suffix))
		if err := os.WriteFile(out, []byte(header+string(content)), 0o644); err != nil {
			return written, fmt.Errorf("prompt: write %q: %w", out, err)
		}
		logger.Info("generated prompt", "file", filepath.Base(out))
		written = append(written, out)
	}
	return written, nil
}
