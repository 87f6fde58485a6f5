// Package prompt supplies mode-specific prompt text per task. Prompt files
// live under the repo's harness prompts directory as <taskID>_<mode>.txt and
// are plain text; their content is authored outside this harness.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
)

// Source loads prompt variants from one prompts directory.
type Source struct {
	dir string
}

// NewSource returns a Source reading from dir.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// Path returns the file a (task, mode) prompt is expected at.
func (s *Source) Path(taskID, mode string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.txt", taskID, mode))
}

// Load reads the prompt for a (task, mode) pair. A missing file is a
// configuration error; generated prompt files are not committed, so the
// error names the generator to run.
func (s *Source) Load(taskID, mode string) (string, error) {
	path := s.Path(taskID, mode)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("prompt: missing prompt file %q (generate prompts first with `aspectbench prompts`): %w", path, err)
	}
	return string(data), nil
}
