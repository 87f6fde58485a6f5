package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ResultsFileName returns the document filename for an experiment. The
// original A/B harness named its output aspect_ab_experiment_<id>.json;
// that name is kept for the default baseline-vs-aspect pair so existing
// report tooling keeps finding the files.
func ResultsFileName(expID string, modes []string) string {
	if isDefaultModes(modes) {
		return fmt.Sprintf("aspect_ab_experiment_%s.json", expID)
	}
	return fmt.Sprintf("benchmark_experiment_%s.json", expID)
}

func isDefaultModes(modes []string) bool {
	if len(modes) != len(DefaultModes) {
		return false
	}
	for i, m := range modes {
		if m != DefaultModes[i] {
			return false
		}
	}
	return true
}

// WriteDocument serializes doc into dir and returns the written path.
func WriteDocument(doc *Document, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating results dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}
	path := filepath.Join(dir, ResultsFileName(doc.ExperimentID, doc.Modes))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing results: %w", err)
	}
	return path, nil
}

// ResponseFileName names a persisted raw agent response.
func ResponseFileName(repo, taskID, mode, expID string) string {
	return fmt.Sprintf("%s_%s_%s_%s.txt", repo, taskID, mode, expID)
}

// WriteResponse saves one raw agent response for offline re-extraction and
// audit. Returns the written path.
func WriteResponse(dir, repo, taskID, mode, expID, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ResponseFileName(repo, taskID, mode, expID))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadDocument loads a previously written results document.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding results %s: %w", filepath.Base(path), err)
	}
	return &doc, nil
}
