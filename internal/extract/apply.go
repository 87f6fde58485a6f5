package extract

import (
	"os"
	"path/filepath"
	"strings"

	"aspectbench/internal/logging"
)

// Applier writes recovered edits into a working tree.
type Applier struct {
	// BackendPrefix is the repository's backend-root convention (e.g.
	// "backend"). Agents sometimes omit it from paths; when the literal
	// parent directory does not exist, resolution is retried under this
	// prefix. Empty disables the fallback.
	BackendPrefix string
}

// Apply writes each change under repoRoot as a full-file replacement,
// creating missing parent directories. A write failure on one path is
// logged and skipped so the remaining edits still land. Returns the
// repo-relative paths actually written, in apply order; later changes to
// the same path simply overwrite earlier ones.
func (a *Applier) Apply(changes []CodeChange, repoRoot string) []string {
	logger := logging.New("apply")

	var applied []string
	for _, ch := range changes {
		rel := NormalizePath(ch.TargetPath)
		if rel == "" {
			continue
		}
		target := filepath.Join(repoRoot, filepath.FromSlash(rel))

		// Path-resolution fallback: if the literal parent is missing and the
		// path is not already under the backend prefix, try the backend root.
		if a.BackendPrefix != "" && !dirExists(filepath.Dir(target)) &&
			!strings.HasPrefix(rel, a.BackendPrefix+"/") {
			alt := filepath.Join(repoRoot, a.BackendPrefix, filepath.FromSlash(rel))
			if dirExists(filepath.Dir(alt)) || strings.HasPrefix(rel, "app/") {
				target = alt
				rel = a.BackendPrefix + "/" + rel
			}
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			logger.Warn("skipping edit: create parent", "path", rel, "error", err)
			continue
		}
		if err := os.WriteFile(target, []byte(ch.Content), 0o644); err != nil {
			logger.Warn("skipping edit: write", "path", rel, "error", err)
			continue
		}
		applied = append(applied, rel)
	}
	return applied
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
