package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// registryFile is the on-disk override format.
type registryFile struct {
	Repos []RepoConfig `json:"repos" yaml:"repos"`
}

// LoadFromPath reads a registry override file (YAML or JSON) and builds a
// Registry from it. Format is detected by extension (.yaml/.yml/.json) or,
// failing that, by content.
func LoadFromPath(path, harnessDir, benchmarksRoot string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %q: %w", path, err)
	}
	return Load(data, filepath.Ext(path), harnessDir, benchmarksRoot)
}

// Load parses registry bytes. ext is the file extension for a format hint;
// empty means detect from content (JSON if it starts with "{", else YAML).
func Load(data []byte, ext, harnessDir, benchmarksRoot string) (*Registry, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}

	var rf registryFile
	switch {
	case ext == ".yaml":
		if err := yaml.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("registry: parse yaml: %w", err)
		}
	case ext == ".json":
		if err := json.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("registry: parse json: %w", err)
		}
	case strings.HasPrefix(strings.TrimSpace(string(data)), "{"):
		if err := json.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("registry: parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("registry: parse yaml: %w", err)
		}
	}

	if len(rf.Repos) == 0 {
		return nil, fmt.Errorf("registry: no repos defined")
	}
	return New(harnessDir, benchmarksRoot, rf.Repos)
}
