package config

import (
	"os"
	"path/filepath"
)

// Dir is the per-project settings directory.
const Dir = ".rowgrid"

// configFileName is the filename of the configuration inside Dir.
const configFileName = "config.yaml"

// groupStateFileName is where the viewer keeps group expansion.
const groupStateFileName = "group-state.json"

// FindConfig searches for .rowgrid/config.yaml starting from dir and walking
// up, stopping at the home directory. An empty dir means the working
// directory.
func FindConfig(dir string) (string, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}

	root, ok := findProjectRoot(dir)
	if !ok {
		return "", os.ErrNotExist
	}
	return filepath.Join(root, Dir, configFileName), nil
}

// findProjectRoot walks up from dir looking for a directory holding
// .rowgrid/config.yaml.
func findProjectRoot(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		candidate := filepath.Join(dir, Dir, configFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

// GroupStatePath returns the group state file next to the configuration.
// An empty dir means .rowgrid in the working directory.
func GroupStatePath(dir string) string {
	if dir == "" {
		dir = Dir
	}
	return filepath.Join(dir, groupStateFileName)
}

// Discover loads the nearest configuration above dir, or the defaults when
// there is none. The returned path is empty for defaults.
func Discover(dir string) (*Config, string, error) {
	path, err := FindConfig(dir)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		return &cfg, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
