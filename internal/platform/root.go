package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrRootNotFound is returned by FindRoot when no ancestor looks like a
// project root.
var ErrRootNotFound = errors.New("project root not found (expected cnsf.yaml, or .git with domains, tools or README.md)")

// rootCompanions are top-level entries expected next to .git.
var rootCompanions = []string{"domains", "tools", "README.md"}

// FindRoot walks up from startDir to the project root: the first directory
// holding cnsf.yaml, or holding .git plus at least one companion entry.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if isRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

func isRoot(dir string) bool {
	if hasFile(dir, ConfigFile) {
		return true
	}
	if !hasFile(dir, ".git") {
		return false
	}
	for _, name := range rootCompanions {
		if hasFile(dir, name) {
			return true
		}
	}
	return false
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
