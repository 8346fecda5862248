package snapshot

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIncludePatterns matches snapshot files when no include globs are
// given.
var DefaultIncludePatterns = []string{"**/*.json"}

// DefaultExcludePatterns skips directories that never hold snapshots.
var DefaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
}

// Discover walks rootDir applying include/exclude globs and returns a
// sorted slice of absolute snapshot paths for deterministic batch order.
// Empty include or exclude lists fall back to the defaults.
func Discover(rootDir string, include, exclude []string) ([]string, error) {
	if len(include) == 0 {
		include = DefaultIncludePatterns
	}
	if len(exclude) == 0 {
		exclude = DefaultExcludePatterns
	}

	// Validate patterns.
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern: %s", pattern)
		}
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	var files []string

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Continue walking on errors.
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		// Check exclusions (directories and files).
		for _, pattern := range exclude {
			matched, _ := doublestar.PathMatch(pattern, relPath)
			if matched {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			return nil
		}

		// Check include patterns.
		matched := false
		for _, pattern := range include {
			if m, _ := doublestar.PathMatch(pattern, relPath); m {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
