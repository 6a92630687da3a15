package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sahilm/fuzzy"
)

// resolveRoot validates the project directory and, when it does not exist,
// suggests the closest sibling name so a typo'd path fails usefully.
func resolveRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("cli: resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err == nil {
		if !info.IsDir() {
			return "", fmt.Errorf("cli: %s is not a directory", dir)
		}
		return abs, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("cli: stat %s: %w", dir, err)
	}
	if hint := suggestSibling(abs); hint != "" {
		return "", fmt.Errorf("cli: no such directory %s (did you mean %s?)", dir, hint)
	}
	return "", fmt.Errorf("cli: no such directory %s", dir)
}

// suggestSibling fuzzily matches the missing path's base name against the
// directories that actually exist next to it.
func suggestSibling(abs string) string {
	entries, err := os.ReadDir(filepath.Dir(abs))
	if err != nil {
		return ""
	}
	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			candidates = append(candidates, entry.Name())
		}
	}
	matches := fuzzy.Find(filepath.Base(abs), candidates)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
