package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath expands a leading tilde (~) to the user's home directory and returns a
// cleaned path. An empty path stays empty.
func ResolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve path: %w", err)
		}
		remainder := strings.TrimLeft(strings.TrimPrefix(path, "~"), "/\\")
		if remainder == "" {
			return filepath.Clean(home), nil
		}
		return filepath.Clean(filepath.Join(home, filepath.FromSlash(strings.ReplaceAll(remainder, "\\", "/")))), nil
	}
	return filepath.Clean(path), nil
}
