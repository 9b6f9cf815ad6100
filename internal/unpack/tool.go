package unpack

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// toolMode is applied to the tool once at startup.
const toolMode fs.FileMode = 0o755

// PrepareTool resolves path against base and makes the file executable.
// It returns the absolute path even when the file is missing, together
// with an error wrapping ErrToolMissing, so callers may start anyway and
// let each run report the failure.
func PrepareTool(path, base string) (string, error) {
	if path == "" {
		return "", errors.New("unpack: tool path is empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("unpack: resolving tool path: %w", err)
	}

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return abs, fmt.Errorf("%w: %s", ErrToolMissing, abs)
	}
	if err != nil {
		return abs, fmt.Errorf("unpack: inspecting tool: %w", err)
	}
	if info.IsDir() {
		return abs, fmt.Errorf("unpack: tool path %s is a directory", abs)
	}

	if info.Mode().Perm() != toolMode {
		if err := os.Chmod(abs, toolMode); err != nil {
			return abs, fmt.Errorf("unpack: making tool executable: %w", err)
		}
	}
	return abs, nil
}
