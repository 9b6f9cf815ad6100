package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sweep removes scratch directories under the root that are older than
// maxAge. They are left behind only when the process died mid-request;
// directories still held by a request are skipped whatever their age.
// It returns the number of directories removed.
func (w *Workspace) Sweep(maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(w.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("workspace: reading %s: %w", w.Root, err)
	}

	var (
		removed int
		errs    []error
	)
	cutoff := now.Add(-maxAge)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), w.Prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		ok, err := w.removeUnheld(e.Name())
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

// removeUnheld deletes the named scratch directory unless a request holds
// it. The lock keeps Acquire from handing out a name mid-removal.
func (w *Workspace) removeUnheld(name string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.live[name]; ok {
		return false, nil
	}
	path := filepath.Join(w.Root, name)
	if err := os.RemoveAll(path); err != nil {
		return false, fmt.Errorf("workspace: removing %s: %w", path, err)
	}
	return true, nil
}
