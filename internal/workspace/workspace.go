// Package workspace manages per-request scratch directories. Each request
// gets a fresh private directory under a shared root; it is removed when the
// request finishes, whatever the outcome.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultPrefix names scratch directories so the sweeper can recognise them.
const DefaultPrefix = "unpack-"

// ErrClosed is returned when a file is requested from a released scratch dir.
var ErrClosed = errors.New("workspace: scratch directory already released")

// Workspace is the root under which scratch directories are created. It
// remembers which of them are still held so Sweep never touches them.
type Workspace struct {
	Root   string
	Prefix string

	// MaxHold is the longest a request may hold a scratch directory. Zero
	// means unbounded.
	MaxHold time.Duration

	mu   sync.Mutex
	live map[string]struct{}
}

// New creates a Workspace rooted at root. An empty root uses os.TempDir().
func New(root string) *Workspace {
	if root == "" {
		root = os.TempDir()
	}
	return &Workspace{Root: root, Prefix: DefaultPrefix}
}

// EnsureRoot creates the root directory if it does not exist.
func (w *Workspace) EnsureRoot() error {
	if err := os.MkdirAll(w.Root, 0o755); err != nil {
		return fmt.Errorf("workspace: creating root %s: %w", w.Root, err)
	}
	return nil
}

// Acquire creates a new, empty scratch directory with mode 0700. The caller
// owns it exclusively and must call Close.
func (w *Workspace) Acquire() (*Scratch, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	dir, err := os.MkdirTemp(w.Root, w.Prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("workspace: creating scratch dir: %w", err)
	}
	if w.live == nil {
		w.live = make(map[string]struct{})
	}
	w.live[filepath.Base(dir)] = struct{}{}
	return &Scratch{dir: dir, owner: w}, nil
}

// Held returns the number of scratch directories not yet closed.
func (w *Workspace) Held() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.live)
}

func (w *Workspace) release(dir string) {
	w.mu.Lock()
	delete(w.live, filepath.Base(dir))
	w.mu.Unlock()
}

// Scratch is one request's private directory.
type Scratch struct {
	dir   string
	owner *Workspace

	mu       sync.Mutex
	released bool
}

// Dir returns the absolute path of the scratch directory.
func (s *Scratch) Dir() string {
	return s.dir
}

// Path joins name onto the scratch directory. name must be a plain file
// name; separators and ".." are rejected.
func (s *Scratch) Path(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return "", ErrClosed
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("workspace: invalid file name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// Close removes the directory and everything in it. It is safe to call
// more than once; only the first call does any work.
func (s *Scratch) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	defer s.owner.release(s.dir)
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("workspace: removing %s: %w", s.dir, err)
	}
	return nil
}
