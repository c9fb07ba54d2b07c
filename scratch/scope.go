// Package scratch manages request-scoped working directories under a shared root.
package scratch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

const scopePrefix = "scope-"

// Scope is an exclusively owned working directory for one conversion request.
// Release must be called on every exit path; it is safe to call more than once.
type Scope struct {
	dir  string
	once sync.Once
	err  error
}

// Acquire creates a fresh, uniquely named directory under root
func Acquire(root string) (*Scope, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch root %s: %w", root, err)
	}
	dir := filepath.Join(root, scopePrefix+ulid.Make().String())
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create scope directory: %w", err)
	}
	Logger.Debug("Acquired scope", "dir", dir)
	return &Scope{dir: dir}, nil
}

// Dir is the absolute path of the scope directory
func (s *Scope) Dir() string {
	return s.dir
}

// Path joins name onto the scope directory
func (s *Scope) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Release removes the scope directory and everything under it. A missing directory is not an error.
func (s *Scope) Release() error {
	s.once.Do(func() {
		if err := os.RemoveAll(s.dir); err != nil {
			s.err = fmt.Errorf("failed to remove scope directory %s: %w", s.dir, err)
			Logger.Error("Unable to release scope", "dir", s.dir, "error", err)
			return
		}
		Logger.Debug("Released scope", "dir", s.dir)
	})
	return s.err
}

// Sweep removes scope directories under root that were last modified before now-olderThan.
// It returns how many directories were removed.
func Sweep(root string, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read scratch root %s: %w", root, err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), scopePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // removed concurrently
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			Logger.Warn("Unable to sweep stale scope", "dir", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
