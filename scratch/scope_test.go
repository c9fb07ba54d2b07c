package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquireCreatesUniqueDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "scratch") // created on demand

	first, err := Acquire(root)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer first.Release()
	second, err := Acquire(root)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer second.Release()

	if first.Dir() == second.Dir() {
		t.Fatalf("Expected distinct scope directories, both were %s", first.Dir())
	}
	for _, scope := range []*Scope{first, second} {
		info, err := os.Stat(scope.Dir())
		if err != nil {
			t.Fatalf("Scope directory missing: %v", err)
		}
		if !info.IsDir() {
			t.Errorf("Scope path %s is not a directory", scope.Dir())
		}
		if filepath.Dir(scope.Dir()) != root {
			t.Errorf("Scope %s is not directly under %s", scope.Dir(), root)
		}
		if !strings.HasPrefix(filepath.Base(scope.Dir()), scopePrefix) {
			t.Errorf("Scope %s is missing the %q prefix", scope.Dir(), scopePrefix)
		}
	}
}

func TestReleaseRemovesEverythingAndIsIdempotent(t *testing.T) {
	scope, err := Acquire(t.TempDir())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	nested := scope.Path("nested")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("Failed to create nested dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nested, "out.pdf"), []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if err := scope.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(scope.Dir()); !os.IsNotExist(err) {
		t.Errorf("Expected scope directory to be gone, stat returned %v", err)
	}
	if err := scope.Release(); err != nil {
		t.Errorf("Second release should be a no-op, got %v", err)
	}
}

func TestReleaseToleratesMissingDirectory(t *testing.T) {
	scope, err := Acquire(t.TempDir())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := os.RemoveAll(scope.Dir()); err != nil {
		t.Fatalf("Failed to remove scope early: %v", err)
	}
	if err := scope.Release(); err != nil {
		t.Errorf("Release of a missing directory should succeed, got %v", err)
	}
}

func TestSweepRemovesOnlyStaleScopes(t *testing.T) {
	root := t.TempDir()

	stale, err := Acquire(root)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	fresh, err := Acquire(root)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer fresh.Release()

	unrelated := filepath.Join(root, "keep-me")
	if err := os.Mkdir(unrelated, 0755); err != nil {
		t.Fatalf("Failed to create unrelated dir: %v", err)
	}

	old := time.Now().Add(-2 * time.Hour)
	for _, dir := range []string{stale.Dir(), unrelated} {
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatalf("Failed to age %s: %v", dir, err)
		}
	}

	removed, err := Sweep(root, time.Hour)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 stale scope removed, got %d", removed)
	}
	if _, err := os.Stat(stale.Dir()); !os.IsNotExist(err) {
		t.Error("Stale scope should have been removed")
	}
	if _, err := os.Stat(fresh.Dir()); err != nil {
		t.Errorf("Fresh scope should remain: %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Errorf("Directories without the scope prefix should remain: %v", err)
	}
}

func TestSweepMissingRoot(t *testing.T) {
	removed, err := Sweep(filepath.Join(t.TempDir(), "absent"), time.Minute)
	if err != nil {
		t.Fatalf("Sweep of a missing root should not fail: %v", err)
	}
	if removed != 0 {
		t.Errorf("Expected nothing removed, got %d", removed)
	}
}
