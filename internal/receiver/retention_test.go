package receiver

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte{0xFF, 0xD8}, 0o644); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatal(err)
	}
}

func TestRetention_Sweep(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "old-session", "capture_a.jpg"), 48*time.Hour)
	touch(t, filepath.Join(dir, "mixed", "capture_b.jpg"), 48*time.Hour)
	touch(t, filepath.Join(dir, "mixed", "capture_c.jpg"), time.Minute)

	rt := NewRetention(dir, 24*time.Hour, time.Hour)
	if deleted := rt.Sweep(); deleted != 2 {
		t.Errorf("expected 2 deletions, got %d", deleted)
	}

	if _, err := os.Stat(filepath.Join(dir, "old-session")); !os.IsNotExist(err) {
		t.Error("expected empty session directory to be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "mixed", "capture_c.jpg")); err != nil {
		t.Errorf("recent capture must survive: %v", err)
	}
}

func TestRetention_MissingDir(t *testing.T) {
	rt := NewRetention(filepath.Join(t.TempDir(), "absent"), time.Hour, time.Hour)
	if deleted := rt.Sweep(); deleted != 0 {
		t.Errorf("expected no deletions, got %d", deleted)
	}
}
