package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Resetter asks the assessment service to discard partial state for a session and
// then runs next whether or not the reset succeeded
type Resetter interface {
	ResetThen(ctx context.Context, sessionID string, timeout time.Duration, next func())
}

// RefreshGuard detects restarts of the agent for the same session. A marker file is
// written when the session starts and removed on clean exit; a marker that is still
// present on the next start means the previous run was interrupted.
type RefreshGuard struct {
	dir      string
	resetter Resetter
	timeout  time.Duration
}

func NewRefreshGuard(dir string, resetter Resetter, timeout time.Duration) *RefreshGuard {
	return &RefreshGuard{dir: dir, resetter: resetter, timeout: timeout}
}

func (g *RefreshGuard) markerPath(sessionID string) string {
	return filepath.Join(g.dir, "camera-session-"+sessionID+".marker")
}

// Begin records the session start and reports whether this start is a refresh. On a
// refresh the reset endpoint is called best-effort; failures are logged and ignored.
func (g *RefreshGuard) Begin(ctx context.Context, sessionID string) (bool, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create marker directory: %w", err)
	}

	path := g.markerPath(sessionID)
	refreshed := false
	if _, err := os.Stat(path); err == nil {
		refreshed = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to check session marker: %w", err)
	}

	if !refreshed || g.resetter == nil {
		return refreshed, writeMarker(path)
	}

	log.Printf("Session %s restarted without clean exit, requesting reset", sessionID)
	var err error
	g.resetter.ResetThen(ctx, sessionID, g.timeout, func() {
		err = writeMarker(path)
	})
	return refreshed, err
}

func writeMarker(path string) error {
	stamp := time.Now().UTC().Format(time.RFC3339)
	if err := os.WriteFile(path, []byte(stamp+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write session marker: %w", err)
	}
	return nil
}

// End removes the marker after a clean exit
func (g *RefreshGuard) End(sessionID string) {
	if err := os.Remove(g.markerPath(sessionID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to remove session marker: %v", err)
	}
}
