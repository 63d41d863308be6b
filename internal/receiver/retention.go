package receiver

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Retention deletes stored captures older than a window
type Retention struct {
	storageDir string
	window     time.Duration
	interval   time.Duration
	now        func() time.Time
}

func NewRetention(storageDir string, window, interval time.Duration) *Retention {
	return &Retention{
		storageDir: storageDir,
		window:     window,
		interval:   interval,
		now:        time.Now,
	}
}

func (rt *Retention) Start(ctx context.Context) {
	ticker := time.NewTicker(rt.interval)
	defer ticker.Stop()

	log.Printf("Started retention sweep for: %s (window: %v)", rt.storageDir, rt.window)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Retention sweep stopped for: %s", rt.storageDir)
			return
		case <-ticker.C:
			rt.Sweep()
		}
	}
}

// Sweep removes expired captures and any session directory left empty
func (rt *Retention) Sweep() int {
	cutoff := rt.now().Add(-rt.window)
	deleted := 0

	sessions, err := os.ReadDir(rt.storageDir)
	if err != nil {
		log.Printf("Error reading storage directory: %v", err)
		return 0
	}

	for _, sessionDir := range sessions {
		if !sessionDir.IsDir() {
			continue
		}
		dir := filepath.Join(rt.storageDir, sessionDir.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		remaining := len(files)
		for _, file := range files {
			name := strings.ToLower(file.Name())
			if file.IsDir() || !(strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".jpeg")) {
				continue
			}
			info, err := file.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, file.Name())); err != nil {
				log.Printf("Failed to delete expired capture %s: %v", file.Name(), err)
				continue
			}
			deleted++
			remaining--
		}

		if remaining == 0 {
			os.Remove(dir)
		}
	}

	if deleted > 0 {
		log.Printf("Cleaned up %d expired captures from: %s", deleted, rt.storageDir)
	}
	return deleted
}
