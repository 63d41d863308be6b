package media

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// Surface is the default render sink. It renders the attached track's current frame
// and reports the track's native size.
type Surface struct {
	mu     sync.RWMutex
	track  Track
	source FrameSource
}

func NewSurface() (Sink, error) {
	return &Surface{}, nil
}

func (s *Surface) Attach(track Track) error {
	source, ok := track.(FrameSource)
	if !ok {
		return fmt.Errorf("track %s cannot be rendered", track.ID())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track = track
	s.source = source
	return nil
}

func (s *Surface) Snapshot(ctx context.Context) (image.Image, error) {
	s.mu.RLock()
	source := s.source
	s.mu.RUnlock()
	if source == nil {
		return nil, ErrSinkDetached
	}
	return source.CurrentFrame(ctx)
}

func (s *Surface) VideoSize() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.track == nil {
		return 0, 0
	}
	ts := s.track.Settings()
	return ts.Width, ts.Height
}

// Detach releases the track reference. Detaching twice is a no-op.
func (s *Surface) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track = nil
	s.source = nil
	return nil
}
