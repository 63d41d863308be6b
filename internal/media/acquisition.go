package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"proctor-camera/internal/models"
)

// Stream is an acquired camera stream. Release is safe to call more than once.
type Stream struct {
	track Track
	once  sync.Once
	err   error
}

// Track returns the active video track
func (s *Stream) Track() Track {
	return s.track
}

// Release stops the stream's track. Only the first call touches the device.
func (s *Stream) Release() error {
	s.once.Do(func() {
		if err := s.track.Stop(); err != nil {
			s.err = fmt.Errorf("failed to stop track %s: %w", s.track.ID(), err)
		}
	})
	return s.err
}

// Acquirer requests camera streams from a device
type Acquirer struct {
	device Device
}

func NewAcquirer(device Device) *Acquirer {
	return &Acquirer{device: device}
}

// ConstraintsFor builds acquisition hints from camera settings. The resolution is only
// applied when present and well formed.
func ConstraintsFor(settings models.CameraSettings) Constraints {
	c := Constraints{FacingMode: FacingUser}
	if settings.Resolution == "" {
		return c
	}
	w, h, err := models.ParseResolution(settings.Resolution)
	if err != nil {
		log.Printf("Ignoring resolution hint: %v", err)
		return c
	}
	c.IdealWidth = w
	c.IdealHeight = h
	return c
}

// Acquire opens a user-facing stream and attaches it to sink
func (a *Acquirer) Acquire(ctx context.Context, settings models.CameraSettings, sink Sink) (*Stream, error) {
	if a.device == nil {
		return nil, fmt.Errorf("%w: no camera device configured", ErrPermissionOrDevice)
	}

	track, err := a.device.Open(ctx, ConstraintsFor(settings))
	if err != nil {
		if errors.Is(err, ErrPermissionOrDevice) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPermissionOrDevice, err)
	}

	stream := &Stream{track: track}
	if err := sink.Attach(track); err != nil {
		if stopErr := stream.Release(); stopErr != nil {
			log.Printf("Failed to release stream after attach error: %v", stopErr)
		}
		return nil, fmt.Errorf("failed to attach stream to render sink: %w", err)
	}

	ts := track.Settings()
	log.Printf("Camera stream acquired: track=%s size=%dx%d", track.ID(), ts.Width, ts.Height)
	return stream, nil
}
