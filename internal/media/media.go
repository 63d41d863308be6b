// Package media owns the camera stream, the render sink it is attached to, and
// still-frame extraction from that sink.
package media

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrPermissionOrDevice is returned when the camera is denied or unavailable
	ErrPermissionOrDevice = errors.New("camera permission denied or device unavailable")
	// ErrCapture is returned when no frame could be extracted from the stream
	ErrCapture = errors.New("frame capture failed")
	// ErrSinkDetached is returned when reading from a sink that is not attached to a track
	ErrSinkDetached = errors.New("render sink is not attached")
	// ErrNoFrame is returned by a frame source that has not rendered anything yet
	ErrNoFrame = errors.New("no frame available")
)

// FacingUser is the front-facing camera preference
const FacingUser = "user"

// Constraints are acquisition hints. Zero width/height keeps the device's natural size.
type Constraints struct {
	IdealWidth  int
	IdealHeight int
	FacingMode  string
}

// TrackSettings describes what the device actually delivers. Zero values mean unreported.
type TrackSettings struct {
	Width  int
	Height int
}

// Device is the host camera permission/stream system
type Device interface {
	Open(ctx context.Context, c Constraints) (Track, error)
}

// Track is a live video track
type Track interface {
	ID() string
	Settings() TrackSettings
	// FrameGrabber reports whether the track offers a still-photo primitive
	FrameGrabber() (FrameGrabber, bool)
	Stop() error
}

// FrameGrabber takes a full-resolution still straight from a track
type FrameGrabber interface {
	GrabFrame(ctx context.Context) ([]byte, error)
}

// FrameSource is implemented by tracks that can render their current frame
type FrameSource interface {
	CurrentFrame(ctx context.Context) (image.Image, error)
}

// Sink is a render-capable surface a stream is attached to
type Sink interface {
	Attach(track Track) error
	Snapshot(ctx context.Context) (image.Image, error)
	VideoSize() (width, height int)
	Detach() error
}

// SinkFactory creates the render sink for a session
type SinkFactory func() (Sink, error)
