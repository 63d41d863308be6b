// Package device provides camera devices backed by ffmpeg.
package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"sync"

	"github.com/google/uuid"

	"proctor-camera/internal/media"
	"proctor-camera/pkg/ffmpeg"
)

var errTrackStopped = errors.New("camera track has been stopped")

// FFmpeg opens a local camera through the ffmpeg command line tools
type FFmpeg struct {
	format string
	device string

	check    func() error
	probe    func(ctx context.Context, in ffmpeg.Input) (int, int, error)
	grabJPEG func(ctx context.Context, in ffmpeg.Input) ([]byte, error)
	grabPNG  func(ctx context.Context, in ffmpeg.Input) ([]byte, error)
}

func NewFFmpeg(format, device string) *FFmpeg {
	return &FFmpeg{
		format:   format,
		device:   device,
		check:    ffmpeg.CheckInstallation,
		probe:    ffmpeg.ProbeSize,
		grabJPEG: ffmpeg.GrabJPEG,
		grabPNG:  ffmpeg.GrabPNG,
	}
}

// Open probes the device. The ideal size is passed to ffmpeg as a hint; if the device
// rejects it the natural size is used instead.
func (f *FFmpeg) Open(ctx context.Context, c media.Constraints) (media.Track, error) {
	if err := f.check(); err != nil {
		return nil, err
	}

	in := ffmpeg.Input{Format: f.format, Device: f.device, Width: c.IdealWidth, Height: c.IdealHeight}
	width, height, err := f.probe(ctx, in)
	if err != nil && in.Width > 0 {
		log.Printf("Camera rejected %dx%d, retrying with native size: %v", in.Width, in.Height, err)
		in.Width, in.Height = 0, 0
		width, height, err = f.probe(ctx, in)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.device, err)
	}

	track := &ffmpegTrack{
		id:     uuid.New().String(),
		in:     in,
		width:  width,
		height: height,
		dev:    f,
	}
	log.Printf("Camera %s opened (%dx%d, track %s)", f.device, width, height, track.id)
	return track, nil
}

type ffmpegTrack struct {
	id     string
	in     ffmpeg.Input
	width  int
	height int
	dev    *FFmpeg

	mu      sync.RWMutex
	stopped bool
}

func (t *ffmpegTrack) ID() string { return t.id }

func (t *ffmpegTrack) Settings() media.TrackSettings {
	return media.TrackSettings{Width: t.width, Height: t.height}
}

func (t *ffmpegTrack) FrameGrabber() (media.FrameGrabber, bool) {
	return t, true
}

func (t *ffmpegTrack) live() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.stopped
}

// GrabFrame returns one full-quality JPEG still
func (t *ffmpegTrack) GrabFrame(ctx context.Context) ([]byte, error) {
	if !t.live() {
		return nil, errTrackStopped
	}
	return t.dev.grabJPEG(ctx, t.in)
}

// CurrentFrame renders one lossless frame for the raster path
func (t *ffmpegTrack) CurrentFrame(ctx context.Context) (image.Image, error) {
	if !t.live() {
		return nil, errTrackStopped
	}
	data, err := t.dev.grabPNG(ctx, t.in)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

func (t *ffmpegTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	return nil
}
