package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log"

	xdraw "golang.org/x/image/draw"
)

const (
	// DefaultWidth and DefaultHeight size the raster surface when the video reports no size
	DefaultWidth  = 640
	DefaultHeight = 480
	// JPEGQuality is the fixed 0.8 quality factor of the raster path
	JPEGQuality = 80
)

// Capturer extracts one still image from a live stream
type Capturer struct {
	quality int
}

func NewCapturer() *Capturer {
	return &Capturer{quality: JPEGQuality}
}

// Capture prefers the track's frame-grab primitive and falls back to drawing the
// sink's current frame onto a raster surface.
func (c *Capturer) Capture(ctx context.Context, track Track, sink Sink) ([]byte, error) {
	if grabber, ok := track.FrameGrabber(); ok {
		data, err := grabber.GrabFrame(ctx)
		if err == nil && len(data) > 0 {
			return data, nil
		}
		if err == nil {
			err = fmt.Errorf("empty frame")
		}
		log.Printf("Frame grab failed on track %s, falling back to raster capture: %v", track.ID(), err)
	}

	data, err := c.rasterCapture(ctx, sink)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return data, nil
}

func (c *Capturer) rasterCapture(ctx context.Context, sink Sink) ([]byte, error) {
	frame, err := sink.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, ErrNoFrame
	}

	width, height := sink.VideoSize()
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	if frame.Bounds().Dx() == width && frame.Bounds().Dy() == height {
		xdraw.Draw(canvas, canvas.Bounds(), frame, frame.Bounds().Min, xdraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), frame, frame.Bounds(), xdraw.Src, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
