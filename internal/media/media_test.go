package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"proctor-camera/internal/models"
)

type fakeGrabber struct {
	data []byte
	err  error
}

func (g *fakeGrabber) GrabFrame(ctx context.Context) ([]byte, error) {
	return g.data, g.err
}

type fakeTrack struct {
	settings TrackSettings
	grabber  FrameGrabber
	frame    image.Image
	stops    int
}

func (t *fakeTrack) ID() string              { return "fake-track" }
func (t *fakeTrack) Settings() TrackSettings { return t.settings }
func (t *fakeTrack) Stop() error             { t.stops++; return nil }

func (t *fakeTrack) FrameGrabber() (FrameGrabber, bool) {
	if t.grabber == nil {
		return nil, false
	}
	return t.grabber, true
}

func (t *fakeTrack) CurrentFrame(ctx context.Context) (image.Image, error) {
	if t.frame == nil {
		return nil, ErrNoFrame
	}
	return t.frame, nil
}

type fakeDevice struct {
	track *fakeTrack
	err   error
	got   Constraints
}

func (d *fakeDevice) Open(ctx context.Context, c Constraints) (Track, error) {
	d.got = c
	if d.err != nil {
		return nil, d.err
	}
	return d.track, nil
}

func solidFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	return img
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestConstraintsFor_NaturalSizeWithoutResolution(t *testing.T) {
	c := ConstraintsFor(models.CameraSettings{})
	if c.IdealWidth != 0 || c.IdealHeight != 0 {
		t.Errorf("expected natural size, got %dx%d", c.IdealWidth, c.IdealHeight)
	}
	if c.FacingMode != FacingUser {
		t.Errorf("expected facing mode %q, got %q", FacingUser, c.FacingMode)
	}
}

func TestConstraintsFor_ResolutionHint(t *testing.T) {
	c := ConstraintsFor(models.CameraSettings{Resolution: "1280x720"})
	if c.IdealWidth != 1280 || c.IdealHeight != 720 {
		t.Errorf("expected 1280x720, got %dx%d", c.IdealWidth, c.IdealHeight)
	}

	c = ConstraintsFor(models.CameraSettings{Resolution: "wide"})
	if c.IdealWidth != 0 || c.IdealHeight != 0 {
		t.Errorf("malformed hint should be ignored, got %dx%d", c.IdealWidth, c.IdealHeight)
	}
}

func TestAcquirer_DeviceErrorIsPermissionOrDevice(t *testing.T) {
	device := &fakeDevice{err: errors.New("NotAllowedError")}
	sink, _ := NewSurface()

	_, err := NewAcquirer(device).Acquire(context.Background(), models.CameraSettings{}, sink)
	if !errors.Is(err, ErrPermissionOrDevice) {
		t.Fatalf("expected ErrPermissionOrDevice, got %v", err)
	}
}

func TestAcquirer_NoDevice(t *testing.T) {
	sink, _ := NewSurface()
	_, err := NewAcquirer(nil).Acquire(context.Background(), models.CameraSettings{}, sink)
	if !errors.Is(err, ErrPermissionOrDevice) {
		t.Fatalf("expected ErrPermissionOrDevice, got %v", err)
	}
}

func TestAcquirer_AttachesSinkAndReleasesOnce(t *testing.T) {
	track := &fakeTrack{settings: TrackSettings{Width: 320, Height: 240}, frame: solidFrame(320, 240)}
	device := &fakeDevice{track: track}
	sink, _ := NewSurface()

	stream, err := NewAcquirer(device).Acquire(context.Background(), models.CameraSettings{Resolution: "320x240"}, sink)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if device.got.IdealWidth != 320 {
		t.Errorf("expected resolution hint to reach the device, got %+v", device.got)
	}
	if w, h := sink.VideoSize(); w != 320 || h != 240 {
		t.Errorf("expected sink size 320x240, got %dx%d", w, h)
	}

	if err := stream.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := stream.Release(); err != nil {
		t.Fatalf("second Release failed: %v", err)
	}
	if track.stops != 1 {
		t.Errorf("expected track stopped once, got %d", track.stops)
	}
}

func TestSurface_DetachedSnapshotFails(t *testing.T) {
	sink, _ := NewSurface()
	if _, err := sink.Snapshot(context.Background()); !errors.Is(err, ErrSinkDetached) {
		t.Fatalf("expected ErrSinkDetached, got %v", err)
	}

	track := &fakeTrack{frame: solidFrame(8, 8)}
	if err := sink.Attach(track); err != nil {
		t.Fatal(err)
	}
	if err := sink.Detach(); err != nil {
		t.Fatal(err)
	}
	if err := sink.Detach(); err != nil {
		t.Fatalf("second Detach should be a no-op, got %v", err)
	}
	if _, err := sink.Snapshot(context.Background()); !errors.Is(err, ErrSinkDetached) {
		t.Fatalf("expected ErrSinkDetached after detach, got %v", err)
	}
}

func TestCapturer_PrefersFrameGrab(t *testing.T) {
	photo := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	track := &fakeTrack{grabber: &fakeGrabber{data: photo}, frame: solidFrame(4, 4)}
	sink, _ := NewSurface()
	_ = sink.Attach(track)

	data, err := NewCapturer().Capture(context.Background(), track, sink)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !bytes.Equal(data, photo) {
		t.Errorf("expected frame-grab output to be returned unchanged")
	}
}

func TestCapturer_FallsBackWhenGrabFails(t *testing.T) {
	track := &fakeTrack{
		settings: TrackSettings{Width: 320, Height: 240},
		grabber:  &fakeGrabber{err: errors.New("track ended")},
		frame:    solidFrame(320, 240),
	}
	sink, _ := NewSurface()
	_ = sink.Attach(track)

	data, err := NewCapturer().Capture(context.Background(), track, sink)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if w, h := decodeSize(t, data); w != 320 || h != 240 {
		t.Errorf("expected 320x240 jpeg, got %dx%d", w, h)
	}
}

func TestCapturer_DefaultSizeWhenUnreported(t *testing.T) {
	track := &fakeTrack{frame: solidFrame(100, 50)}
	sink, _ := NewSurface()
	_ = sink.Attach(track)

	data, err := NewCapturer().Capture(context.Background(), track, sink)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if w, h := decodeSize(t, data); w != DefaultWidth || h != DefaultHeight {
		t.Errorf("expected %dx%d jpeg, got %dx%d", DefaultWidth, DefaultHeight, w, h)
	}
}

func TestCapturer_BothPathsFail(t *testing.T) {
	track := &fakeTrack{grabber: &fakeGrabber{err: errors.New("busy")}}
	sink, _ := NewSurface()
	_ = sink.Attach(track)

	_, err := NewCapturer().Capture(context.Background(), track, sink)
	if !errors.Is(err, ErrCapture) {
		t.Fatalf("expected ErrCapture, got %v", err)
	}
}
