package device

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"proctor-camera/internal/media"
	"proctor-camera/pkg/ffmpeg"
)

func pngFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func fakeFFmpeg(t *testing.T) (*FFmpeg, *[]ffmpeg.Input) {
	var probes []ffmpeg.Input
	f := NewFFmpeg("v4l2", "/dev/video0")
	f.check = func() error { return nil }
	f.probe = func(ctx context.Context, in ffmpeg.Input) (int, int, error) {
		probes = append(probes, in)
		if in.Width == 4096 {
			return 0, 0, errors.New("unsupported size")
		}
		if in.Width > 0 {
			return in.Width, in.Height, nil
		}
		return 640, 480, nil
	}
	f.grabJPEG = func(ctx context.Context, in ffmpeg.Input) ([]byte, error) {
		return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
	}
	f.grabPNG = func(ctx context.Context, in ffmpeg.Input) ([]byte, error) {
		return pngFrame(t, 64, 48), nil
	}
	return f, &probes
}

func TestFFmpeg_OpenUsesHint(t *testing.T) {
	f, _ := fakeFFmpeg(t)
	track, err := f.Open(context.Background(), media.Constraints{IdealWidth: 1280, IdealHeight: 720})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s := track.Settings(); s.Width != 1280 || s.Height != 720 {
		t.Errorf("expected 1280x720, got %+v", s)
	}
}

func TestFFmpeg_OpenFallsBackToNativeSize(t *testing.T) {
	f, probes := fakeFFmpeg(t)
	track, err := f.Open(context.Background(), media.Constraints{IdealWidth: 4096, IdealHeight: 2160})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s := track.Settings(); s.Width != 640 || s.Height != 480 {
		t.Errorf("expected native 640x480, got %+v", s)
	}
	if len(*probes) != 2 {
		t.Errorf("expected two probes, got %d", len(*probes))
	}
}

func TestFFmpeg_OpenMissingBinary(t *testing.T) {
	f, _ := fakeFFmpeg(t)
	f.check = func() error { return errors.New("ffmpeg is not installed") }
	if _, err := f.Open(context.Background(), media.Constraints{}); err == nil {
		t.Fatal("expected error when ffmpeg is missing")
	}
}

func TestFFmpegTrack_GrabAndRender(t *testing.T) {
	f, _ := fakeFFmpeg(t)
	track, err := f.Open(context.Background(), media.Constraints{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	grabber, ok := track.FrameGrabber()
	if !ok {
		t.Fatal("expected frame grabber")
	}
	if data, err := grabber.GrabFrame(context.Background()); err != nil || len(data) == 0 {
		t.Errorf("GrabFrame failed: %v", err)
	}

	source, ok := track.(media.FrameSource)
	if !ok {
		t.Fatal("expected track to be a frame source")
	}
	img, err := source.CurrentFrame(context.Background())
	if err != nil {
		t.Fatalf("CurrentFrame failed: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("unexpected frame bounds %v", img.Bounds())
	}
}

func TestFFmpegTrack_StoppedTrackRefusesFrames(t *testing.T) {
	f, _ := fakeFFmpeg(t)
	track, _ := f.Open(context.Background(), media.Constraints{})
	track.Stop()

	grabber, _ := track.FrameGrabber()
	if _, err := grabber.GrabFrame(context.Background()); err == nil {
		t.Error("expected error grabbing from stopped track")
	}
	if _, err := track.(media.FrameSource).CurrentFrame(context.Background()); err == nil {
		t.Error("expected error rendering stopped track")
	}
}
