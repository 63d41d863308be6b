package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"proctor-camera/internal/config"
	"proctor-camera/internal/device"
	"proctor-camera/internal/media"
	"proctor-camera/internal/models"
	"proctor-camera/internal/session"
	"proctor-camera/internal/upload"
	"proctor-camera/internal/webrtc"
)

// newDevice picks the camera device. The WebRTC source is also returned so its
// signalling endpoints can be served.
func newDevice(cfg *config.Config) (media.Device, *webrtc.Source, error) {
	switch cfg.Device {
	case "ffmpeg", "":
		return device.NewFFmpeg(cfg.FFmpegInputFormat, cfg.FFmpegDevice), nil, nil
	case "webrtc":
		source := webrtc.NewSource(nil)
		return source, source, nil
	default:
		return nil, nil, fmt.Errorf("unknown camera device %q", cfg.Device)
	}
}

func newSession(cfg *config.Config, settings models.CameraSettings, dev media.Device, client *upload.Client) (*session.Session, error) {
	if cfg.SessionID == "" {
		return nil, fmt.Errorf("session id is required (--session or SESSION_ID)")
	}
	return session.New(session.Config{
		SessionID:      cfg.SessionID,
		AssessmentID:   cfg.AssessmentID,
		AssessmentType: cfg.AssessmentType,
		Settings:       settings,
		Device:         dev,
		Uploader:       client,
	})
}

func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), d)
}
