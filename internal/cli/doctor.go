package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"proctor-camera/internal/config"
	"proctor-camera/internal/output"
	"proctor-camera/pkg/ffmpeg"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(os.Stdout)
			cfg := deps.Config
			ok := true

			if cfg.Device == "webrtc" {
				f.SetupCheck("Camera device", true, "webrtc (frames from the assessment page)")
			} else if err := ffmpeg.CheckInstallation(); err != nil {
				f.SetupCheck("ffmpeg", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("ffmpeg", true, "installed")
				ctx, cancel := contextWithTimeout(cmd, 10*time.Second)
				w, h, err := ffmpeg.ProbeSize(ctx, ffmpeg.Input{Format: cfg.FFmpegInputFormat, Device: cfg.FFmpegDevice})
				cancel()
				if err != nil {
					f.SetupCheck("Camera", false, fmt.Sprintf("%s: %v", cfg.FFmpegDevice, err))
					ok = false
				} else {
					f.SetupCheck("Camera", true, fmt.Sprintf("%s (%dx%d)", cfg.FFmpegDevice, w, h))
				}
			}

			if settings, err := config.LoadSettings(cfg.SettingsFile); err != nil {
				f.SetupCheck("Camera settings", false, err.Error())
				ok = false
			} else {
				mode := string(settings.RecordingMode)
				if mode == "" {
					mode = "none"
				}
				f.SetupCheck("Camera settings", true, "recording mode "+mode)
			}

			if cfg.SessionID != "" {
				f.SetupCheck("Session id", true, cfg.SessionID)
			} else {
				f.SetupCheck("Session id", false, "not set. Use --session or SESSION_ID")
				ok = false
			}

			if err := checkReachable(cmd, cfg.APIBaseURL); err != nil {
				f.SetupCheck("Assessment service", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("Assessment service", true, cfg.APIBaseURL)
			}

			if ok {
				f.Success("\nAll prerequisites met. Ready to capture!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}

// checkReachable treats any HTTP answer as reachable
func checkReachable(cmd *cobra.Command, baseURL string) error {
	ctx, cancel := contextWithTimeout(cmd, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
