package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"proctor-camera/internal/models"
	"proctor-camera/internal/output"
	"proctor-camera/internal/upload"
)

func NewSnapCmd(deps *Dependencies) *cobra.Command {
	var trigger string

	cmd := &cobra.Command{
		Use:   "snap",
		Short: "Capture and upload a single still",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(os.Stdout)
			cfg := deps.Config

			t, err := models.ParseTrigger(trigger)
			if err != nil {
				return err
			}

			dev, _, err := newDevice(cfg)
			if err != nil {
				return err
			}

			// A one-shot capture never arms the scheduler.
			client := upload.NewClient(cfg.APIBaseURL, cfg.UploadTimeout)
			sess, err := newSession(cfg, models.CameraSettings{}, dev, client)
			if err != nil {
				return err
			}
			defer sess.Cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.AcquireTimeout)
			defer cancel()
			if err := sess.Initialize(ctx); err != nil {
				return err
			}

			outcome, err := sess.CaptureImage(cmd.Context(), t, models.Timing{"source": "cli"})
			f.CaptureOutcome(t, outcome)
			return err
		},
	}

	cmd.Flags().StringVarP(&trigger, "trigger", "t", string(models.TriggerManual), "Trigger recorded with the upload")
	return cmd
}
