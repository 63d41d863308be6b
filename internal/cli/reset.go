package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"proctor-camera/internal/output"
	"proctor-camera/internal/upload"
)

func NewResetSessionCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-session",
		Short: "Ask the assessment service to reset a session after a restart",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.Config
			if cfg.SessionID == "" {
				return fmt.Errorf("session id is required (--session or SESSION_ID)")
			}

			client := upload.NewClient(cfg.APIBaseURL, cfg.UploadTimeout)
			ctx, cancel := contextWithTimeout(cmd, cfg.ResetTimeout)
			defer cancel()

			if err := client.ResetSession(ctx, cfg.SessionID); err != nil {
				return err
			}
			output.NewFormatter(os.Stdout).Success(fmt.Sprintf("Session %s reset", cfg.SessionID))
			return nil
		},
	}
}
