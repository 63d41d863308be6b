package cli

import (
	"github.com/spf13/cobra"

	"proctor-camera/internal/config"
	"proctor-camera/internal/version"
)

type Dependencies struct {
	Config *config.Config
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "proctor-camera",
		Short:         "Capture camera stills during proctored assessments",
		Long:          "Runs next to the assessment page, captures camera stills on a timer or on page events, and uploads them to the assessment service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&deps.Config.APIBaseURL, "api", deps.Config.APIBaseURL, "Assessment service base URL")
	flags.StringVarP(&deps.Config.SessionID, "session", "s", deps.Config.SessionID, "Assessment session id")
	flags.StringVar(&deps.Config.SettingsFile, "settings", deps.Config.SettingsFile, "Camera settings file (.toml, .yaml or .json)")
	flags.StringVar(&deps.Config.Device, "device", deps.Config.Device, "Camera device: ffmpeg or webrtc")

	rootCmd.AddCommand(NewRunCmd(deps))
	rootCmd.AddCommand(NewSnapCmd(deps))
	rootCmd.AddCommand(NewResetSessionCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}
