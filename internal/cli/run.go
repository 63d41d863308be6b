package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"proctor-camera/internal/api"
	"proctor-camera/internal/config"
	"proctor-camera/internal/output"
	"proctor-camera/internal/session"
	"proctor-camera/internal/upload"
)

func NewRunCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the camera session and control API",
		Long:  "Acquires the camera, arms interval or event-driven capture from the settings file, and serves the control API for the assessment page until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runAgent(ctx, deps.Config, output.NewFormatter(os.Stdout))
		},
	}

	cmd.Flags().StringVar(&deps.Config.AgentAddress, "listen", deps.Config.AgentAddress, "Control API listen address")
	return cmd
}

func runAgent(ctx context.Context, cfg *config.Config, f *output.Formatter) error {
	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		return err
	}

	dev, feed, err := newDevice(cfg)
	if err != nil {
		return err
	}

	client := upload.NewClient(cfg.APIBaseURL, cfg.UploadTimeout)
	sess, err := newSession(cfg, settings, dev, client)
	if err != nil {
		return err
	}
	defer sess.Cleanup()

	guard := session.NewRefreshGuard(cfg.MarkerDir, client, cfg.ResetTimeout)
	if refreshed, err := guard.Begin(ctx, cfg.SessionID); err != nil {
		log.Printf("Restart detection unavailable: %v", err)
	} else if refreshed {
		f.Warning("Previous run for this session did not exit cleanly; session was reset")
	}

	// A nil *webrtc.Source must not become a non-nil FrameFeed.
	var handler *api.Handler
	if feed != nil {
		handler = api.NewHandler(sess, feed)
	} else {
		handler = api.NewHandler(sess, nil)
	}
	server := api.NewHTTPServer(cfg.AgentAddress, cfg, api.SetupRoutes(handler))

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Control API listening on %s", cfg.AgentAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// The server is already up so a WebRTC page can connect while the camera opens.
	acquireCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	err = sess.Initialize(acquireCtx)
	cancel()
	if err != nil {
		shutdown(server, handler)
		return fmt.Errorf("camera initialization failed: %w", err)
	}
	f.SessionReady(sess.Status(), string(sess.SchedulerState()), cfg.AgentAddress)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		sess.Cleanup()
		return fmt.Errorf("control API failed: %w", err)
	}

	log.Println("Shutting down camera session...")
	sess.Cleanup()
	shutdown(server, handler)
	guard.End(cfg.SessionID)
	f.Info("Camera session ended")
	return nil
}

func shutdown(server *http.Server, handler *api.Handler) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	handler.Hub().Close()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}
