package cli

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"proctor-camera/internal/config"
)

func testDeps(t *testing.T) *Dependencies {
	t.Helper()
	t.Setenv("SESSION_ID", "")
	t.Setenv("CAMERA_DEVICE", "")
	return &Dependencies{Config: config.New()}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd(testDeps(t))
	for _, name := range []string{"run", "snap", "reset-session", "doctor"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("expected subcommand %s", name)
		}
	}
}

func TestResetSessionCmd(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/assessment/reset-session-on-refresh/sess-5" && r.Method == http.MethodPost {
			calls.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	root := NewRootCmd(testDeps(t))
	root.SetArgs([]string{"reset-session", "--api", srv.URL, "--session", "sess-5"})
	if err := root.Execute(); err != nil {
		t.Fatalf("reset-session failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one reset call, got %d", calls.Load())
	}
}

func TestResetSessionCmd_RequiresSession(t *testing.T) {
	root := NewRootCmd(testDeps(t))
	root.SetArgs([]string{"reset-session"})
	if err := root.Execute(); err == nil {
		t.Error("expected error without session id")
	}
}

func TestSnapCmd_UnknownDevice(t *testing.T) {
	root := NewRootCmd(testDeps(t))
	root.SetArgs([]string{"snap", "--session", "s", "--device", "kinect"})
	if err := root.Execute(); err == nil {
		t.Error("expected error for unknown device")
	}
}

func TestSnapCmd_BadTrigger(t *testing.T) {
	root := NewRootCmd(testDeps(t))
	root.SetArgs([]string{"snap", "--session", "s", "--trigger", "sometimes"})
	if err := root.Execute(); err == nil {
		t.Error("expected error for unknown trigger")
	}
}

func TestNewDevice(t *testing.T) {
	cfg := testDeps(t).Config

	cfg.Device = "webrtc"
	dev, feed, err := newDevice(cfg)
	if err != nil || dev == nil || feed == nil {
		t.Errorf("expected webrtc device and feed, got %v %v %v", dev, feed, err)
	}

	cfg.Device = "ffmpeg"
	dev, feed, err = newDevice(cfg)
	if err != nil || dev == nil || feed != nil {
		t.Errorf("expected ffmpeg device without feed, got %v %v %v", dev, feed, err)
	}
}
