package output

import (
	"bytes"
	"strings"
	"testing"

	"proctor-camera/internal/models"
)

func TestFormatter_CaptureOutcome(t *testing.T) {
	tests := []struct {
		name    string
		outcome *models.UploadOutcome
		want    string
	}{
		{"skipped", nil, "manual capture skipped"},
		{"uploaded", &models.UploadOutcome{Success: true}, "manual capture uploaded"},
		{"failed", &models.UploadOutcome{Error: "disk full"}, "manual capture failed: disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewFormatter(&buf).CaptureOutcome(models.TriggerManual, tt.outcome)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, buf.String())
			}
		})
	}
}

func TestFormatter_SetupCheck(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)
	f.SetupCheck("ffmpeg", true, "installed")
	f.SetupCheck("Session id", false, "not set")

	out := buf.String()
	if !strings.Contains(out, "✅ ffmpeg: installed") || !strings.Contains(out, "❌ Session id: not set") {
		t.Errorf("unexpected output %q", out)
	}
}
