package output

import (
	"fmt"
	"io"

	"proctor-camera/internal/models"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

func (f *Formatter) SessionReady(status models.SessionStatus, scheduler, listen string) {
	fmt.Fprintf(f.w, "📷 Camera ready for session %s (%s)\n", status.SessionID, scheduler)
	fmt.Fprintf(f.w, "   Control API: http://%s/api/camera\n", listen)
}

func (f *Formatter) CaptureOutcome(trigger models.Trigger, outcome *models.UploadOutcome) {
	if outcome == nil {
		fmt.Fprintf(f.w, "⏭️  %s capture skipped\n", trigger)
		return
	}
	if outcome.Success {
		fmt.Fprintf(f.w, "✅ %s capture uploaded\n", trigger)
		return
	}
	fmt.Fprintf(f.w, "❌ %s capture failed: %s\n", trigger, outcome.Error)
}
