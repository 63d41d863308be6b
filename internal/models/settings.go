package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RecordingMode is the top-level capture scheduling policy
type RecordingMode string

const (
	RecordingModeNone        RecordingMode = ""
	RecordingModeInterval    RecordingMode = "interval"
	RecordingModeEventDriven RecordingMode = "event_driven"
)

// ParseRecordingMode accepts the spellings used in settings files and the host page
func ParseRecordingMode(raw string) (RecordingMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none":
		return RecordingModeNone, nil
	case "interval":
		return RecordingModeInterval, nil
	case "event_driven", "event-driven", "event":
		return RecordingModeEventDriven, nil
	default:
		return RecordingModeNone, fmt.Errorf("unknown recording mode %q", raw)
	}
}

// CameraSettings is supplied by the host and never changes for the lifetime of a session
type CameraSettings struct {
	RecordingMode          RecordingMode `json:"recording_mode,omitempty"`
	IntervalSeconds        *int          `json:"interval_seconds,omitempty"`
	CaptureOnButtonClick   bool          `json:"capture_on_button_click"`
	CaptureOnMessageSend   bool          `json:"capture_on_message_send"`
	CaptureOnQuestionStart bool          `json:"capture_on_question_start"`
	Resolution             string        `json:"resolution,omitempty"`
}

// Interval returns the capture period and whether interval capture is fully configured.
// A missing or non-positive interval_seconds disables interval capture.
func (s CameraSettings) Interval() (time.Duration, bool) {
	if s.RecordingMode != RecordingModeInterval || s.IntervalSeconds == nil || *s.IntervalSeconds <= 0 {
		return 0, false
	}
	return time.Duration(*s.IntervalSeconds) * 1000 * time.Millisecond, true
}

// Validate rejects settings that cannot be produced by a well-formed settings source
func (s CameraSettings) Validate() error {
	if _, err := ParseRecordingMode(string(s.RecordingMode)); err != nil {
		return err
	}
	if s.IntervalSeconds != nil && *s.IntervalSeconds <= 0 {
		return fmt.Errorf("interval_seconds must be positive, got %d", *s.IntervalSeconds)
	}
	if s.Resolution != "" {
		if _, _, err := ParseResolution(s.Resolution); err != nil {
			return err
		}
	}
	return nil
}

// ParseResolution parses a "<width>x<height>" hint
func ParseResolution(raw string) (width, height int, err error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(raw)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid resolution %q: expected <width>x<height>", raw)
	}
	width, err = strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution width in %q", raw)
	}
	height, err = strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution height in %q", raw)
	}
	return width, height, nil
}

// IntPtr is a helper for building settings literals
func IntPtr(v int) *int {
	return &v
}
