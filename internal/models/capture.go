package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Trigger names the reason a capture happened
type Trigger string

const (
	TriggerManual        Trigger = "manual"
	TriggerInterval      Trigger = "interval"
	TriggerButtonClick   Trigger = "button_click"
	TriggerMessageSend   Trigger = "message_send"
	TriggerQuestionStart Trigger = "question_start"
)

// ParseTrigger validates a trigger name received from outside the process
func ParseTrigger(raw string) (Trigger, error) {
	switch t := Trigger(raw); t {
	case TriggerManual, TriggerInterval, TriggerButtonClick, TriggerMessageSend, TriggerQuestionStart:
		return t, nil
	case "":
		return TriggerManual, nil
	default:
		return "", fmt.Errorf("unknown trigger %q", raw)
	}
}

// Timing is an opaque structured payload forwarded with an upload
type Timing map[string]interface{}

// UploadOutcome is the result of one capture+upload round trip
type UploadOutcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CaptureRecord is a stored upload on the receiving side
type CaptureRecord struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Filename  string          `json:"filename"`
	FilePath  string          `json:"file_path"`
	Trigger   Trigger         `json:"trigger"`
	Timing    json.RawMessage `json:"timing,omitempty"`
	SizeBytes int64           `json:"size_bytes"`
	CreatedAt time.Time       `json:"created_at"`
}
