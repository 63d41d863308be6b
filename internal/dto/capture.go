package dto

import (
	"encoding/json"

	"proctor-camera/internal/models"
)

// CaptureRequest represents a request to capture a frame now
type CaptureRequest struct {
	Trigger string        `json:"trigger,omitempty"`
	Timing  models.Timing `json:"timing,omitempty"`
}

// HookRequest represents a host page event hook call
type HookRequest struct {
	Timing models.Timing `json:"timing,omitempty"`
}

// SetIDRequest represents a response-id or conversation-id update
type SetIDRequest struct {
	ID string `json:"id"`
}

// CaptureResult reports what a capture-triggering call did.
// Triggered is false when the hook was gated off and nothing happened.
type CaptureResult struct {
	Triggered bool                  `json:"triggered"`
	Outcome   *models.UploadOutcome `json:"outcome,omitempty"`
}

// Message is the envelope for host page websocket messages
type Message struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Host → agent message types
const (
	TypeHookButtonClick   = "hook.button_click"
	TypeHookMessageSend   = "hook.message_send"
	TypeHookQuestionStart = "hook.question_start"
	TypeCaptureManual     = "capture.manual"
	TypeStatusRequest     = "status.request"
	TypeSetResponseID     = "session.set_response_id"
	TypeSetConversationID = "session.set_conversation_id"
)

// Agent → host message types
const (
	TypeCaptureResult = "capture.result"
	TypeStatus        = "status"
	TypeAck           = "ack"
	TypeError         = "error"
)

// ErrorPayload carries a websocket error
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Websocket error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeNotInitialized = "NOT_INITIALIZED"
	ErrCodeCaptureFailed  = "CAPTURE_FAILED"
)

// CaptureEvent is published by the reference receiver for every stored frame
type CaptureEvent struct {
	CaptureID string          `json:"capture_id"`
	SessionID string          `json:"session_id"`
	Trigger   string          `json:"trigger"`
	Filename  string          `json:"filename"`
	SizeBytes int64           `json:"size_bytes"`
	Timing    json.RawMessage `json:"timing,omitempty"`
	Received  string          `json:"received_at"`
}

// StatusResponse is the session snapshot plus scheduler and device details
type StatusResponse struct {
	models.SessionStatus
	Scheduler string                 `json:"scheduler"`
	Device    map[string]interface{} `json:"device,omitempty"`
}
