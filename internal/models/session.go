package models

// LifecycleState is the capture session lifecycle
type LifecycleState string

// Session lifecycle states
const (
	StateUninitialized LifecycleState = "uninitialized"
	StateInitializing  LifecycleState = "initializing"
	StateReady         LifecycleState = "ready"
	StateCleaned       LifecycleState = "cleaned"
)

// SessionStatus is the read-only view returned by Session.Status
type SessionStatus struct {
	Initialized       bool           `json:"initialized"`
	CurrentResponseID string         `json:"currentResponseId"`
	AssessmentID      string         `json:"assessmentId"`
	SessionID         string         `json:"sessionId"`
	AssessmentType    string         `json:"assessmentType"`
	CameraSettings    CameraSettings `json:"cameraSettings"`
}
