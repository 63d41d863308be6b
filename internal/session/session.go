// Package session is the capture orchestrator. A Session owns the camera stream,
// its render sink and the trigger scheduler, and exposes the control surface the
// host page drives.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"proctor-camera/internal/media"
	"proctor-camera/internal/models"
	"proctor-camera/internal/scheduler"
	"proctor-camera/internal/upload"
)

var (
	// ErrNotInitialized is returned when capture is attempted outside READY
	ErrNotInitialized = errors.New("camera session is not initialized")
	// ErrSessionClosed is returned when Initialize is called after Cleanup
	ErrSessionClosed = errors.New("camera session has been cleaned up")
)

// Uploader sends one captured image to the assessment service
type Uploader interface {
	Upload(ctx context.Context, sessionID string, image []byte, trigger models.Trigger, timing models.Timing) error
}

// Capturer extracts one still image from the stream
type Capturer interface {
	Capture(ctx context.Context, track media.Track, sink media.Sink) ([]byte, error)
}

// Config wires a Session to its collaborators
type Config struct {
	SessionID      string
	AssessmentID   string
	AssessmentType string
	Settings       models.CameraSettings

	Device      media.Device
	NewSink     media.SinkFactory
	Capturer    Capturer
	Uploader    Uploader
	SchedulerOp []scheduler.Option
}

type Session struct {
	sessionID      string
	assessmentType string
	settings       models.CameraSettings

	acquirer  *media.Acquirer
	newSink   media.SinkFactory
	capturer  Capturer
	uploader  Uploader
	scheduler *scheduler.Scheduler

	mu                sync.RWMutex
	state             models.LifecycleState
	assessmentID      string
	currentResponseID string
	sink              media.Sink
	stream            *media.Stream
}

func New(cfg Config) (*Session, error) {
	if cfg.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if cfg.Uploader == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	if cfg.NewSink == nil {
		cfg.NewSink = media.NewSurface
	}
	if cfg.Capturer == nil {
		cfg.Capturer = media.NewCapturer()
	}

	return &Session{
		sessionID:      cfg.SessionID,
		assessmentID:   cfg.AssessmentID,
		assessmentType: cfg.AssessmentType,
		settings:       cfg.Settings,
		acquirer:       media.NewAcquirer(cfg.Device),
		newSink:        cfg.NewSink,
		capturer:       cfg.Capturer,
		uploader:       cfg.Uploader,
		scheduler:      scheduler.New(cfg.Settings, cfg.SchedulerOp...),
		state:          models.StateUninitialized,
	}, nil
}

// Initialize creates the render sink, acquires the stream and arms the scheduler.
// On failure the session is left not ready and the caller is expected to call Cleanup.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case models.StateReady, models.StateInitializing:
		s.mu.Unlock()
		return nil
	case models.StateCleaned:
		s.mu.Unlock()
		return ErrSessionClosed
	}
	stale := s.sink
	s.sink = nil
	s.state = models.StateInitializing
	s.mu.Unlock()
	detachSink(stale)

	sink, err := s.newSink()
	if err != nil {
		s.abortInitialize(nil)
		return fmt.Errorf("failed to create render sink: %w", err)
	}

	stream, err := s.acquirer.Acquire(ctx, s.settings, sink)
	if err != nil {
		s.abortInitialize(sink)
		return err
	}

	s.mu.Lock()
	if s.state != models.StateInitializing {
		// Cleanup ran while the camera was opening.
		s.mu.Unlock()
		releaseStream(stream)
		detachSink(sink)
		return ErrSessionClosed
	}
	s.sink = sink
	s.stream = stream
	s.state = models.StateReady
	s.mu.Unlock()

	state := s.scheduler.Arm(s.fireInterval)
	if !s.Ready() {
		// Cleanup ran between publishing READY and arming; its Disarm may have found no timer.
		s.scheduler.Disarm()
		return ErrSessionClosed
	}
	log.Printf("Camera session %s ready (scheduler: %s)", s.sessionID, state)
	return nil
}

// abortInitialize keeps whatever was created so Cleanup can release it
func (s *Session) abortInitialize(sink media.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.StateInitializing {
		detachSink(sink)
		return
	}
	s.sink = sink
	s.state = models.StateUninitialized
}

// CaptureImage captures one frame and uploads it
func (s *Session) CaptureImage(ctx context.Context, trigger models.Trigger, timing models.Timing) (*models.UploadOutcome, error) {
	s.mu.RLock()
	ready := s.state == models.StateReady
	stream, sink := s.stream, s.sink
	s.mu.RUnlock()

	if !ready {
		return nil, ErrNotInitialized
	}

	image, err := s.capturer.Capture(ctx, stream.Track(), sink)
	if err != nil {
		return nil, err
	}

	if err := s.uploader.Upload(ctx, s.sessionID, image, trigger, timing); err != nil {
		return &models.UploadOutcome{Success: false, Error: failureReason(err)}, err
	}
	return &models.UploadOutcome{Success: true}, nil
}

func failureReason(err error) string {
	var uploadErr *upload.UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr.Reason
	}
	return err.Error()
}

// fireInterval is the scheduler's capture. Ticks while not READY are dropped.
func (s *Session) fireInterval(ctx context.Context) error {
	if !s.Ready() {
		return nil
	}
	_, err := s.CaptureImage(ctx, models.TriggerInterval, nil)
	return err
}

// OnButtonClick captures if button-click capture is enabled, otherwise returns nil, nil
func (s *Session) OnButtonClick(ctx context.Context, timing models.Timing) (*models.UploadOutcome, error) {
	return s.onHook(ctx, scheduler.HookButtonClick, timing)
}

// OnMessageSend captures if message-send capture is enabled, otherwise returns nil, nil
func (s *Session) OnMessageSend(ctx context.Context, timing models.Timing) (*models.UploadOutcome, error) {
	return s.onHook(ctx, scheduler.HookMessageSend, timing)
}

// OnQuestionStart captures if question-start capture is enabled, otherwise returns nil, nil
func (s *Session) OnQuestionStart(ctx context.Context, timing models.Timing) (*models.UploadOutcome, error) {
	return s.onHook(ctx, scheduler.HookQuestionStart, timing)
}

// OnHook dispatches a named hook
func (s *Session) OnHook(ctx context.Context, hook scheduler.Hook, timing models.Timing) (*models.UploadOutcome, error) {
	return s.onHook(ctx, hook, timing)
}

func (s *Session) onHook(ctx context.Context, hook scheduler.Hook, timing models.Timing) (*models.UploadOutcome, error) {
	if !s.scheduler.Allows(hook) {
		return nil, nil
	}
	return s.CaptureImage(ctx, hook.Trigger(), timing)
}

// SetCurrentResponseID records the question/response turn captures belong to
func (s *Session) SetCurrentResponseID(id string) {
	s.mu.Lock()
	s.currentResponseID = id
	s.mu.Unlock()
}

// SetConversationID updates the assessment id uploads are correlated with
func (s *Session) SetConversationID(id string) {
	s.mu.Lock()
	s.assessmentID = id
	s.mu.Unlock()
}

// Ready reports whether captures are currently permitted
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == models.StateReady
}

// State returns the lifecycle state
func (s *Session) State() models.LifecycleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SchedulerState returns the trigger scheduler state
func (s *Session) SchedulerState() scheduler.State {
	return s.scheduler.State()
}

// Status is a side-effect free snapshot of the session
func (s *Session) Status() models.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SessionStatus{
		Initialized:       s.state == models.StateReady,
		CurrentResponseID: s.currentResponseID,
		AssessmentID:      s.assessmentID,
		SessionID:         s.sessionID,
		AssessmentType:    s.assessmentType,
		CameraSettings:    s.settings,
	}
}

// Cleanup stops the scheduler, releases the stream and detaches the sink.
// It never fails from the caller's point of view and may be called any number of times.
func (s *Session) Cleanup() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic during camera cleanup: %v", r)
		}
	}()

	s.mu.Lock()
	stream, sink := s.stream, s.sink
	s.stream, s.sink = nil, nil
	alreadyClean := s.state == models.StateCleaned
	s.state = models.StateCleaned
	s.mu.Unlock()

	// CLEANED is published before disarming so a concurrent Initialize sees it after Arm.
	s.scheduler.Disarm()

	releaseStream(stream)
	detachSink(sink)

	if !alreadyClean {
		log.Printf("Camera session %s cleaned up", s.sessionID)
	}
}

func releaseStream(stream *media.Stream) {
	if stream == nil {
		return
	}
	if err := stream.Release(); err != nil {
		log.Printf("Failed to release camera stream: %v", err)
	}
}

func detachSink(sink media.Sink) {
	if sink == nil {
		return
	}
	if err := sink.Detach(); err != nil {
		log.Printf("Failed to detach render sink: %v", err)
	}
}
