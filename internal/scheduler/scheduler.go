// Package scheduler decides when captures happen: a recurring timer in interval
// mode, or gated event hooks in event-driven mode.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"proctor-camera/internal/models"
)

// State of the trigger scheduler
type State string

const (
	StateDisarmed      State = "disarmed"
	StateIntervalArmed State = "interval_armed"
	StateEventArmed    State = "event_armed"
)

// Hook is a host page event that may trigger a capture
type Hook string

const (
	HookButtonClick   Hook = "button_click"
	HookMessageSend   Hook = "message_send"
	HookQuestionStart Hook = "question_start"
)

// ParseHook accepts both "button_click" and "button-click" spellings
func ParseHook(raw string) (Hook, error) {
	switch Hook(strings.ReplaceAll(strings.ToLower(raw), "-", "_")) {
	case HookButtonClick:
		return HookButtonClick, nil
	case HookMessageSend:
		return HookMessageSend, nil
	case HookQuestionStart:
		return HookQuestionStart, nil
	}
	return "", fmt.Errorf("unknown hook %q", raw)
}

// Trigger maps a hook to the trigger recorded with its upload
func (h Hook) Trigger() models.Trigger {
	switch h {
	case HookButtonClick:
		return models.TriggerButtonClick
	case HookMessageSend:
		return models.TriggerMessageSend
	case HookQuestionStart:
		return models.TriggerQuestionStart
	}
	return models.TriggerManual
}

// ShouldCapture reports whether hook may capture under settings
func ShouldCapture(settings models.CameraSettings, hook Hook) bool {
	if settings.RecordingMode != models.RecordingModeEventDriven {
		return false
	}
	switch hook {
	case HookButtonClick:
		return settings.CaptureOnButtonClick
	case HookMessageSend:
		return settings.CaptureOnMessageSend
	case HookQuestionStart:
		return settings.CaptureOnQuestionStart
	}
	return false
}

// Ticker is the recurring timer used in interval mode
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// FireFunc performs one interval capture. Errors are logged and the timer keeps running.
type FireFunc func(ctx context.Context) error

// Scheduler arms captures according to camera settings
type Scheduler struct {
	settings  models.CameraSettings
	newTicker func(time.Duration) Ticker

	mu    sync.Mutex
	state State
	stop  chan struct{}
	done  chan struct{}

	inFlight atomic.Bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithTicker replaces the timer implementation
func WithTicker(fn func(time.Duration) Ticker) Option {
	return func(s *Scheduler) {
		s.newTicker = fn
	}
}

func New(settings models.CameraSettings, opts ...Option) *Scheduler {
	s := &Scheduler{
		settings:  settings,
		newTicker: NewTimeTicker,
		state:     StateDisarmed,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current scheduler state
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Allows reports whether hook may capture under this scheduler's settings
func (s *Scheduler) Allows(hook Hook) bool {
	return ShouldCapture(s.settings, hook)
}

// Arm transitions out of DISARMED according to the settings. Any running timer is
// cancelled first so at most one timer exists.
func (s *Scheduler) Arm(fire FireFunc) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()

	switch s.settings.RecordingMode {
	case models.RecordingModeInterval:
		period, ok := s.settings.Interval()
		if !ok {
			log.Printf("Interval recording requested without interval_seconds; capture disabled")
			s.state = StateDisarmed
			return s.state
		}
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.run(s.newTicker(period), fire, s.stop, s.done)
		s.state = StateIntervalArmed
		log.Printf("Interval capture armed every %v", period)
	case models.RecordingModeEventDriven:
		s.state = StateEventArmed
	default:
		s.state = StateDisarmed
	}
	return s.state
}

// Disarm cancels the timer. It is safe to call repeatedly.
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.state = StateDisarmed
}

func (s *Scheduler) stopTimerLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
	s.done = nil
}

func (s *Scheduler) run(ticker Ticker, fire FireFunc, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			s.tick(fire)
		}
	}
}

// tick starts one capture unless the previous timer capture is still in flight
func (s *Scheduler) tick(fire FireFunc) {
	if !s.inFlight.CompareAndSwap(false, true) {
		log.Printf("Skipping interval capture: previous capture still in flight")
		return
	}
	go func() {
		defer s.inFlight.Store(false)
		if err := fire(context.Background()); err != nil {
			log.Printf("Interval capture failed: %v", err)
		}
	}()
}
