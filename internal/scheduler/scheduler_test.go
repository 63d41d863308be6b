package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"proctor-camera/internal/models"
)

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *manualTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type tickerRecorder struct {
	mu      sync.Mutex
	periods []time.Duration
	tickers []*manualTicker
}

func (r *tickerRecorder) factory(d time.Duration) Ticker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time)}
	r.periods = append(r.periods, d)
	r.tickers = append(r.tickers, t)
	return t
}

func (r *tickerRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickers)
}

func (r *tickerRecorder) last() *manualTicker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickers[len(r.tickers)-1]
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for capture")
	}
}

func eventSettings(button, message, question bool) models.CameraSettings {
	return models.CameraSettings{
		RecordingMode:          models.RecordingModeEventDriven,
		CaptureOnButtonClick:   button,
		CaptureOnMessageSend:   message,
		CaptureOnQuestionStart: question,
	}
}

func TestShouldCapture(t *testing.T) {
	tests := []struct {
		name     string
		settings models.CameraSettings
		hook     Hook
		want     bool
	}{
		{"no mode ignores flags", models.CameraSettings{CaptureOnButtonClick: true}, HookButtonClick, false},
		{"interval mode ignores flags", models.CameraSettings{RecordingMode: models.RecordingModeInterval, CaptureOnMessageSend: true}, HookMessageSend, false},
		{"event button enabled", eventSettings(true, false, false), HookButtonClick, true},
		{"event message disabled", eventSettings(true, false, false), HookMessageSend, false},
		{"event question disabled", eventSettings(true, false, false), HookQuestionStart, false},
		{"event question enabled", eventSettings(false, false, true), HookQuestionStart, true},
		{"unknown hook", eventSettings(true, true, true), Hook("scroll"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldCapture(tt.settings, tt.hook); got != tt.want {
				t.Errorf("ShouldCapture = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduler_NoModeCreatesNoTimer(t *testing.T) {
	rec := &tickerRecorder{}
	s := New(models.CameraSettings{}, WithTicker(rec.factory))

	if state := s.Arm(func(context.Context) error { return nil }); state != StateDisarmed {
		t.Errorf("expected disarmed, got %s", state)
	}
	if rec.count() != 0 {
		t.Errorf("expected no timer, got %d", rec.count())
	}
}

func TestScheduler_IntervalWithoutSecondsCreatesNoTimer(t *testing.T) {
	rec := &tickerRecorder{}
	s := New(models.CameraSettings{RecordingMode: models.RecordingModeInterval}, WithTicker(rec.factory))

	if state := s.Arm(func(context.Context) error { return nil }); state != StateDisarmed {
		t.Errorf("expected disarmed, got %s", state)
	}
	if rec.count() != 0 {
		t.Errorf("expected no timer, got %d", rec.count())
	}
}

func TestScheduler_EventDrivenCreatesNoTimer(t *testing.T) {
	rec := &tickerRecorder{}
	s := New(eventSettings(true, false, false), WithTicker(rec.factory))

	if state := s.Arm(func(context.Context) error { return nil }); state != StateEventArmed {
		t.Errorf("expected event armed, got %s", state)
	}
	if rec.count() != 0 {
		t.Errorf("expected no timer, got %d", rec.count())
	}
	if !s.Allows(HookButtonClick) || s.Allows(HookMessageSend) {
		t.Error("hook gating does not follow settings")
	}
}

func TestScheduler_IntervalFiresOncePerTick(t *testing.T) {
	rec := &tickerRecorder{}
	settings := models.CameraSettings{RecordingMode: models.RecordingModeInterval, IntervalSeconds: models.IntPtr(5)}
	s := New(settings, WithTicker(rec.factory))

	fired := make(chan struct{}, 10)
	if state := s.Arm(func(context.Context) error { fired <- struct{}{}; return nil }); state != StateIntervalArmed {
		t.Fatalf("expected interval armed, got %s", state)
	}
	defer s.Disarm()

	if rec.periods[0] != 5000*time.Millisecond {
		t.Errorf("expected 5000ms period, got %v", rec.periods[0])
	}

	ticker := rec.last()
	for i := 0; i < 3; i++ {
		ticker.ch <- time.Now()
		waitFor(t, fired)
	}
	select {
	case <-fired:
		t.Error("unexpected extra capture")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_SkipsTickWhileCaptureInFlight(t *testing.T) {
	rec := &tickerRecorder{}
	settings := models.CameraSettings{RecordingMode: models.RecordingModeInterval, IntervalSeconds: models.IntPtr(1)}
	s := New(settings, WithTicker(rec.factory))

	started := make(chan struct{}, 10)
	release := make(chan struct{})
	s.Arm(func(context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	})
	defer s.Disarm()

	ticker := rec.last()
	ticker.ch <- time.Now()
	waitFor(t, started)

	// The first capture is still blocked, so these ticks must be dropped.
	ticker.ch <- time.Now()
	ticker.ch <- time.Now()
	select {
	case <-started:
		t.Fatal("tick started a capture while the previous one was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for s.inFlight.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	ticker.ch <- time.Now()
	waitFor(t, started)
}

func TestScheduler_RearmCancelsPreviousTimer(t *testing.T) {
	rec := &tickerRecorder{}
	settings := models.CameraSettings{RecordingMode: models.RecordingModeInterval, IntervalSeconds: models.IntPtr(2)}
	s := New(settings, WithTicker(rec.factory))

	noop := func(context.Context) error { return nil }
	s.Arm(noop)
	first := rec.last()
	s.Arm(noop)
	defer s.Disarm()

	if rec.count() != 2 {
		t.Fatalf("expected two timers created, got %d", rec.count())
	}
	if !first.isStopped() {
		t.Error("expected first timer to be stopped on re-arm")
	}
	if rec.last().isStopped() {
		t.Error("expected second timer to be running")
	}
}

func TestScheduler_DisarmIsIdempotent(t *testing.T) {
	rec := &tickerRecorder{}
	settings := models.CameraSettings{RecordingMode: models.RecordingModeInterval, IntervalSeconds: models.IntPtr(2)}
	s := New(settings, WithTicker(rec.factory))

	s.Arm(func(context.Context) error { return nil })
	s.Disarm()
	s.Disarm()

	if s.State() != StateDisarmed {
		t.Errorf("expected disarmed, got %s", s.State())
	}
	if !rec.last().isStopped() {
		t.Error("expected timer stopped")
	}
}

func TestParseHook(t *testing.T) {
	tests := []struct {
		raw     string
		want    Hook
		wantErr bool
	}{
		{"button-click", HookButtonClick, false},
		{"message_send", HookMessageSend, false},
		{"Question-Start", HookQuestionStart, false},
		{"page-scroll", "", true},
	}
	for _, tt := range tests {
		got, err := ParseHook(tt.raw)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseHook(%q) = %q, %v", tt.raw, got, err)
		}
	}
}
