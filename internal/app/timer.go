package app

import (
	"log/slog"
	"sync"
	"time"
)

// Vibration patterns: a short buzz when the timer starts, buzz-pause-buzz
// when it runs out.
var (
	StartPattern  = []time.Duration{200 * time.Millisecond}
	ExpiryPattern = []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}
)

// Notifier signals the user. Delivery is best effort.
type Notifier interface {
	Vibrate(pattern []time.Duration) error
}

// RestTimer counts down the rest between sets.
type RestTimer struct {
	notifier Notifier
	log      *slog.Logger

	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
	gen      uint64
}

// NewRestTimer creates a stopped timer. notifier may be nil.
func NewRestTimer(notifier Notifier, log *slog.Logger) *RestTimer {
	return &RestTimer{notifier: notifier, log: log}
}

// Start (re)starts the countdown for d.
func (t *RestTimer) Start(d time.Duration) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.deadline = time.Now().Add(d)
	t.timer = time.AfterFunc(d, func() { t.expire(gen) })
	t.mu.Unlock()

	t.notify(StartPattern)
}

// Stop cancels the countdown without signalling.
func (t *RestTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

// Remaining returns the time left, or zero when stopped.
func (t *RestTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer == nil {
		return 0
	}
	return max(time.Until(t.deadline), 0)
}

// Running reports whether a countdown is in progress.
func (t *RestTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

func (t *RestTimer) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.mu.Unlock()

	t.notify(ExpiryPattern)
}

func (t *RestTimer) notify(pattern []time.Duration) {
	if t.notifier == nil {
		return
	}
	if err := t.notifier.Vibrate(pattern); err != nil {
		t.log.Debug("vibration unavailable", "error", err)
	}
}

// LogNotifier reports vibrations to the log, for hosts without a vibration
// device.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Vibrate(pattern []time.Duration) error {
	n.Log.Info("rest timer", "vibrate", pattern)
	return nil
}
