// Package timer implements a countdown anchored to wall-clock time.
//
// Remaining time is always recomputed as duration minus the wall-clock time
// elapsed since start (excluding paused intervals), never by decrementing a
// counter, so late or throttled ticks cannot make the display drift.
package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"k8s.io/utils/clock"
)

const defaultInterval = time.Second

type Option func(*Timer)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.WithTicker) Option {
	return func(t *Timer) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithInterval changes how often OnTick is delivered.
func WithInterval(interval time.Duration) Option {
	return func(t *Timer) {
		if interval > 0 {
			t.interval = interval
		}
	}
}

// WithWarning registers fn to run once, on the first tick where remaining
// time is at or below threshold.
func WithWarning(threshold time.Duration, fn func(remaining time.Duration)) Option {
	return func(t *Timer) {
		t.warnAt = threshold
		t.onWarning = fn
	}
}

type Timer struct {
	clock    clock.WithTicker
	interval time.Duration
	duration time.Duration

	onTick     func(remaining time.Duration)
	onComplete func()
	onWarning  func(remaining time.Duration)
	warnAt     time.Duration

	mu        sync.Mutex
	remaining time.Duration
	running   bool
	stopped   bool
	completed bool
	warned    bool
	startedAt time.Time
	pausedAt  time.Time
	halt      chan struct{}
	// gen changes on Stop and Reset so a tick already in flight drops its callbacks.
	gen uint64
}

// New builds a timer for remaining time, floored to whole seconds. A negative
// remaining time is clamped to zero. Either callback may be nil.
func New(remaining time.Duration, onTick func(time.Duration), onComplete func(), opts ...Option) *Timer {
	if remaining < 0 {
		remaining = 0
	}
	remaining = remaining.Truncate(time.Second)

	t := &Timer{
		clock:      clock.RealClock{},
		interval:   defaultInterval,
		duration:   remaining,
		remaining:  remaining,
		onTick:     onTick,
		onComplete: onComplete,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins ticking. It is a no-op while running, while paused (use
// Resume), after Stop, after completion, and for a zero duration.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running || t.stopped || t.completed || !t.pausedAt.IsZero() || t.duration <= 0 {
		return
	}
	t.startedAt = t.clock.Now()
	t.launchLocked()
}

// Pause halts tick delivery and remembers when it happened.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.haltLocked()
	t.pausedAt = t.clock.Now()
	t.remaining = t.remainingLocked(t.pausedAt)
}

// Resume shifts the start anchor forward by the paused interval and starts
// ticking again.
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running || t.stopped || t.pausedAt.IsZero() {
		return
	}
	now := t.clock.Now()
	t.startedAt = t.startedAt.Add(now.Sub(t.pausedAt))
	t.pausedAt = time.Time{}
	t.launchLocked()
}

// Stop halts the timer for good without firing OnComplete. Safe to call
// repeatedly.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		t.remaining = t.remainingLocked(t.clock.Now())
		t.haltLocked()
	}
	t.stopped = true
	t.pausedAt = time.Time{}
	t.gen++
}

// Reset halts ticking and restores the original duration. A timer that was
// never stopped can be started again afterwards; after Stop it stays halted.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		t.haltLocked()
	}
	t.remaining = t.duration
	t.pausedAt = time.Time{}
	t.startedAt = time.Time{}
	t.completed = false
	t.warned = false
	t.gen++
}

// Remaining reports the time left. While running it is computed from the
// clock rather than the last tick.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return t.remainingLocked(t.clock.Now())
	}
	return t.remaining
}

func (t *Timer) Duration() time.Duration {
	return t.duration
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.pausedAt.IsZero()
}

// Expired reports whether the countdown reached zero.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

func (t *Timer) launchLocked() {
	halt := make(chan struct{})
	t.halt = halt
	t.running = true
	go t.loop(t.clock.NewTicker(t.interval), halt)
}

func (t *Timer) haltLocked() {
	close(t.halt)
	t.halt = nil
	t.running = false
}

func (t *Timer) remainingLocked(now time.Time) time.Duration {
	elapsed := now.Sub(t.startedAt).Truncate(time.Second)
	left := t.duration - elapsed
	if left < 0 {
		return 0
	}
	return left
}

func (t *Timer) loop(ticker clock.Ticker, halt <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-halt:
			return
		case <-ticker.C():
			if !t.tick(halt) {
				return
			}
		}
	}
}

// tick returns false once the loop should exit.
func (t *Timer) tick(halt <-chan struct{}) bool {
	t.mu.Lock()
	select {
	case <-halt:
		// Paused or stopped between the tick and taking the lock.
		t.mu.Unlock()
		return false
	default:
	}

	remaining := t.remainingLocked(t.clock.Now())
	t.remaining = remaining

	warn := false
	if t.onWarning != nil && !t.warned && remaining <= t.warnAt {
		t.warned = true
		warn = true
	}

	done := remaining <= 0
	if done {
		t.completed = true
		t.haltLocked()
	}
	gen := t.gen
	t.mu.Unlock()

	// Callbacks run unlocked; each one first checks that Stop or Reset has
	// not landed since the tick was computed.
	if t.onTick != nil && t.current(gen) {
		t.onTick(remaining)
	}
	if warn && t.current(gen) {
		t.onWarning(remaining)
	}
	if done {
		if !t.current(gen) {
			return false
		}
		glog.V(2).Infof("timer expired after %s", t.duration)
		if t.onComplete != nil {
			t.onComplete()
		}
		return false
	}
	return true
}

func (t *Timer) current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen == gen
}

// FormatClock renders d as MM:SS, or HH:MM:SS once it reaches an hour.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
