// Package debounce provides cancellable trailing-edge timers for the
// Bubble Tea event loop.
//
// A Timer hands out a Handle per Schedule call. Scheduling again, or calling
// Cancel, invalidates the previous handle. The tick command still runs to
// completion (tea.Tick cannot be stopped), but its FiredMsg is rejected by
// Fire, so only the most recently scheduled handle ever fires.
package debounce

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Handle identifies one scheduled firing. The zero Handle is never issued.
type Handle uint64

// FiredMsg is delivered to Update when a scheduled delay elapses.
type FiredMsg struct {
	Timer  string // name of the Timer that scheduled it
	Handle Handle
}

// Timer is a value type meant to live inside a Bubble Tea model.
// Not goroutine-safe: only touch it from Update.
type Timer struct {
	name   string
	delay  time.Duration
	seq    uint64
	active Handle
}

// New creates a Timer. The name tags FiredMsg so several timers can share
// one model without stealing each other's messages.
func New(name string, delay time.Duration) Timer {
	return Timer{name: name, delay: delay}
}

// Schedule cancels any pending handle and schedules a new firing after the
// timer's delay.
func (t *Timer) Schedule() (Handle, tea.Cmd) {
	t.seq++
	h := Handle(t.seq)
	t.active = h

	name := t.name
	return h, tea.Tick(t.delay, func(time.Time) tea.Msg {
		return FiredMsg{Timer: name, Handle: h}
	})
}

// Cancel invalidates the pending handle, if any. Idempotent.
func (t *Timer) Cancel() {
	t.active = 0
}

// Fire reports whether msg belongs to this timer and is the current handle.
// A successful Fire consumes the handle.
func (t *Timer) Fire(msg FiredMsg) bool {
	if msg.Timer != t.name || msg.Handle == 0 || msg.Handle != t.active {
		return false
	}
	t.active = 0
	return true
}

// Pending reports whether a scheduled firing is outstanding.
func (t Timer) Pending() bool {
	return t.active != 0
}

// Active returns the current handle (zero if none).
func (t Timer) Active() Handle {
	return t.active
}

// Name returns the timer's tag.
func (t Timer) Name() string {
	return t.name
}

// Delay returns the configured delay.
func (t Timer) Delay() time.Duration {
	return t.delay
}
