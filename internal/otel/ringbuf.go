package otel

import (
	"maps"
	"sync"
)

// DefaultRingSize is the ring capacity used when NewRingBuffer gets size <= 0.
const DefaultRingSize = 512

// RingBuffer is a fixed-size circular buffer of Events. Goroutine-safe.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []Event
	size  int
	next  int // next write position
	count int // valid entries, 0..size
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{buf: make([]Event, size), size: size}
}

// Push adds an event, overwriting the oldest when full.
// Extra is copied so later mutation by the caller does not leak in.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		e.Extra = maps.Clone(e.Extra)
	}
	r.mu.Lock()
	r.buf[r.next] = e
	r.next = (r.next + 1) % r.size
	if r.count < r.size {
		r.count++
	}
	r.mu.Unlock()
}

// Snapshot returns all buffered events, oldest first.
func (r *RingBuffer) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastLocked(r.count)
}

// Last returns the n most recent events, oldest first. n <= 0 returns nil.
func (r *RingBuffer) Last(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastLocked(n)
}

func (r *RingBuffer) lastLocked(n int) []Event {
	if n <= 0 || r.count == 0 {
		return nil
	}
	n = min(n, r.count)

	out := make([]Event, n)
	start := (r.next - n + r.size) % r.size
	for i := range out {
		out[i] = r.buf[(start+i)%r.size]
	}
	return out
}

// Len returns the number of buffered events.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return r.size
}

// Stats counts buffered events by kind.
func (r *RingBuffer) Stats() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[EventKind]int)
	start := (r.next - r.count + r.size) % r.size
	for i := 0; i < r.count; i++ {
		counts[r.buf[(start+i)%r.size].Kind]++
	}
	return counts
}
