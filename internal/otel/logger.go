package otel

// Goroutine safety:
// drain is the only reader of l.ch and the only writer to l.w.
// l.mu guards the ring pointer only; the ring has its own lock.

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// queueSize is the capacity of the async write channel.
const queueSize = 4096

type entry struct {
	line []byte
	ev   Event
}

// Logger writes events as JSONL through an async drain goroutine.
// Goroutine-safe. A nil *Logger is valid and discards everything, so models
// can hold one without nil checks.
type Logger struct {
	mu        sync.Mutex
	ring      *RingBuffer
	sessionID string
	ch        chan entry
	w         io.Writer
	closer    io.Closer
	dropped   atomic.Uint64
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewLogger creates a Logger writing JSONL to w. Call Close to flush.
func NewLogger(w io.Writer) *Logger {
	var sid [8]byte
	_, _ = rand.Read(sid[:])

	l := &Logger{
		sessionID: hex.EncodeToString(sid[:]),
		ch:        make(chan entry, queueSize),
		w:         w,
		done:      make(chan struct{}),
	}
	go l.drain()
	return l
}

// NewNullLogger creates a Logger that discards output. Still call Close.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// OpenFile appends to the JSONL file at path, creating parent directories.
// Close also closes the file.
func OpenFile(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("otel: create event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("otel: open event log: %w", err)
	}
	l := NewLogger(f)
	l.closer = f
	return l, nil
}

func (l *Logger) drain() {
	defer close(l.done)
	for e := range l.ch {
		if _, err := l.w.Write(e.line); err != nil {
			l.dropped.Add(1)
		}

		l.mu.Lock()
		ring := l.ring
		l.mu.Unlock()

		if ring != nil {
			ring.Push(e.ev)
		}
	}
}

// Emit queues an event. Sets Time (if zero) and SessionID. Never blocks: when
// the queue is full or the logger is closed the event is dropped and counted.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	// Close can race between the closed check and the send.
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID

	line, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	line = append(line, '\n')

	select {
	case l.ch <- entry{line: line, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// Info emits an info-level event.
func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Warn emits a warn-level event.
func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error-level event. A nil err is logged as an empty string.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	var s string
	if err != nil {
		s = err.Error()
	}
	l.Emit(Event{Level: LevelError, Kind: kind, Comp: comp, Err: s})
}

// SetRingBuffer attaches a ring buffer for live inspection.
func (l *Logger) SetRingBuffer(r *RingBuffer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring = r
}

// SessionID returns the random ID stamped on every event of this run.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// Dropped returns the number of events dropped since creation.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close flushes pending events and stops the drain goroutine. Idempotent.
// Emit calls racing with Close are dropped, not panicked.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		<-l.done

		if l.closer != nil {
			l.closer.Close()
		}
		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "bookmind: %d events dropped during session %s\n", d, l.sessionID)
		}
	})
}
