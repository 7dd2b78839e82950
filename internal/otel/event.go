// Package otel provides structured observability for bookmind.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and a background drain goroutine.
// An optional RingBuffer keeps the most recent events in memory for the
// debug overlay.
package otel

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Catalog listing (suggestion source)
	KindCatalogFetch    EventKind = "catalog.fetch"
	KindCatalogComplete EventKind = "catalog.complete"
	KindCatalogError    EventKind = "catalog.error"

	// Suggestion engine
	KindSuggestDebounce EventKind = "suggest.debounce"
	KindSuggestStale    EventKind = "suggest.stale"
	KindSuggestSelect   EventKind = "suggest.select"

	// Recommendation controller
	KindRecommendStart    EventKind = "recommend.start"
	KindRecommendComplete EventKind = "recommend.complete"
	KindRecommendError    EventKind = "recommend.error"
	KindRecommendStale    EventKind = "recommend.stale"

	// Backend client
	KindBreakerState EventKind = "breaker.state"
	KindHealth       EventKind = "backend.health"

	// UI
	KindKeyPress EventKind = "ui.key"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Per-message tracing, only when BOOKMIND_TRACE is set
	KindMsgReceived EventKind = "trace.msg_received"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "search", "recommend", "backend", "main"
	SessionID string         `json:"session_id,omitempty"`
	QueryID   string         `json:"qid,omitempty"` // generation correlation ID, see QID
	Gen       uint64         `json:"gen,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Query     string         `json:"query,omitempty"`
	Title     string         `json:"title,omitempty"`
	Status    int            `json:"status,omitempty"` // HTTP status, when one exists
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON converts Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}

// QID builds the correlation ID for one generation of a component,
// e.g. QID("s", 7) == "s7". Suggestion passes use "s", recommendations "r".
func QID(prefix string, gen uint64) string {
	return prefix + strconv.FormatUint(gen, 10)
}
