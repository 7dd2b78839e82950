package otel

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TraceEnv turns on per-message trace events.
const TraceEnv = "BOOKMIND_TRACE"

// traceEnabled is read from the UI goroutine and written by SetTraceEnabled.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(parseTrace(os.Getenv(TraceEnv)))
}

// parseTrace accepts strconv.ParseBool spellings; any other non-empty value
// enables tracing.
func parseTrace(v string) bool {
	if v == "" {
		return false
	}
	on, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return on
}

// TraceEnabled reports whether trace events are on.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// SetTraceEnabled overrides BOOKMIND_TRACE and returns the previous value.
func SetTraceEnabled(v bool) bool {
	return traceEnabled.Swap(v)
}
