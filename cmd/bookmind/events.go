package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// eventRecord mirrors otel.Event for JSON decoding. Decoding into a local
// type keeps old log files readable after the event schema changes.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	QueryID   string         `json:"qid"`
	DurMs     float64        `json:"dur_ms"`
	Count     int            `json:"count"`
	Query     string         `json:"query"`
	Title     string         `json:"title"`
	Status    int            `json:"status"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "debug":
		return 0
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

// eventFilter selects events by kind prefix, minimum level, component,
// query ID and session.
type eventFilter struct {
	kind    string
	level   string
	comp    string
	qid     string
	session string
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.qid != "" && ev.QueryID != f.qid {
		return false
	}
	if f.session != "" && ev.SessionID != f.session {
		return false
	}
	return true
}

func runEvents() {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	common := addCommonFlags(fs)
	file := fs.String("file", "", "Event log path (default: logging.events_file under data_dir)")
	tail := fs.Int("tail", 50, "Number of recent lines to show")
	follow := fs.Bool("f", false, "Follow mode (like tail -f)")
	var filter eventFilter
	fs.StringVar(&filter.kind, "kind", "", "Filter by event kind prefix (e.g. 'recommend')")
	fs.StringVar(&filter.level, "level", "", "Minimum level: debug, info, warn, error")
	fs.StringVar(&filter.comp, "comp", "", "Filter by component name")
	fs.StringVar(&filter.qid, "qid", "", "Filter by query ID (e.g. r3)")
	fs.StringVar(&filter.session, "session", "", "Filter by session ID")
	rawJSON := fs.Bool("json", false, "Output raw JSON lines")
	fs.Parse(os.Args[1:])

	logPath := *file
	if logPath == "" {
		logPath = common.loadConfig().EventsPath()
	}

	f, err := os.Open(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		fmt.Fprintf(os.Stderr, "  Event log not found at %s\n", logPath)
		fmt.Fprintf(os.Stderr, "  Run the bookmind TUI first to generate events.\n")
		os.Exit(1)
	}
	defer f.Close()

	format := func(ev eventRecord, raw []byte) string {
		if *rawJSON {
			return string(raw)
		}
		return formatEvent(ev)
	}

	lines := readTailLines(f, *tail, filter.match)
	for _, l := range lines {
		fmt.Println(format(l.ev, l.raw))
	}
	if !*follow {
		return
	}

	// The tail scan consumed the file; poll for appended lines.
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return
		}
		line = trimLine(line)
		if len(line) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if filter.match(ev) {
			fmt.Println(format(ev, line))
		}
	}
}

// formatEvent renders one event as a single human-readable line.
func formatEvent(ev eventRecord) string {
	ts := ev.Time.Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-9s] %-20s", ts, lvl, ev.Comp, ev.Kind)}

	if ev.QueryID != "" {
		parts = append(parts, ev.QueryID)
	}
	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Query != "" {
		parts = append(parts, fmt.Sprintf("q=%q", ev.Query))
	}
	if ev.Title != "" {
		parts = append(parts, fmt.Sprintf("title=%q", ev.Title))
	}
	if ev.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", ev.Status))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}

	return strings.Join(parts, " ")
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines reads r and returns the last n lines matching the filter.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	if n <= 0 {
		return nil
	}
	scanner := bufio.NewScanner(r)
	// Allow large lines (some events may have big Extra maps)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	ring := make([]parsedLine, 0, n)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) {
			continue
		}
		// Scanner reuses its buffer.
		rawCopy := make([]byte, len(raw))
		copy(rawCopy, raw)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}

	return ring
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
