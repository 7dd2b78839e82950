package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/im-vishesh15th/bookmind/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders the debug panel showing request stats and recent events.
// Pure function with no side effects. Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Request Stats"))
	lines = append(lines, fmt.Sprintf("  Catalog:    %d fetched, %d complete, %d errors",
		stats[otel.KindCatalogFetch], stats[otel.KindCatalogComplete], stats[otel.KindCatalogError]))
	lines = append(lines, fmt.Sprintf("  Suggest:    %d debounced, %d stale, %d selected",
		stats[otel.KindSuggestDebounce], stats[otel.KindSuggestStale], stats[otel.KindSuggestSelect]))
	lines = append(lines, fmt.Sprintf("  Recommend:  %d started, %d complete, %d errors, %d stale",
		stats[otel.KindRecommendStart], stats[otel.KindRecommendComplete],
		stats[otel.KindRecommendError], stats[otel.KindRecommendStale]))
	lines = append(lines, fmt.Sprintf("  Breaker:    %d transitions", stats[otel.KindBreakerState]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-20s", formatAge(time.Since(e.Time)), string(e.Kind))
		switch {
		case e.Title != "":
			line += "  " + truncateRunes(e.Title, 30)
		case e.Query != "":
			line += "  " + truncateRunes(fmt.Sprintf("%q", e.Query), 30)
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 40)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		if e.QueryID != "" {
			qidDisplay := e.QueryID
			if len(qidDisplay) > 8 {
				qidDisplay = qidDisplay[:8]
			}
			line += fmt.Sprintf("  qid:%s", qidDisplay)
		}
		lines = append(lines, line)
	}

	// Truncate to fit terminal height (subtract chrome added by DebugPanel border/padding)
	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 84
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	content := strings.Join(lines, "\n")
	return DebugPanel.Width(panelWidth).Render(content)
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("ctrl+g") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
