// Package search implements the book search box: a text input with a
// debounced, race-guarded suggestion dropdown.
//
// Every keystroke bumps the suggestion generation. A catalog fetch is tagged
// with the generation it was issued under and its result is applied only if
// that generation is still current, so a slow response for an old query can
// never overwrite newer suggestions.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/im-vishesh15th/bookmind/internal/catalog"
	"github.com/im-vishesh15th/bookmind/internal/debounce"
	"github.com/im-vishesh15th/bookmind/internal/logging"
	"github.com/im-vishesh15th/bookmind/internal/metrics"
	"github.com/im-vishesh15th/bookmind/internal/otel"
)

const (
	debounceTimer = "search.debounce"
	blurTimer     = "search.blur"
)

// Source lists the full catalog of titles.
type Source interface {
	Books(ctx context.Context) ([]string, error)
}

// Config tunes the search box.
type Config struct {
	MaxSuggestions int
	Debounce       time.Duration
	// MinQueryLength is the shortest query (in runes) that triggers a fetch.
	MinQueryLength int
	// BlurGrace keeps the dropdown open after blur so a click can land.
	BlurGrace time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxSuggestions: catalog.DefaultLimit,
		Debounce:       300 * time.Millisecond,
		MinQueryLength: 2,
		BlurGrace:      200 * time.Millisecond,
	}
}

// Model is the search box state.
type Model struct {
	src    Source
	cfg    Config
	events *otel.Logger

	input   textinput.Model
	spinner spinner.Model

	suggestions []string
	cursor      int // highlighted suggestion, -1 for none
	open        bool
	loading     bool

	gen    uint64
	cancel context.CancelFunc

	debounce debounce.Timer
	blur     debounce.Timer

	width int
}

// New creates a search box reading titles from src. events may be nil.
func New(src Source, cfg Config, events *otel.Logger) Model {
	def := DefaultConfig()
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = def.MaxSuggestions
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	// One-rune queries never reach the network.
	if cfg.MinQueryLength < def.MinQueryLength {
		cfg.MinQueryLength = def.MinQueryLength
	}
	if cfg.BlurGrace < 0 {
		cfg.BlurGrace = 0
	}

	ti := textinput.New()
	ti.Placeholder = "Search for a book you love..."
	ti.Prompt = "🔍 "
	ti.CharLimit = 256
	ti.Width = 60

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle))

	return Model{
		src:      src,
		cfg:      cfg,
		events:   events,
		input:    ti,
		spinner:  sp,
		cursor:   -1,
		debounce: debounce.New(debounceTimer, cfg.Debounce),
		blur:     debounce.New(blurTimer, cfg.BlurGrace),
	}
}

// Update handles keys (when focused), timer firings and catalog results.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.input.Focused() {
			return m, nil
		}
		return m.handleKey(msg)

	case debounce.FiredMsg:
		switch msg.Timer {
		case debounceTimer:
			if !m.debounce.Fire(msg) {
				return m, nil
			}
			return m.startFetch()
		case blurTimer:
			if m.blur.Fire(msg) {
				m.open = false
			}
		}
		return m, nil

	case CatalogLoaded:
		return m.handleCatalog(msg), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if !m.loading {
			return m, nil
		}
		return m, cmd
	}

	// Cursor blink and anything else the text input understands.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "up", "ctrl+p":
		if m.dropdownVisible() && m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "ctrl+n":
		if m.dropdownVisible() && m.cursor < len(m.suggestions)-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		if m.dropdownVisible() && m.cursor >= 0 && m.cursor < len(m.suggestions) {
			return m.Select(m.suggestions[m.cursor])
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	m, dcmd := m.onInputChange()
	return m, tea.Batch(cmd, dcmd)
}

// SetQuery replaces the query text as if the user had typed it.
func (m Model) SetQuery(text string) (Model, tea.Cmd) {
	m.input.SetValue(text)
	m.input.CursorEnd()
	return m.onInputChange()
}

// onInputChange runs after every edit. The text itself is never debounced,
// only the fetch.
func (m Model) onInputChange() (Model, tea.Cmd) {
	m.open = true
	m.debounce.Cancel()
	m.supersede()

	query := m.input.Value()
	if utf8.RuneCountInString(query) < m.cfg.MinQueryLength {
		m.suggestions = nil
		m.cursor = -1
		return m, nil
	}

	h, cmd := m.debounce.Schedule()
	m.events.Emit(otel.Event{
		Level:   otel.LevelDebug,
		Kind:    otel.KindSuggestDebounce,
		Comp:    "search",
		QueryID: otel.QID("s", m.gen),
		Gen:     m.gen,
		Query:   query,
		Extra:   map[string]any{"handle": uint64(h)},
	})
	return m, cmd
}

// supersede starts a new generation: any fetch in flight becomes stale and
// its context is cancelled.
func (m *Model) supersede() {
	m.gen++
	m.loading = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m Model) startFetch() (Model, tea.Cmd) {
	if m.src == nil {
		return m, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.loading = true

	gen := m.gen
	query := m.input.Value()
	src := m.src

	metrics.SuggestionPasses.Inc()
	m.events.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindCatalogFetch,
		Comp:    "search",
		QueryID: otel.QID("s", gen),
		Gen:     gen,
		Query:   query,
	})

	fetch := func() tea.Msg {
		start := time.Now()
		titles, err := src.Books(ctx)
		return CatalogLoaded{Gen: gen, Query: query, Titles: titles, Err: err, Dur: time.Since(start)}
	}
	return m, tea.Batch(fetch, m.spinner.Tick)
}

func (m Model) handleCatalog(msg CatalogLoaded) Model {
	qid := otel.QID("s", msg.Gen)
	if msg.Gen != m.gen {
		metrics.StaleResponses.WithLabelValues("suggest").Inc()
		m.events.Emit(otel.Event{
			Level:   otel.LevelDebug,
			Kind:    otel.KindSuggestStale,
			Comp:    "search",
			QueryID: qid,
			Gen:     msg.Gen,
			Query:   msg.Query,
			Extra:   map[string]any{"current_gen": m.gen},
		})
		return m
	}

	m.loading = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if msg.Err != nil {
		logging.Warn("catalog fetch failed", "query", msg.Query, "err", msg.Err)
		m.events.Emit(otel.Event{
			Level:   otel.LevelError,
			Kind:    otel.KindCatalogError,
			Comp:    "search",
			QueryID: qid,
			Gen:     msg.Gen,
			Query:   msg.Query,
			Dur:     msg.Dur,
			Err:     msg.Err.Error(),
		})
		m.suggestions = nil
		m.cursor = -1
		return m
	}

	m.suggestions = catalog.Filter(msg.Titles, msg.Query, m.cfg.MaxSuggestions)
	m.cursor = -1
	if len(m.suggestions) > 0 {
		m.cursor = 0
	}
	m.events.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindCatalogComplete,
		Comp:    "search",
		QueryID: qid,
		Gen:     msg.Gen,
		Query:   msg.Query,
		Dur:     msg.Dur,
		Count:   len(m.suggestions),
		Extra:   map[string]any{"catalog_size": len(msg.Titles)},
	})
	return m
}

// Select fills the input with title, closes the dropdown and emits
// SelectedMsg. It works during the blur grace window.
func (m Model) Select(title string) (Model, tea.Cmd) {
	m.input.SetValue(title)
	m.input.CursorEnd()
	m.open = false
	m.debounce.Cancel()
	m.blur.Cancel()
	m.supersede()

	m.events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindSuggestSelect,
		Comp:  "search",
		Gen:   m.gen,
		Title: title,
	})
	return m, func() tea.Msg { return SelectedMsg{Title: title} }
}

// Clear empties the query and suggestions. Calling it twice is harmless.
func (m Model) Clear() Model {
	m.input.SetValue("")
	m.suggestions = nil
	m.cursor = -1
	m.open = false
	m.debounce.Cancel()
	m.supersede()
	return m
}

// Focus focuses the input, opens the dropdown and cancels a pending
// blur-close.
func (m Model) Focus() (Model, tea.Cmd) {
	m.open = true
	m.blur.Cancel()
	return m, m.input.Focus()
}

// Blur unfocuses the input and closes the dropdown after the grace delay.
func (m Model) Blur() (Model, tea.Cmd) {
	m.input.Blur()
	if m.cfg.BlurGrace == 0 {
		m.open = false
		return m, nil
	}
	_, cmd := m.blur.Schedule()
	return m, cmd
}

// Click handles a left click at row y, relative to the top of View.
// Clicking the input focuses it; clicking a suggestion selects it.
func (m Model) Click(y int) (Model, tea.Cmd) {
	if idx, ok := m.RowAt(y); ok {
		return m.Select(m.suggestions[idx])
	}
	if y >= 0 && y < m.inputHeight() {
		return m.Focus()
	}
	return m, nil
}

// RowAt maps a View-relative row to a suggestion index.
func (m Model) RowAt(y int) (int, bool) {
	if !m.dropdownVisible() {
		return 0, false
	}
	idx := y - m.inputHeight()
	if idx < 0 || idx >= len(m.suggestions) {
		return 0, false
	}
	return idx, true
}

// Height is the number of lines View renders.
func (m Model) Height() int {
	return lipgloss.Height(m.View())
}

// SetWidth sets the render width.
func (m Model) SetWidth(w int) Model {
	m.width = w
	m.input.Width = max(10, m.boxWidth()-8)
	return m
}

func (m Model) Query() string         { return m.input.Value() }
func (m Model) Suggestions() []string { return m.suggestions }
func (m Model) Cursor() int           { return m.cursor }
func (m Model) Open() bool            { return m.open }
func (m Model) Focused() bool         { return m.input.Focused() }
func (m Model) Loading() bool         { return m.loading }
func (m Model) Generation() uint64    { return m.gen }

func (m Model) dropdownVisible() bool {
	return m.open && len(m.suggestions) > 0
}

func (m Model) boxWidth() int {
	w := m.width
	if w <= 0 || w > 72 {
		w = 72
	}
	return w
}

func (m Model) inputHeight() int {
	return lipgloss.Height(m.renderInput())
}

func (m Model) renderInput() string {
	status := ""
	switch {
	case m.loading:
		status = m.spinner.View()
	case m.input.Value() != "":
		status = ClearHint.Render("esc ✕")
	}

	style := InputBox
	if m.input.Focused() {
		style = InputBoxFocused
	}
	line := m.input.View()
	if status != "" {
		line += "  " + status
	}
	return style.Width(m.boxWidth() - 2).Render(line)
}

// View renders the input and, when open, the dropdown.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderInput())

	if !m.dropdownVisible() {
		return b.String()
	}

	for i, title := range m.suggestions {
		b.WriteString("\n")
		if i == m.cursor {
			b.WriteString(SuggestionSelected.Render("📖 "+title) + SuggestionHint.Render("  enter to get recommendations"))
		} else {
			b.WriteString(SuggestionRow.Render("📖 " + title))
		}
	}

	n := len(m.suggestions)
	plural := "s"
	if n == 1 {
		plural = ""
	}
	b.WriteString("\n")
	b.WriteString(DropdownFooter.Render(fmt.Sprintf("%d result%s found", n, plural)))
	return b.String()
}
