// Package recommend drives the recommendation lookup for a selected book
// and renders its outcome.
//
// The lookup is a four-phase state machine (idle, loading, success, error).
// Every selection starts a new epoch; results from earlier epochs are
// dropped, so only the most recently selected book can reach the screen.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/im-vishesh15th/bookmind/internal/backend"
	"github.com/im-vishesh15th/bookmind/internal/logging"
	"github.com/im-vishesh15th/bookmind/internal/metrics"
	"github.com/im-vishesh15th/bookmind/internal/otel"
)

// Recommender looks up recommendations for a title.
type Recommender interface {
	Recommend(ctx context.Context, title string) (*backend.Recommendation, error)
}

// Phase is the presentation state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ResultMsg carries the outcome of one lookup, tagged with its epoch.
type ResultMsg struct {
	Epoch uint64
	Title string
	Rec   *backend.Recommendation
	Err   error
	Dur   time.Duration
}

// Model holds the selected book and the lookup outcome. results is nil
// while a lookup is pending and non-nil (possibly empty) once it succeeded.
type Model struct {
	rec    Recommender
	events *otel.Logger

	selected string
	searched *backend.BookInfo
	results  []backend.BookInfo
	errMsg   string

	epoch  uint64
	cancel context.CancelFunc

	spinner spinner.Model
	width   int
}

// New creates a Model backed by rec. events may be nil.
func New(rec Recommender, events *otel.Logger) Model {
	return Model{
		rec:     rec,
		events:  events,
		spinner: spinner.New(spinner.WithSpinner(spinner.Points), spinner.WithStyle(LoadingStyle)),
	}
}

// SelectBook starts a lookup for title. Any lookup still in flight is
// cancelled and its result will be ignored. Blank titles are ignored.
func (m Model) SelectBook(title string) (Model, tea.Cmd) {
	if strings.TrimSpace(title) == "" {
		return m, nil
	}

	if m.cancel != nil {
		m.cancel()
	}
	m.epoch++
	m.selected = title
	m.searched = nil
	m.results = nil
	m.errMsg = ""

	epoch := m.epoch
	m.events.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindRecommendStart,
		Comp:    "recommend",
		QueryID: otel.QID("r", epoch),
		Gen:     epoch,
		Title:   title,
	})

	if m.rec == nil {
		m.cancel = nil
		m.errMsg = backend.FallbackMessage
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	rec := m.rec

	fetch := func() tea.Msg {
		start := time.Now()
		res, err := rec.Recommend(ctx, title)
		return ResultMsg{Epoch: epoch, Title: title, Rec: res, Err: err, Dur: time.Since(start)}
	}
	return m, tea.Batch(fetch, m.spinner.Tick)
}

// Update applies lookup results and animates the loading indicator.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ResultMsg:
		return m.handleResult(msg), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.Phase() != PhaseLoading {
			return m, nil
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) handleResult(msg ResultMsg) Model {
	qid := otel.QID("r", msg.Epoch)
	if msg.Epoch != m.epoch {
		metrics.StaleResponses.WithLabelValues("recommend").Inc()
		m.events.Emit(otel.Event{
			Level:   otel.LevelDebug,
			Kind:    otel.KindRecommendStale,
			Comp:    "recommend",
			QueryID: qid,
			Gen:     msg.Epoch,
			Title:   msg.Title,
			Extra:   map[string]any{"current_epoch": m.epoch},
		})
		return m
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if msg.Err != nil {
		m.errMsg = backend.Message(msg.Err)
		logging.Warn("recommendation lookup failed", "title", msg.Title, "err", msg.Err)
		m.events.Emit(otel.Event{
			Level:   otel.LevelError,
			Kind:    otel.KindRecommendError,
			Comp:    "recommend",
			QueryID: qid,
			Gen:     msg.Epoch,
			Title:   msg.Title,
			Dur:     msg.Dur,
			Status:  statusOf(msg.Err),
			Err:     m.errMsg,
		})
		return m
	}

	results := []backend.BookInfo{}
	if msg.Rec != nil {
		if msg.Rec.Recommendations != nil {
			results = msg.Rec.Recommendations
		}
		sb := msg.Rec.SearchedBook
		if sb.Title != "" {
			m.searched = &sb
		}
	}
	m.results = results
	m.events.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindRecommendComplete,
		Comp:    "recommend",
		QueryID: qid,
		Gen:     msg.Epoch,
		Title:   msg.Title,
		Dur:     msg.Dur,
		Count:   len(results),
	})
	return m
}

func statusOf(err error) int {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Phase derives the presentation state. An error wins over a pending
// result, so a failed lookup never shows as loading.
func (m Model) Phase() Phase {
	switch {
	case m.selected == "":
		return PhaseIdle
	case m.errMsg != "":
		return PhaseError
	case m.results == nil:
		return PhaseLoading
	default:
		return PhaseSuccess
	}
}

func (m Model) Selected() string { return m.selected }

// SearchedBook is the backend's record for the selected title, if the
// last successful lookup returned one.
func (m Model) SearchedBook() *backend.BookInfo { return m.searched }

// Results is nil until the current lookup succeeds.
func (m Model) Results() []backend.BookInfo { return m.results }

// Err is the user-facing error text, empty unless Phase is PhaseError.
func (m Model) Err() string { return m.errMsg }

func (m Model) Epoch() uint64 { return m.epoch }

// SetWidth sets the render width.
func (m Model) SetWidth(w int) Model {
	m.width = w
	return m
}

// View renders exactly one of the phase branches.
func (m Model) View() string {
	if m.Phase() == PhaseIdle {
		return HintStyle.Render("Discover your next favorite book. Start typing to search!")
	}

	var b strings.Builder
	b.WriteString(Heading.Render(fmt.Sprintf(`Recommendations for "%s"`, m.selected)))
	if meta := m.searchedMeta(); meta != "" {
		b.WriteString("\n")
		b.WriteString(SearchedMeta.Render(meta))
	}
	b.WriteString("\n")

	switch m.Phase() {
	case PhaseError:
		b.WriteString(ErrorBox.Render(m.errMsg))
	case PhaseLoading:
		b.WriteString(m.spinner.View() + " " + LoadingStyle.Render("Loading recommendations..."))
	case PhaseSuccess:
		if len(m.results) == 0 {
			b.WriteString(EmptyStyle.Render("No recommendations found."))
		} else {
			b.WriteString(m.renderCards())
		}
	}
	return b.String()
}

func (m Model) searchedMeta() string {
	if m.searched == nil {
		return ""
	}
	var parts []string
	if a := m.searched.Author; a != nil && *a != "" {
		parts = append(parts, "by "+*a)
	}
	if m.searched.Year.Valid {
		parts = append(parts, m.searched.Year.String())
	}
	if p := m.searched.Publisher; p != nil && *p != "" {
		parts = append(parts, *p)
	}
	return strings.Join(parts, " · ")
}

const cardWidth = 34

func (m Model) renderCards() string {
	cols := 2
	if m.width > 0 {
		cols = max(1, m.width/(cardWidth+3))
	}

	var rows []string
	var row []string
	for i, book := range m.results {
		row = append(row, renderCard(book))
		if len(row) == cols || i == len(m.results)-1 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderCard(b backend.BookInfo) string {
	lines := []string{CardTitle.Render(truncateRunes(b.Title, cardWidth))}

	var meta []string
	if b.Author != nil && *b.Author != "" {
		meta = append(meta, truncateRunes(*b.Author, 20))
	}
	if b.Year.Valid {
		meta = append(meta, b.Year.String())
	}
	if len(meta) > 0 {
		lines = append(lines, CardMeta.Render(strings.Join(meta, " · ")))
	}

	var stats []string
	if b.Rating != nil {
		stats = append(stats, CardRating.Render(fmt.Sprintf("★ %.2f", *b.Rating)))
	}
	if b.Confidence != nil {
		stats = append(stats, CardConfidence.Render(FormatConfidence(*b.Confidence)+" match"))
	}
	if len(stats) > 0 {
		lines = append(lines, strings.Join(stats, "  "))
	}
	if b.ImageURL != "" {
		// Terminals cannot show the cover; the link is still useful.
		lines = append(lines, CardCover.Render(truncateRunes("cover "+b.ImageURL, cardWidth-2)))
	}
	return Card.Width(cardWidth).Render(strings.Join(lines, "\n"))
}

// FormatConfidence renders a [0,1] similarity as a whole percentage.
func FormatConfidence(c float64) string {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return fmt.Sprintf("%.0f%%", c*100)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
