package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/im-vishesh15th/bookmind/internal/backend"
	"github.com/im-vishesh15th/bookmind/internal/logging"
	"github.com/im-vishesh15th/bookmind/internal/otel"
	"github.com/im-vishesh15th/bookmind/internal/ui/recommend"
	"github.com/im-vishesh15th/bookmind/internal/ui/search"
)

const healthTimeout = 5 * time.Second

// HealthChecker reports backend health.
type HealthChecker interface {
	Health(ctx context.Context) (*backend.Health, error)
}

// ObsConfig wires observability into the App.
type ObsConfig struct {
	Logger *otel.Logger
	Ring   *otel.RingBuffer
}

// AppConfig holds everything the App needs. Catalog and Recommender are
// usually the same *backend.Client.
type AppConfig struct {
	Catalog     search.Source
	Recommender recommend.Recommender
	Health      HealthChecker
	Search      search.Config
	Features    Features
	Obs         ObsConfig
}

// App is the root Bubble Tea model. It owns the search box and the
// recommendation panel; the only link between them is search.SelectedMsg.
type App struct {
	search    search.Model
	recommend recommend.Model

	healthChecker HealthChecker
	health        *backend.Health
	healthErr     error
	healthDone    bool

	features Features
	logger   *otel.Logger
	ring     *otel.RingBuffer

	debugVisible bool
	width        int
	height       int
	ready        bool
}

// NewAppWithConfig creates the App with the search box focused.
func NewAppWithConfig(cfg AppConfig) App {
	s := search.New(cfg.Catalog, cfg.Search, cfg.Obs.Logger)
	s, _ = s.Focus()

	return App{
		search:        s,
		recommend:     recommend.New(cfg.Recommender, cfg.Obs.Logger),
		healthChecker: cfg.Health,
		features:      cfg.Features,
		logger:        cfg.Obs.Logger,
		ring:          cfg.Obs.Ring,
	}
}

// Init starts the cursor blink and the health probe.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if a.features.HealthCheck && a.healthChecker != nil {
		cmds = append(cmds, checkHealth(a.healthChecker))
	}
	return tea.Batch(cmds...)
}

func checkHealth(hc HealthChecker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()
		h, err := hc.Health(ctx)
		return HealthChecked{Health: h, Err: err}
	}
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() {
		a.logger.Emit(otel.Event{
			Level: otel.LevelDebug,
			Kind:  otel.KindMsgReceived,
			Comp:  "ui",
			Msg:   fmt.Sprintf("%T", msg),
		})
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.search = a.search.SetWidth(msg.Width)
		a.recommend = a.recommend.SetWidth(msg.Width)
		return a, nil

	case tea.MouseMsg:
		if !a.features.Mouse {
			return a, nil
		}
		return a.handleMouse(msg)

	case search.SelectedMsg:
		var cmd tea.Cmd
		a.recommend, cmd = a.recommend.SelectBook(msg.Title)
		return a, cmd

	case HealthChecked:
		a.healthDone = true
		a.health = msg.Health
		a.healthErr = msg.Err
		a.logHealth()
		return a, nil
	}

	// Timers, fetch results, spinner ticks and cursor blinks: each child
	// ignores what is not addressed to it.
	var sCmd, rCmd tea.Cmd
	a.search, sCmd = a.search.Update(msg)
	a.recommend, rCmd = a.recommend.Update(msg)
	return a, tea.Batch(sCmd, rCmd)
}

func (a App) logHealth() {
	e := otel.Event{Level: otel.LevelInfo, Kind: otel.KindHealth, Comp: "ui"}
	switch {
	case a.healthErr != nil:
		e.Level = otel.LevelWarn
		e.Err = a.healthErr.Error()
		logging.Warn("backend health check failed", "err", a.healthErr)
	case a.health != nil:
		e.Msg = a.health.Status
		e.Extra = map[string]any{"model_loaded": a.health.ModelLoaded}
		if a.health.Limited() {
			e.Level = otel.LevelWarn
			logging.Warn("backend running in limited mode", "status", a.health.Status)
		}
	}
	a.logger.Emit(e)
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if otel.TraceEnabled() {
		a.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Comp: "ui", Msg: key})
	}

	switch key {
	case "ctrl+c":
		return a, tea.Quit
	case "ctrl+g":
		a.debugVisible = !a.debugVisible
		return a, nil
	}

	if a.debugVisible {
		if key == "esc" || key == "?" {
			a.debugVisible = false
		}
		return a, nil
	}

	switch key {
	case "esc":
		a.search = a.search.Clear()
		return a, nil
	case "tab", "shift+tab":
		return a.toggleFocus()
	}

	if !a.search.Focused() {
		switch key {
		case "q":
			return a, tea.Quit
		case "/", "i":
			var cmd tea.Cmd
			a.search, cmd = a.search.Focus()
			return a, cmd
		case "?":
			a.debugVisible = true
			return a, nil
		case "r":
			// Retry is always user-initiated: re-select the current book.
			if title := a.recommend.Selected(); title != "" {
				var cmd tea.Cmd
				a.recommend, cmd = a.recommend.SelectBook(title)
				return a, cmd
			}
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	return a, cmd
}

func (a App) toggleFocus() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if a.search.Focused() {
		a.search, cmd = a.search.Blur()
	} else {
		a.search, cmd = a.search.Focus()
	}
	return a, cmd
}

// handleMouse routes left clicks: inside the search area they focus or
// select, anywhere else they blur.
func (a App) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return a, nil
	}

	var cmd tea.Cmd
	y := msg.Y - a.searchTop()
	if y >= 0 && y < a.search.Height() {
		a.search, cmd = a.search.Click(y)
		return a, cmd
	}
	if a.search.Focused() {
		a.search, cmd = a.search.Blur()
	}
	return a, cmd
}

func (a App) renderHeader() string {
	return TitleStyle.Render("📚 Book Recommendation Engine") + "\n" +
		SubtitleStyle.Render("Find books like the ones you love") + "\n"
}

// searchTop is the screen row where the search box starts.
func (a App) searchTop() int {
	return lipgloss.Height(a.renderHeader())
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.debugVisible {
		overlay := debugOverlay(a.ring, a.width, a.height-1)
		if overlay == "" {
			overlay = StatusBarText.Render("  No event buffer attached.")
		}
		return padTo(overlay, a.height-1) + debugStatusBar(a.width)
	}

	body := a.renderHeader() + "\n" + a.search.View() + "\n\n" + a.recommend.View()
	return padTo(body, a.height-1) + a.statusBar()
}

// padTo pads s with blank lines so the status bar sits on the last row.
func padTo(s string, lines int) string {
	if h := lipgloss.Height(s); h < lines {
		s += strings.Repeat("\n", lines-h)
	}
	return s + "\n"
}

func (a App) statusBar() string {
	hint := func(k, d string) string {
		return StatusBarKey.Render(k) + StatusBarText.Render(":"+d)
	}

	var keys []string
	if a.search.Focused() {
		keys = append(keys, hint("↑↓", "move"), hint("enter", "choose"), hint("esc", "clear"), hint("tab", "unfocus"))
	} else {
		keys = append(keys, hint("/", "search"), hint("r", "retry"), hint("q", "quit"))
	}
	keys = append(keys, hint("ctrl+g", "debug"))

	left := strings.Join(keys, "  ")
	right := a.healthBadge()
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return StatusBar.Width(a.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (a App) healthBadge() string {
	if !a.healthDone {
		return ""
	}
	switch {
	case a.healthErr != nil:
		return HealthDown.Render("✕ backend unreachable")
	case a.health == nil:
		return ""
	case a.health.Limited():
		return HealthLimited.Render("▲ limited mode")
	default:
		return HealthOK.Render("● " + a.health.Status)
	}
}

// Search returns the search box (for testing).
func (a App) Search() search.Model {
	return a.search
}

// Recommend returns the recommendation panel (for testing).
func (a App) Recommend() recommend.Model {
	return a.recommend
}
