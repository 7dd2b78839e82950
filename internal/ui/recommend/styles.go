package recommend

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240")
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorInfo      = lipgloss.Color("75")  // Blue
)

var Heading = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	MarginBottom(1)

var SearchedMeta = lipgloss.NewStyle().
	Foreground(colorSecondary)

var LoadingStyle = lipgloss.NewStyle().
	Foreground(colorInfo)

// ErrorBox mirrors the red callout used for failed lookups.
var ErrorBox = lipgloss.NewStyle().
	Foreground(lipgloss.Color("203")).
	Background(lipgloss.Color("52")).
	Padding(0, 2)

var EmptyStyle = lipgloss.NewStyle().
	Foreground(colorSecondary)

var HintStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Italic(true)

var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(0, 1).
	MarginRight(1)

var CardTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255"))

var CardMeta = lipgloss.NewStyle().
	Foreground(colorSecondary)

var CardRating = lipgloss.NewStyle().
	Foreground(colorHighlight)

var CardConfidence = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true)

var CardCover = lipgloss.NewStyle().
	Foreground(colorMuted).
	Faint(true)
