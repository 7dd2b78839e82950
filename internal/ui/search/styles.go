package search

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240")
	colorHighlight = lipgloss.Color("212") // Pink
)

// InputBox frames the query line. Border color follows focus.
var InputBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted).
	Padding(0, 1)

var InputBoxFocused = InputBox.
	BorderForeground(colorHighlight)

var SuggestionRow = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

var SuggestionSelected = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

var SuggestionHint = lipgloss.NewStyle().
	Foreground(colorSecondary)

var DropdownFooter = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(0, 1)

var ClearHint = lipgloss.NewStyle().
	Foreground(colorSecondary)

var SpinnerStyle = lipgloss.NewStyle().
	Foreground(colorHighlight)
