package tui

import "github.com/charmbracelet/lipgloss"

// ---------------------------------------------------------------------------
// Catppuccin Mocha palette, true-color hex values.
// https://catppuccin.com/palette
// ---------------------------------------------------------------------------

const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"

	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext1 lipgloss.Color = "#bac2de"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
	colorSurface0 lipgloss.Color = "#313244"
	colorMantle   lipgloss.Color = "#181825"
)

const (
	colorAccent  = colorPink
	colorFocus   = colorLavender
	colorSuccess = colorGreen
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	groupStyle        = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	groupFocusStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorFocus)
	searchPromptStyle = lipgloss.NewStyle().Foreground(colorSubtext0)

	badgeStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorSurface1).
			Padding(0, 1)
	noneStyle = lipgloss.NewStyle().Foreground(colorOverlay1).Italic(true)

	entryStyle         = lipgloss.NewStyle().Foreground(colorSubtext1)
	entrySelectedStyle = lipgloss.NewStyle().Foreground(colorGreen)
	entryCursorStyle   = lipgloss.NewStyle().Background(colorSurface0).Bold(true)
	hintStyle          = lipgloss.NewStyle().Foreground(colorPeach)

	applyStyle = lipgloss.NewStyle().
			Foreground(colorMantle).
			Background(colorBlue).
			Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(colorWarning)
	appliedStyle = lipgloss.NewStyle().Foreground(colorSuccess)

	resultsTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorMauve)
	resultsStyle      = lipgloss.NewStyle().Foreground(colorText)
	skippedStyle      = lipgloss.NewStyle().Foreground(colorRed)
	infoStyle         = lipgloss.NewStyle().Foreground(colorInfo)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorSubtext0).
			Background(colorMantle).
			Padding(0, 2)
)
