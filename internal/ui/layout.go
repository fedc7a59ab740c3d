package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todolist/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	FilterBarHeight int
	StatusBarHeight int
	Styles          theme.Styles
}

// NewLayout creates a Layout with the given terminal dimensions. The
// header, filter bar and status bar are one line each.
func NewLayout(width, height int, styles theme.Styles) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		FilterBarHeight: 1,
		StatusBarHeight: 1,
		Styles:          styles,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the list, accounting for
// the header, the filter bar and the status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.FilterBarHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the top bar with a title on the left and a summary
// such as "3 items left" on the right.
func (l Layout) RenderHeader(title string, summary string) string {
	style := l.Styles.Header
	titleRendered := style.Render(title)

	summaryRendered := style.
		Align(lipgloss.Right).
		Render(summary)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(summaryRendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		summaryRendered,
	)
}

// RenderStatusBar renders the bottom status bar. A non-empty alert replaces
// the hints.
func (l Layout) RenderStatusBar(hints string, alert string) string {
	style := l.Styles.StatusBar
	text := hints
	if alert != "" {
		style = l.Styles.Alert
		text = alert
	}
	rendered := style.Render(text)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, filter bar, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	filterBar string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		filterBar,
		content,
		statusBar,
	)
}
