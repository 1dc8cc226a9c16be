package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#00E676")
	colorDanger  = lipgloss.Color("#FF5252")
	colorAccent  = lipgloss.Color("#FFD700")
	colorMuted   = lipgloss.Color("#8C8C8C")
	colorPrimary = lipgloss.Color("#00BFFF")
)

var (
	okMark   = lipgloss.NewStyle().Foreground(colorSuccess).Render("✓")
	failMark = lipgloss.NewStyle().Foreground(colorDanger).Bold(true).Render("✗")
	warnMark = lipgloss.NewStyle().Foreground(colorAccent).Render("!")

	headerStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

func okf(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, okMark+" "+fmt.Sprintf(format, args...))
}

func failf(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, failMark+" "+fmt.Sprintf(format, args...))
}

func warnf(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warnMark+" "+fmt.Sprintf(format, args...))
}
