// Package ui renders CLI output with consistent styling.
// Styling is disabled when stdout is not a terminal.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var isTTY = term.IsTerminal(int(os.Stdout.Fd()))

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// RenderPass styles success markers.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderWarn styles warning markers.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderFail styles failure markers.
func RenderFail(s string) string { return render(failStyle, s) }

// RenderAccent styles headings.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderMuted styles secondary detail.
func RenderMuted(s string) string { return render(mutedStyle, s) }

func render(style lipgloss.Style, s string) string {
	if !isTTY {
		return s
	}
	return style.Render(s)
}
