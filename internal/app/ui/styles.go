package ui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	styleMu sync.RWMutex
	noColor bool
)

var (
	severityHigh   = lipgloss.Color("#FF6B6B")
	severityMedium = lipgloss.Color("#FFD93D")
	severityLow    = lipgloss.Color("#4D96FF")
	muted          = lipgloss.Color("#6B7280")
)

// SetNoColor switches lipgloss rendering to plain ASCII.
func SetNoColor(v bool) {
	styleMu.Lock()
	defer styleMu.Unlock()
	noColor = v
	if v {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

func NoColor() bool {
	styleMu.RLock()
	defer styleMu.RUnlock()
	return noColor
}

// SeverityStyle returns the badge style for HIGH, MEDIUM or LOW.
func SeverityStyle(severity string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch strings.ToUpper(severity) {
	case "HIGH":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(severityHigh)
	case "MEDIUM":
		return base.Foreground(lipgloss.Color("#000000")).Background(severityMedium)
	case "LOW":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(severityLow)
	default:
		return base.Foreground(muted)
	}
}
