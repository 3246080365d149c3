package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleText = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleStarted = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	styleCompleted = lipgloss.NewStyle().
			Foreground(lipgloss.Color("41")).
			Bold(true)

	styleFailed = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindText lineKind = iota
	kindStarted
	kindCompleted
	kindFailed
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "Quest started:"),
		strings.HasPrefix(line, "Quest-line available:"):
		return kindStarted
	case strings.HasPrefix(line, "Quest completed:"),
		strings.HasPrefix(line, "Quest-line completed:"):
		return kindCompleted
	case strings.HasPrefix(line, "Quest failed:"),
		strings.HasPrefix(line, "Quest stuck:"),
		strings.HasPrefix(line, "Quest-line failed:"):
		return kindFailed
	case strings.HasPrefix(line, "Unknown "),
		strings.HasPrefix(line, "Usage:"),
		strings.HasPrefix(line, "Cannot "),
		strings.HasPrefix(line, "No quest matches"),
		strings.HasPrefix(line, "Which quest?"):
		return kindError
	default:
		return kindText
	}
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindStarted:
		return styleStarted.Render(line)
	case kindCompleted:
		return styleCompleted.Render(line)
	case kindFailed:
		return styleFailed.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleText.Render(line)
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
