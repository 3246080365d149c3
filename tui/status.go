package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderStatusBar produces a full-width inverted status line showing
// registry counts and the engine clock.
func (m Model) renderStatusBar() string {
	active, completed, failed := m.console.M.Counts()

	left := fmt.Sprintf(" questweave | active: %d  completed: %d  failed: %d", active, completed, failed)
	right := fmt.Sprintf("clock: %.1fs ", m.console.M.Clock())
	if m.console.Trace {
		right = "trace on | " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
