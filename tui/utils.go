package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderPanel draws content in a bordered box with the title set into the top border.
func renderPanel(title string, content string, width int, height int, focused bool) string {
	borderStyle, titleStyle := boxStyle, panelTitleStyle
	if focused {
		borderStyle, titleStyle = activeBoxStyle, activePanelTitleStyle
	}
	box := borderStyle.Width(width).Height(height).Render(content)
	lines := strings.Split(box, "\n")
	top, ok := titledBorder(lines[0], titleStyle.Render(" "+title+" "))
	if !ok {
		return box
	}
	lines[0] = top
	return strings.Join(lines, "\n")
}

// titledBorder splices a styled title into a rendered top border, keeping the
// border's own color codes around the corners and dashes.
func titledBorder(border string, title string) (string, bool) {
	const dash = "─"
	left := strings.Index(border, "┌")
	right := strings.Index(border, "┐")
	if left == -1 || right == -1 {
		return border, false
	}
	open := border[:left]
	closing := ""
	if i := strings.LastIndex(border, "\x1b[0m"); i != -1 {
		closing = border[i:]
	}

	start := left + len("┌") + 2*len(dash)
	rest := max((right-start)/len(dash)-lipgloss.Width(title), 0)
	return open + "╭" + strings.Repeat(dash, 2) + closing +
		title +
		open + strings.Repeat(dash, rest) + "╮" + closing, true
}
