package tui

import (
	"filepipe/tui/components"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const sidebarWidth = 30

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(components.ColorGrey).
			Padding(0, 1)
	activeBoxStyle = boxStyle.BorderForeground(components.ColorGreen)

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.NormalBorder()).
			BorderForeground(components.ColorGrey)
	activeTabStyle = tabStyle.
			Foreground(components.ColorGreen).
			BorderForeground(components.ColorGreen).
			Bold(true)

	panelTitleStyle       = lipgloss.NewStyle().Foreground(components.ColorGrey)
	activePanelTitleStyle = panelTitleStyle.Foreground(components.ColorGreen).Bold(true)
)

func (m modelTui) tabs() string {
	statusLabel := "Status"
	filesLabel := "Files"
	dim := tabStyle.Foreground(components.ColorGrey)
	if m.focus != focusContent {
		return lipgloss.JoinHorizontal(lipgloss.Top, dim.Render(statusLabel), dim.Render(filesLabel))
	}
	statusLabel = "[3] Status"
	filesLabel = "[4] Files"
	if m.activeTab == tabStatus {
		return lipgloss.JoinHorizontal(lipgloss.Top, activeTabStyle.Render(statusLabel), dim.Render(filesLabel))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, dim.Render(statusLabel), activeTabStyle.Render(filesLabel))
}

func (m modelTui) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	// account for both panels' borders (2+2)
	contentWidth := m.width - sidebarWidth - 4
	// account for borders (2 lines) and footer (1 line)
	mainHeight := m.height - 3

	sidebarContent := components.RenderSourceList(
		m.sources,
		m.sidebarCursor,
		m.focus == focusSidebar,
		sidebarWidth,
	)
	sidebarBox := renderPanel("[1] Sources", sidebarContent, sidebarWidth, mainHeight, m.focus == focusSidebar)

	var cb strings.Builder
	cb.WriteString(m.tabs() + "\n")

	src, mapping := m.selectedSourceInfo()
	if m.activeTab == tabStatus {
		cb.WriteString(components.RenderStatusView(m.status, m.stats, src, mapping, contentWidth))
	} else {
		sourceName := components.ALL_SOURCES
		if src != nil {
			sourceName = src.Name
		}
		cb.WriteString(components.RenderFilesView(
			m.files,
			m.filesTotal,
			sourceName,
			m.contentCursor,
			m.contentOffset,
			m.focus == focusContent,
			contentWidth,
			m.height,
		))
	}

	cb.WriteString("\n" + components.RenderStatusBar(m.status, m.stats, m.notice, contentWidth))

	contentBox := renderPanel("[2] Content", cb.String(), contentWidth, mainHeight, m.focus == focusContent)

	footer := components.HelpStyle.Width(m.width).Align(lipgloss.Center).Render("1:Sources | 2:Content | Tab:Toggle | 3/s:Status | 4/f:Files | j/k:Navigate | r:Reprocess | p:Start/Stop | q:Quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, sidebarBox, contentBox),
		footer,
	)
}
