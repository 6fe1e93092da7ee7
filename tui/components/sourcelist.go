package components

import (
	"filepipe/database/model"
	"fmt"
	"strings"
)

// ALL_SOURCES is the first sidebar entry, it selects files of every source
const ALL_SOURCES = "All sources"

func RenderSourceList(
	sources []model.ScanSource,
	sidebarCursor int,
	focusOnSidebar bool,
	width int,
) string {
	var sb strings.Builder

	// align with tabs on the content side (1 line to match tab position)
	sb.WriteString("\n")

	items := []string{fmt.Sprintf("%s\n• %d sources", ALL_SOURCES, len(sources))}
	for _, s := range sources {
		state := strings.ToUpper(string(s.Kind))
		if !s.Enabled {
			state += " (DISABLED)"
		}
		items = append(items, fmt.Sprintf("%s\n• %s", s.Name, state))
	}

	for i, msg := range items {
		style := sidebarItemStyle
		if i == sidebarCursor {
			if focusOnSidebar {
				style = selectedItemStyle
			} else {
				style = sidebarItemStyle.Background(ColorGrey)
			}
		} else if i > 0 && !sources[i-1].Enabled {
			style = DimStyle
		}

		// width accounts for borders (2) only, padding is handled by box style
		sb.WriteString(style.Width(width-2).Render(msg) + "\n")
	}

	return sb.String()
}
