package components

import (
	"filepipe/database/model"
	"fmt"
	"strings"

	L "filepipe/logger"

	"github.com/charmbracelet/lipgloss"
)

func statusStyle(s model.FileStatus) lipgloss.Style {
	switch s {
	case model.FILE_STATUS_SUCCESS:
		return GreenStyle
	case model.FILE_STATUS_FAILED:
		return RedStyle
	case model.FILE_STATUS_PROCESSING, model.FILE_STATUS_DOWNLOADING:
		return BlueStyle
	case model.FILE_STATUS_RETRYING:
		return YellowStyle
	default:
		return DimStyle
	}
}

// renders the file records of the selected source, newest first
func RenderFilesView(
	files []model.FileRecord,
	total int64,
	sourceName string,
	contentCursor int,
	contentOffset int,
	focusOnContent bool,
	width int,
	height int,
) string {
	var sb strings.Builder

	sb.WriteString(DimStyle.Render("Files of "))
	sb.WriteString(GreenStyle.Render(sourceName) + DimStyle.Render(fmt.Sprintf(" (%d)", total)) + "\n")

	if len(files) == 0 {
		sb.WriteString("\n  " + YellowStyle.Render("No files discovered yet. Run 'filepipe scan'."))
		return sb.String()
	}

	maxVisible := max(height-18, 1)

	statusWidth := 13
	sizeWidth := 10
	modWidth := 16
	nameWidth := max(width-statusWidth-sizeWidth-modWidth-5, 10)

	headerStyle := lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
	headerLine := lipgloss.JoinHorizontal(lipgloss.Top,
		headerStyle.Width(nameWidth).Render("NAME"),
		headerStyle.Width(statusWidth).Render("STATUS"),
		headerStyle.Width(sizeWidth).Render("SIZE"),
		headerStyle.Width(modWidth).Render("MODIFIED AT"),
	)
	sb.WriteString(headerLine + "\n")

	end := contentOffset + maxVisible
	for i := contentOffset; i < len(files) && i < end; i++ {
		f := files[i]

		name := f.FileName
		if f.SourceType == model.SOURCE_TYPE_STT {
			name = "↳ " + name
		}
		name = L.TruncateString(name, nameWidth-1, L.TRUNC_CENTER)

		line := lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(nameWidth).Render(name),
			statusStyle(f.Status).Width(statusWidth).Render(string(f.Status)),
			lipgloss.NewStyle().Width(sizeWidth).Render(L.HumanReadableBytes(uint64(f.Size), 1)),
			lipgloss.NewStyle().Width(modWidth).Render(f.ModifiedAt.Local().Format("2006-01-02 15:04")),
		)

		if i == contentCursor && focusOnContent {
			sb.WriteString(selectedItemStyle.Width(width - 2).Render(line))
		} else {
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}

	if len(files) > end {
		sb.WriteString(DimStyle.Render(fmt.Sprintf("... %d more files", len(files)-end)) + "\n")
	}

	if contentCursor < len(files) {
		f := files[contentCursor]
		if f.ErrorMessage != "" {
			sb.WriteString(RedStyle.Render(L.TruncateString("error: "+f.ErrorMessage, width-2, L.TRUNC_RIGHT)))
		}
	}

	return sb.String()
}
