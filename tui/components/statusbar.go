package components

import (
	"filepipe/database/model"
	"filepipe/pipeline"
	"fmt"
	"strings"

	L "filepipe/logger"
)

func RenderStatusBar(
	status *pipeline.Status,
	stats *pipeline.FileStatistics,
	message string,
	width int,
) string {
	if status == nil || stats == nil {
		return ""
	}
	var sb strings.Builder

	done := stats.ByStatus[model.FILE_STATUS_SUCCESS] + stats.ByStatus[model.FILE_STATUS_FAILED]
	var pct float64
	if stats.Total > 0 {
		pct = float64(done) * 100.0 / float64(stats.Total)
	}
	switch {
	case !status.Running:
		sb.WriteString(YellowStyle.Render("Status | PIPELINE STOPPED"))
	case status.QueueSize == 0:
		sb.WriteString(GreenStyle.Render("Status | ✓  IDLE, NOTHING QUEUED"))
	default:
		sb.WriteString(fmt.Sprintf("Status | PROCESSING %s %3.2f%%", L.ProgressBar(pct, max(width-35, 10)), pct))
	}
	if failed := stats.ByStatus[model.FILE_STATUS_FAILED]; failed > 0 {
		sb.WriteString(RedStyle.Render(fmt.Sprintf("  ✗ %d failed", failed)))
	}
	if message != "" {
		sb.WriteString("\n" + DimStyle.Render(message))
	}

	return sb.String()
}
