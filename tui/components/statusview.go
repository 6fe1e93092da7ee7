package components

import (
	"filepipe/database/model"
	"filepipe/pipeline"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorGrey)

	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorBlue)
)

type Row struct {
	label string
	value string
}

// renders pipeline status, and the selected source when there is one
func RenderStatusView(
	status *pipeline.Status,
	stats *pipeline.FileStatistics,
	src *model.ScanSource,
	mapping *model.KnowledgeBaseMapping,
	width int,
) string {
	if status == nil || stats == nil {
		return "Loading..."
	}

	labelWidth := 24
	valueWidth := max(width-labelWidth-6, 10)

	buildSection := func(title string, rows []Row) string {
		labelStyle := lipgloss.NewStyle().Width(labelWidth).Foreground(ColorGrey)
		valueStyle := lipgloss.NewStyle().Width(valueWidth).Foreground(ColorGreen)

		tableContent := ""
		for _, row := range rows {
			line := lipgloss.JoinHorizontal(lipgloss.Top,
				labelStyle.Render(row.label),
				valueStyle.Render(row.value),
			)
			tableContent += line + "\n"
		}

		tableContent = strings.TrimSuffix(tableContent, "\n")

		table := sectionTitleStyle.Render(title) + "\n" + sectionStyle.Render(tableContent)
		return table
	}

	var sb strings.Builder

	if src != nil {
		kb := "-"
		if mapping != nil {
			kb = mapping.KnowledgeBaseId
			if mapping.KnowledgeBaseName != "" {
				kb = fmt.Sprintf("%s (%s)", mapping.KnowledgeBaseName, mapping.KnowledgeBaseId)
			}
			if !mapping.Enabled {
				kb += " disabled"
			}
		}
		sourceRows := []Row{
			{"Name:", src.Name},
			{"Kind:", string(src.Kind)},
			{"Watch Path:", src.WatchPath()},
			{"Enabled:", fmt.Sprintf("%t", src.Enabled)},
			{"Knowledge Base:", kb},
		}
		sb.WriteString(buildSection("SOURCE", sourceRows) + "\n")
	}

	state := "stopped"
	if status.Running {
		state = "running"
	}
	pipelineRows := []Row{
		{"Status:", state},
		{"Queue Size:", fmt.Sprintf("%d", status.QueueSize)},
		{"Workers:", fmt.Sprintf("%d", status.WorkerCount)},
		{"Files:", fmt.Sprintf("%d", stats.Total)},
	}
	for _, st := range model.AllFileStatuses {
		pipelineRows = append(pipelineRows, Row{"  " + string(st) + ":", fmt.Sprintf("%d", stats.ByStatus[st])})
	}
	sb.WriteString(buildSection("PIPELINE", pipelineRows))

	var processorRows []Row
	for _, p := range status.RegisteredProcessors {
		st := status.ProcessorStatistics[p.Name]
		marker := "  "
		if p.Consuming {
			marker = "✓ "
		}
		processorRows = append(processorRows, Row{
			label: marker + p.Name,
			value: fmt.Sprintf("processed %d, ok %d, failed %d, skipped %d", st.Processed, st.Success, st.Failed, st.Skipped),
		})
	}
	if len(processorRows) > 0 {
		sb.WriteString("\n" + buildSection("PROCESSORS", processorRows))
	}

	return sb.String()
}
