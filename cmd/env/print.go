package env

import (
	"encoding/json"
	L "filepipe/logger"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func PrintTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		L.Println("(none)")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	L.Println(t.String())
}

func PrintJson(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	L.Println(string(data))
	return nil
}

func FormatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func OnOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

// ArgsOrErr checks the number of positional args of a subcommand.
func ArgsOrErr(args []string, min int, max int, usage string) error {
	if len(args) < min {
		return fmt.Errorf("not enough arguments. For more information check '%s'", usage)
	}
	if max >= 0 && len(args) > max {
		return fmt.Errorf("too many arguments. For more information check '%s'", usage)
	}
	return nil
}
