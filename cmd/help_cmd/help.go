package help_cmd

import (
	"context"
	"filepipe/cmd/files_cmd"
	"filepipe/cmd/filetype_cmd"
	"filepipe/cmd/mapping_cmd"
	"filepipe/cmd/pipeline_cmd"
	"filepipe/cmd/scan_cmd"
	"filepipe/cmd/serve_cmd"
	"filepipe/cmd/source_cmd"
	"filepipe/cmd/task_cmd"
	"filepipe/cmd/tui_cmd"
	"fmt"
)

func Execute(ctx context.Context, args []string) error {
	if len(args) != 1 {
		PrintUsage()
		return nil
	}

	switch args[0] {
	case "serve":
		serve_cmd.PrintUsage()
	case "scan":
		scan_cmd.PrintUsage()
	case "source":
		source_cmd.PrintUsage()
	case "filetype":
		filetype_cmd.PrintUsage()
	case "mapping":
		mapping_cmd.PrintUsage()
	case "files":
		files_cmd.PrintUsage()
	case "pipeline":
		pipeline_cmd.PrintUsage()
	case "task":
		task_cmd.PrintUsage()
	case "tui":
		tui_cmd.PrintUsage()
	case "help":
		PrintUsage()
	case "config":
		ConfigPrintUsage()
	default:
		return fmt.Errorf("No such command: %s", args[0])
	}
	return nil
}
