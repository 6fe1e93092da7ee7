package cmd

import (
	"context"
	"filepipe/cmd/files_cmd"
	"filepipe/cmd/filetype_cmd"
	"filepipe/cmd/help_cmd"
	"filepipe/cmd/mapping_cmd"
	"filepipe/cmd/pipeline_cmd"
	"filepipe/cmd/scan_cmd"
	"filepipe/cmd/serve_cmd"
	"filepipe/cmd/source_cmd"
	"filepipe/cmd/task_cmd"
	"filepipe/cmd/tui_cmd"
	"filepipe/cmd/version_cmd"
)

func Execute(ctx context.Context, args []string) error {
	if len(args) < 2 {
		PrintUsage()
		return nil
	}

	values := map[string]string{
		"binary_name":  args[0],
		"command_name": args[1],
	}

	ctx = context.WithValue(ctx, "values", values)

	switch args[1] {
	case "serve":
		return serve_cmd.Execute(ctx, args[2:])
	case "scan":
		return scan_cmd.Execute(ctx, args[2:])
	case "source":
		return source_cmd.Execute(ctx, args[2:])
	case "filetype":
		return filetype_cmd.Execute(ctx, args[2:])
	case "mapping":
		return mapping_cmd.Execute(ctx, args[2:])
	case "files":
		return files_cmd.Execute(ctx, args[2:])
	case "pipeline":
		return pipeline_cmd.Execute(ctx, args[2:])
	case "task":
		return task_cmd.Execute(ctx, args[2:])
	case "tui":
		return tui_cmd.Execute(ctx, args[2:])
	case "help", "--help", "-h":
		return help_cmd.Execute(ctx, args[2:])
	case "version", "--version", "-v":
		return version_cmd.Execute(ctx, args[2:])
	default:
		PrintUsage()
		return nil
	}
}
