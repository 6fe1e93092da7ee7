package tui_cmd

import (
	"context"
	"filepipe/cmd/env"
	"filepipe/config"
	L "filepipe/logger"
	"filepipe/tui"
	"flag"

	tea "github.com/charmbracelet/bubbletea"
)

func Execute(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	fs.Usage = func() {
		PrintUsage()
	}
	common := env.AddCommonFlags(fs)
	err := fs.Parse(args)
	if err != nil {
		return err
	}
	err = env.ArgsOrErr(fs.Args(), 0, 0, "filepipe help tui")
	if err != nil {
		return err
	}
	err = common.Apply(config.New())
	if err != nil {
		return err
	}
	// log lines would tear the alt screen
	L.SetLevel(L.SILENT)

	e, err := env.Open(ctx, env.MODE_CONTROL)
	if err != nil {
		return err
	}
	defer e.Close(context.WithoutCancel(ctx))

	app := tui.NewApp(ctx, e.Controller, e.Registry)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
