package pipeline_cmd

import (
	"context"
	"filepipe/cmd/env"
	"filepipe/config"
	L "filepipe/logger"
	"filepipe/pipeline"
	"flag"
	"fmt"
	"sort"
)

func Execute(ctx context.Context, args []string) error {
	if len(args) < 1 {
		PrintUsage()
		return nil
	}
	action := args[0]
	fs := flag.NewFlagSet("pipeline "+action, flag.ExitOnError)
	fs.Usage = func() {
		PrintUsage()
	}
	common := env.AddCommonFlags(fs)
	asJson := fs.Bool("json", false, "Print as JSON")

	minArgs, maxArgs := 0, 0
	switch action {
	case "start", "stop", "restart":
		maxArgs = 1
	case "status", "health":
	default:
		return fmt.Errorf("no such pipeline command: %s. For more information check 'filepipe help pipeline'", action)
	}
	err := fs.Parse(args[1:])
	if err != nil {
		return err
	}
	err = env.ArgsOrErr(fs.Args(), minArgs, maxArgs, "filepipe help pipeline")
	if err != nil {
		return err
	}
	err = common.Apply(config.New())
	if err != nil {
		return err
	}

	e, err := env.Open(ctx, env.MODE_CONTROL)
	if err != nil {
		return err
	}
	defer e.Close(context.WithoutCancel(ctx))
	c := e.Controller

	switch action {
	case "status":
		status, err := c.Status(ctx)
		if err != nil {
			return err
		}
		if *asJson {
			return env.PrintJson(status)
		}
		L.Printf("%s", status)
	case "health":
		health := c.Health(ctx)
		if *asJson {
			return env.PrintJson(health)
		}
		printHealth(health)
	default:
		a, err := pipeline.ParseAction(action)
		if err != nil {
			return err
		}
		name := ""
		if len(fs.Args()) == 1 {
			name = fs.Arg(0)
		}
		result, err := c.Control(ctx, a, name)
		if err != nil {
			return err
		}
		if *asJson {
			return env.PrintJson(result)
		}
		names := make([]string, 0, len(result.Results))
		for n := range result.Results {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			L.Printf("%-20s %s\n", n, result.Results[n])
		}
		L.Printf("Pipeline is %s. A running 'filepipe serve' applies the change within a few seconds.\n", result.Status)
	}
	return nil
}

func printHealth(h *pipeline.Health) {
	L.Printf("Overall: %s\n", h.OverallStatus)
	names := make([]string, 0, len(h.Components))
	for n := range h.Components {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c := h.Components[n]
		if c.Message != "" {
			L.Printf("  %-12s %s: %s\n", n, c.Status, c.Message)
		} else {
			L.Printf("  %-12s %s\n", n, c.Status)
		}
	}
}
