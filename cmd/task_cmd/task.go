package task_cmd

import (
	"context"
	"filepipe/cmd/env"
	"filepipe/config"
	"filepipe/database/model"
	L "filepipe/logger"
	"filepipe/scheduler"
	"flag"
	"fmt"
	"strconv"
)

func Execute(ctx context.Context, args []string) error {
	if len(args) < 1 {
		PrintUsage()
		return nil
	}
	action := args[0]
	fs := flag.NewFlagSet("task "+action, flag.ExitOnError)
	fs.Usage = func() {
		PrintUsage()
	}
	common := env.AddCommonFlags(fs)
	asJson := fs.Bool("json", false, "Print as JSON")
	enabled := fs.String("enabled", "", "true or false (update)")
	interval := fs.Int64("interval", 0, "Interval in seconds (update)")
	limit := fs.Int("limit", 20, "Number of executions to show (executions)")

	minArgs, maxArgs := 1, 1
	switch action {
	case "ls":
		minArgs, maxArgs = 0, 0
	case "show", "update", "start", "stop", "run", "executions":
	default:
		return fmt.Errorf("no such task command: %s. For more information check 'filepipe help task'", action)
	}
	err := fs.Parse(args[1:])
	if err != nil {
		return err
	}
	err = env.ArgsOrErr(fs.Args(), minArgs, maxArgs, "filepipe help task")
	if err != nil {
		return err
	}
	err = common.Apply(config.New())
	if err != nil {
		return err
	}

	var upd scheduler.TaskUpdate
	if action == "update" {
		upd, err = parseUpdate(fs, *enabled, *interval)
		if err != nil {
			return err
		}
	}

	e, err := env.Open(ctx, env.MODE_CONTROL)
	if err != nil {
		return err
	}
	defer e.Close(context.WithoutCancel(ctx))
	s := e.Scheduler

	switch action {
	case "ls":
		tasks, err := s.List(ctx)
		if err != nil {
			return err
		}
		if *asJson {
			return env.PrintJson(tasks)
		}
		rows := make([][]string, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, []string{
				t.TaskId,
				t.TaskName,
				env.OnOff(t.Enabled),
				L.HumanReadableTime(t.Interval().Milliseconds()),
				strconv.FormatBool(t.Running),
				env.FormatTime(t.LastRun),
				env.FormatTime(t.NextRun),
			})
		}
		env.PrintTable([]string{"ID", "NAME", "STATE", "INTERVAL", "RUNNING", "LAST RUN", "NEXT RUN"}, rows)
		return nil
	case "show":
		info, err := s.Get(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		if *asJson {
			return env.PrintJson(info)
		}
		L.Printf("%s", &info.TaskConfig)
		return nil
	case "executions":
		execs, err := s.Executions(ctx, fs.Arg(0), *limit)
		if err != nil {
			return err
		}
		if *asJson {
			return env.PrintJson(execs)
		}
		printExecutions(execs)
		return nil
	case "run":
		L.Printf("Running %s, this may take a while\n", fs.Arg(0))
		exec, err := s.RunNow(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		if *asJson {
			return env.PrintJson(exec)
		}
		printExecutions([]model.Execution{*exec})
		return nil
	}

	var cfg *model.TaskConfig
	switch action {
	case "update":
		cfg, err = s.Update(ctx, fs.Arg(0), upd)
	case "start":
		cfg, err = s.Start(ctx, fs.Arg(0))
	case "stop":
		cfg, err = s.Stop(ctx, fs.Arg(0))
	}
	if err != nil {
		return err
	}
	if *asJson {
		return env.PrintJson(cfg)
	}
	L.Printf("%s", cfg)
	L.Printf("A running 'filepipe serve' picks up the change within a few seconds.\n")
	return nil
}

// parseUpdate only sets the fields given on the command line.
func parseUpdate(fs *flag.FlagSet, enabled string, interval int64) (scheduler.TaskUpdate, error) {
	var upd scheduler.TaskUpdate
	given := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		given[f.Name] = true
	})
	if given["enabled"] {
		b, err := strconv.ParseBool(enabled)
		if err != nil {
			return upd, fmt.Errorf("enabled must be true or false: %w", err)
		}
		upd.Enabled = &b
	}
	if given["interval"] {
		upd.IntervalSeconds = &interval
	}
	if upd.Enabled == nil && upd.IntervalSeconds == nil {
		return upd, fmt.Errorf("nothing to update, use --enabled or --interval")
	}
	return upd, nil
}

func printExecutions(execs []model.Execution) {
	rows := make([][]string, 0, len(execs))
	for _, ex := range execs {
		detail := ex.Error
		if detail == "" && len(ex.Result) > 0 {
			detail = L.TruncateString(string(ex.Result), 60, L.TRUNC_RIGHT)
		}
		rows = append(rows, []string{
			env.FormatTime(&ex.StartTime),
			string(ex.Status),
			L.HumanReadableTime(ex.ExecutionTimeMs),
			detail,
		})
	}
	env.PrintTable([]string{"STARTED", "STATUS", "DURATION", "RESULT"}, rows)
}
