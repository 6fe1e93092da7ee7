package source_cmd

import (
	"context"
	"filepipe/cmd/env"
	"filepipe/config"
	"filepipe/database/model"
	L "filepipe/logger"
	"filepipe/registry"
	"filepipe/scanner"
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
	fs := flag.NewFlagSet("source "+action, flag.ExitOnError)
	fs.Usage = func() {
		PrintUsage()
	}
	common := env.AddCommonFlags(fs)

	switch action {
	case "add-local":
		recursive := fs.Bool("recursive", true, "Scan subdirectories too")
		disabled := fs.Bool("disabled", false, "Add the source without enabling it")
		rest, err := parse(fs, common, args[1:], 2, 2)
		if err != nil {
			return err
		}
		return add(ctx, &model.ScanSource{
			Name:    rest[0],
			Kind:    model.SOURCE_KIND_LOCAL,
			Local:   &model.LocalConfig{Path: rest[1], Recursive: *recursive},
			Enabled: !*disabled,
		})
	case "add-ftp":
		port := fs.Int("port", model.DEFAULT_FTP_PORT, "FTP port")
		user := fs.String("user", "anonymous", "FTP username")
		password := fs.String("password", "", "FTP password")
		dir := fs.String("dir", "/", "Remote directory to scan")
		disabled := fs.Bool("disabled", false, "Add the source without enabling it")
		rest, err := parse(fs, common, args[1:], 2, 2)
		if err != nil {
			return err
		}
		return add(ctx, &model.ScanSource{
			Name: rest[0],
			Kind: model.SOURCE_KIND_FTP,
			Ftp: &model.FtpConfig{
				Host:      rest[1],
				Port:      *port,
				Username:  *user,
				Password:  *password,
				RemoteDir: *dir,
			},
			Enabled: !*disabled,
		})
	case "ls":
		asJson := fs.Bool("json", false, "Print sources as JSON")
		enabledOnly := fs.Bool("enabled", false, "Only list enabled sources")
		_, err := parse(fs, common, args[1:], 0, 0)
		if err != nil {
			return err
		}
		return list(ctx, *enabledOnly, *asJson)
	case "enable", "disable":
		rest, err := parse(fs, common, args[1:], 1, 1)
		if err != nil {
			return err
		}
		return setEnabled(ctx, rest[0], action == "enable")
	case "rm":
		force := fs.Bool("force", false, "Tombstone the file records discovered from the source")
		rest, err := parse(fs, common, args[1:], 1, 1)
		if err != nil {
			return err
		}
		return remove(ctx, rest[0], *force)
	case "test":
		asJson := fs.Bool("json", false, "Print diagnostics as JSON")
		rest, err := parse(fs, common, args[1:], 0, 1)
		if err != nil {
			return err
		}
		name := ""
		if len(rest) == 1 {
			name = rest[0]
		}
		return test(ctx, name, *asJson)
	default:
		return fmt.Errorf("no such source command: %s. For more information check 'filepipe help source'", action)
	}
}

func parse(fs *flag.FlagSet, common *env.CommonFlags, args []string, min int, max int) ([]string, error) {
	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	err = env.ArgsOrErr(fs.Args(), min, max, "filepipe help source")
	if err != nil {
		return nil, err
	}
	return fs.Args(), common.Apply(config.New())
}

func add(ctx context.Context, src *model.ScanSource) error {
	db, err := env.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	reg := registry.New(db)
	err = reg.AddSource(ctx, src)
	if err != nil {
		return err
	}
	L.Printf("Source added: %s\n", src)
	L.Printf("Use 'filepipe source test %s' to check it is reachable.\n", src.Name)
	return nil
}

func list(ctx context.Context, enabledOnly bool, asJson bool) error {
	db, err := env.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	sources, err := registry.New(db).ListSources(ctx, enabledOnly)
	if err != nil {
		return err
	}
	if asJson {
		// never print ftp passwords
		for i := range sources {
			if sources[i].Ftp != nil && sources[i].Ftp.Password != "" {
				sources[i].Ftp.Password = "***"
			}
		}
		return env.PrintJson(sources)
	}
	rows := make([][]string, 0, len(sources))
	for _, s := range sources {
		recursive := "-"
		if s.Local != nil {
			recursive = strconv.FormatBool(s.Local.Recursive)
		}
		rows = append(rows, []string{s.Name, string(s.Kind), s.WatchPath(), recursive, env.OnOff(s.Enabled), env.FormatTime(&s.UpdatedAt)})
	}
	env.PrintTable([]string{"NAME", "KIND", "WATCH PATH", "RECURSIVE", "STATE", "UPDATED"}, rows)
	return nil
}

func setEnabled(ctx context.Context, name string, enabled bool) error {
	db, err := env.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	err = registry.New(db).SetSourceEnabled(ctx, name, enabled)
	if err != nil {
		return fmt.Errorf("could not update source %s: %w", name, err)
	}
	L.Printf("Source %s is now %s\n", name, env.OnOff(enabled))
	return nil
}

func remove(ctx context.Context, name string, force bool) error {
	db, err := env.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	refs, err := registry.New(db).DeleteSource(ctx, name, force)
	if err != nil {
		return err
	}
	if refs > 0 {
		L.Printf("Source %s removed, %d file records were tombstoned\n", name, refs)
	} else {
		L.Printf("Source %s removed\n", name)
	}
	return nil
}

func test(ctx context.Context, name string, asJson bool) error {
	e, err := env.Open(ctx, env.MODE_CONTROL)
	if err != nil {
		return err
	}
	defer e.Close(context.WithoutCancel(ctx))

	var diagnostics []scanner.Diagnostic
	if name == "" {
		diagnostics, err = e.Scanner.TestAll(ctx)
		if err != nil {
			return err
		}
	} else {
		src, err := e.Registry.GetSource(ctx, name)
		if err != nil {
			return fmt.Errorf("could not find source %s: %w", name, err)
		}
		diagnostics = append(diagnostics, e.Scanner.TestSource(ctx, src))
	}
	if asJson {
		return env.PrintJson(diagnostics)
	}
	for _, d := range diagnostics {
		state := "OK"
		if !d.Reachable {
			state = "UNREACHABLE"
		}
		L.Printf("%s [%s] %s: %s (%s)\n", d.Source, d.Kind, d.WatchPath, state, L.HumanReadableTime(d.LatencyMs))
		if d.Error != "" {
			L.Printf("  error: %s\n", d.Error)
		}
		for _, entry := range d.Entries {
			L.Printf("  %s\n", entry)
		}
	}
	return nil
}
