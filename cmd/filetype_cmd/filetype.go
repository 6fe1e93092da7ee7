package filetype_cmd

import (
	"context"
	"filepipe/cmd/env"
	"filepipe/config"
	"filepipe/database"
	L "filepipe/logger"
	"filepipe/registry"
	"flag"
	"fmt"
	"strings"
)

type FiletypeCmdEnv struct {
	Action string
	Args   []string
	DB     *database.DB
	Reg    *registry.Registry
}

var filetypeCmdEnv *FiletypeCmdEnv

func Execute(ctx context.Context, args []string) error {
	if len(args) < 1 {
		PrintUsage()
		return nil
	}
	action := args[0]
	fs := flag.NewFlagSet("filetype "+action, flag.ExitOnError)
	fs.Usage = func() {
		PrintUsage()
	}
	common := env.AddCommonFlags(fs)
	description := fs.String("description", "", "Description of the file type (add)")
	disabled := fs.Bool("disabled", false, "Add the rule without enabling it (add)")
	enabledOnly := fs.Bool("enabled", false, "Only list enabled rules (ls)")
	asJson := fs.Bool("json", false, "Print rules as JSON (ls)")

	minArgs, maxArgs := 1, 1
	switch action {
	case "ls":
		minArgs, maxArgs = 0, 0
	case "describe":
		minArgs, maxArgs = 2, -1
	case "add", "enable", "disable", "rm":
	default:
		return fmt.Errorf("no such filetype command: %s. For more information check 'filepipe help filetype'", action)
	}
	err := fs.Parse(args[1:])
	if err != nil {
		return err
	}
	err = env.ArgsOrErr(fs.Args(), minArgs, maxArgs, "filepipe help filetype")
	if err != nil {
		return err
	}
	err = common.Apply(config.New())
	if err != nil {
		return err
	}

	db, err := env.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	filetypeCmdEnv = &FiletypeCmdEnv{Action: action, Args: fs.Args(), DB: db, Reg: registry.New(db)}
	reg := filetypeCmdEnv.Reg
	rest := filetypeCmdEnv.Args

	switch action {
	case "add":
		rule, err := reg.AddFileType(ctx, rest[0], *description, !*disabled)
		if err != nil {
			return err
		}
		L.Printf("File type %s added (%s)\n", rule.Extension, env.OnOff(rule.Enabled))
	case "ls":
		rules, err := reg.ListFileTypes(ctx, *enabledOnly)
		if err != nil {
			return err
		}
		if *asJson {
			return env.PrintJson(rules)
		}
		rows := make([][]string, 0, len(rules))
		for _, r := range rules {
			rows = append(rows, []string{r.Extension, r.Description, env.OnOff(r.Enabled)})
		}
		env.PrintTable([]string{"EXTENSION", "DESCRIPTION", "STATE"}, rows)
	case "enable", "disable":
		err := reg.SetFileTypeEnabled(ctx, rest[0], action == "enable")
		if err != nil {
			return fmt.Errorf("could not update file type %s: %w", rest[0], err)
		}
		L.Printf("File type %s is now %s\n", rest[0], env.OnOff(action == "enable"))
	case "describe":
		err := reg.UpdateFileType(ctx, rest[0], strings.Join(rest[1:], " "))
		if err != nil {
			return fmt.Errorf("could not update file type %s: %w", rest[0], err)
		}
		L.Printf("File type %s updated\n", rest[0])
	case "rm":
		err := reg.RemoveFileType(ctx, rest[0])
		if err != nil {
			return fmt.Errorf("could not remove file type %s: %w", rest[0], err)
		}
		L.Printf("File type %s removed, known files of this type are kept\n", rest[0])
	}
	return nil
}
