package mapping_cmd

import (
	"context"
	"encoding/json"
	"filepipe/cmd/env"
	"filepipe/config"
	"filepipe/database/model"
	"filepipe/file_io"
	L "filepipe/logger"
	"filepipe/registry"
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
	fs := flag.NewFlagSet("mapping "+action, flag.ExitOnError)
	fs.Usage = func() {
		PrintUsage()
	}
	common := env.AddCommonFlags(fs)
	kbName := fs.String("name", "", "Display name of the knowledge base (set)")
	disabled := fs.Bool("disabled", false, "Save the mapping without enabling it (set)")
	asJson := fs.Bool("json", false, "Print mappings as JSON (ls)")

	minArgs, maxArgs := 1, 1
	switch action {
	case "set":
		minArgs, maxArgs = 2, 2
	case "ls":
		minArgs, maxArgs = 0, 0
	case "import", "rm":
	default:
		return fmt.Errorf("no such mapping command: %s. For more information check 'filepipe help mapping'", action)
	}
	err := fs.Parse(args[1:])
	if err != nil {
		return err
	}
	err = env.ArgsOrErr(fs.Args(), minArgs, maxArgs, "filepipe help mapping")
	if err != nil {
		return err
	}
	err = common.Apply(config.New())
	if err != nil {
		return err
	}
	rest := fs.Args()

	db, err := env.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	reg := registry.New(db)

	switch action {
	case "set":
		m := model.KnowledgeBaseMapping{
			ScanConfigName:    rest[0],
			KnowledgeBaseId:   rest[1],
			KnowledgeBaseName: *kbName,
			Enabled:           !*disabled,
		}
		return save(ctx, reg, []model.KnowledgeBaseMapping{m})
	case "import":
		mappings, err := readMappings(ctx, rest[0])
		if err != nil {
			return err
		}
		return save(ctx, reg, mappings)
	case "ls":
		mappings, err := reg.ListMappings(ctx)
		if err != nil {
			return err
		}
		if *asJson {
			return env.PrintJson(mappings)
		}
		rows := make([][]string, 0, len(mappings))
		for _, m := range mappings {
			rows = append(rows, []string{strconv.FormatInt(m.Id, 10), m.ScanConfigName, m.KnowledgeBaseId, m.KnowledgeBaseName, env.OnOff(m.Enabled)})
		}
		env.PrintTable([]string{"ID", "SOURCE", "KNOWLEDGE BASE", "NAME", "STATE"}, rows)
	case "rm":
		id, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("mapping id must be a number: %w", err)
		}
		err = reg.DeleteMapping(ctx, id)
		if err != nil {
			return fmt.Errorf("could not remove mapping %d: %w", id, err)
		}
		L.Printf("Mapping %d removed\n", id)
	}
	return nil
}

// save writes mappings in one go. A mapping for a source that is already
// mapped replaces the existing one.
func save(ctx context.Context, reg *registry.Registry, mappings []model.KnowledgeBaseMapping) error {
	existing, err := reg.ListMappings(ctx)
	if err != nil {
		return err
	}
	ids := map[string]int64{}
	for _, m := range existing {
		ids[m.ScanConfigName] = m.Id
	}
	for i := range mappings {
		if mappings[i].Id == 0 {
			mappings[i].Id = ids[mappings[i].ScanConfigName]
		}
	}
	err = reg.SaveMappings(ctx, mappings)
	if err != nil {
		return fmt.Errorf("no mapping was saved: %w", err)
	}
	for _, m := range mappings {
		L.Printf("%s -> %s (%s)\n", m.ScanConfigName, m.KnowledgeBaseId, env.OnOff(m.Enabled))
	}
	return nil
}

func readMappings(ctx context.Context, path string) ([]model.KnowledgeBaseMapping, error) {
	path, err := env.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	data, err := file_io.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	var mappings []model.KnowledgeBaseMapping
	err = json.Unmarshal(data, &mappings)
	if err != nil {
		return nil, fmt.Errorf("malformed mappings file %s: %w", path, err)
	}
	return mappings, nil
}
