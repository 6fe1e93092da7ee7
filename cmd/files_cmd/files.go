package files_cmd

import (
	"context"
	"filepipe/cmd/env"
	"filepipe/config"
	"filepipe/database/model"
	"filepipe/database/repository"
	L "filepipe/logger"
	"filepipe/pipeline"
	"flag"
	"fmt"
	"sort"
	"strconv"
)

type lsFlags struct {
	status     *string
	source     *string
	sourceType *string
	name       *string
	limit      *int
	offset     *int
}

func Execute(ctx context.Context, args []string) error {
	if len(args) < 1 {
		PrintUsage()
		return nil
	}
	action := args[0]
	fs := flag.NewFlagSet("files "+action, flag.ExitOnError)
	fs.Usage = func() {
		PrintUsage()
	}
	common := env.AddCommonFlags(fs)
	asJson := fs.Bool("json", false, "Print as JSON")
	ls := lsFlags{
		status:     fs.String("status", "", "Only list files with this status (ls)"),
		source:     fs.String("source", "", "Only list files of this source (ls)"),
		sourceType: fs.String("source-type", "", "Only list files of this source type: local, ftp or stt (ls)"),
		name:       fs.String("name", "", "Only list files whose name contains this text (ls)"),
		limit:      fs.Int("limit", 50, "Page size (ls)"),
		offset:     fs.Int("offset", 0, "Files to skip (ls)"),
	}
	allFailed := fs.Bool("failed", false, "Reprocess every failed file (reprocess)")

	minArgs, maxArgs := 0, 0
	switch action {
	case "ls", "stats":
	case "show":
		minArgs, maxArgs = 1, 1
	case "reprocess":
		minArgs, maxArgs = 0, -1
	case "rm":
		minArgs, maxArgs = 1, -1
	default:
		return fmt.Errorf("no such files command: %s. For more information check 'filepipe help files'", action)
	}
	err := fs.Parse(args[1:])
	if err != nil {
		return err
	}
	err = env.ArgsOrErr(fs.Args(), minArgs, maxArgs, "filepipe help files")
	if err != nil {
		return err
	}
	err = common.Apply(config.New())
	if err != nil {
		return err
	}
	rest := fs.Args()

	e, err := env.Open(ctx, env.MODE_CONTROL)
	if err != nil {
		return err
	}
	defer e.Close(context.WithoutCancel(ctx))
	c := e.Controller

	switch action {
	case "ls":
		filter, err := ls.filter()
		if err != nil {
			return err
		}
		page, err := c.ListFiles(ctx, filter)
		if err != nil {
			return err
		}
		if *asJson {
			return env.PrintJson(page)
		}
		printPage(page, filter)
	case "show":
		detail, err := c.GetFile(ctx, rest[0])
		if err != nil {
			return fmt.Errorf("could not find file %s: %w", rest[0], err)
		}
		if *asJson {
			return env.PrintJson(detail)
		}
		printDetail(detail)
	case "stats":
		stats, err := c.FileStatistics(ctx)
		if err != nil {
			return err
		}
		if *asJson {
			return env.PrintJson(stats)
		}
		printStatistics(stats)
	case "reprocess":
		ids := rest
		if *allFailed {
			failed, err := failedIds(ctx, c)
			if err != nil {
				return err
			}
			ids = append(ids, failed...)
		}
		if len(ids) == 0 {
			return fmt.Errorf("no file ids given. For more information check 'filepipe help files'")
		}
		result, err := c.Reprocess(ctx, ids)
		if err != nil {
			return err
		}
		if *asJson {
			return env.PrintJson(result)
		}
		L.Printf("Reprocessed %d of %d files\n", result.SuccessCount, result.TotalCount)
		for _, f := range result.FailedFiles {
			L.Printf("  %s: %s\n", f.FileId, f.Error)
		}
	case "rm":
		n, err := c.BatchDelete(ctx, rest)
		if err != nil {
			return err
		}
		L.Printf("Deleted %d of %d file records\n", n, len(rest))
	}
	return nil
}

func (f lsFlags) filter() (repository.FileRecordFilter, error) {
	filter := repository.FileRecordFilter{
		SourceId: *f.source,
		NameLike: *f.name,
		Limit:    *f.limit,
		Offset:   *f.offset,
	}
	if *f.status != "" {
		status, err := model.ParseFileStatus(*f.status)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	switch model.SourceType(*f.sourceType) {
	case "":
	case model.SOURCE_TYPE_LOCAL, model.SOURCE_TYPE_FTP, model.SOURCE_TYPE_STT:
		filter.SourceType = model.SourceType(*f.sourceType)
	default:
		return filter, fmt.Errorf("unknown source type: %s. supported: local, ftp, stt", *f.sourceType)
	}
	return filter, nil
}

func failedIds(ctx context.Context, c *pipeline.Controller) ([]string, error) {
	var ids []string
	filter := repository.FileRecordFilter{Status: model.FILE_STATUS_FAILED, Limit: 500}
	for {
		page, err := c.ListFiles(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, f := range page.Files {
			ids = append(ids, f.FileId)
		}
		filter.Offset += len(page.Files)
		if len(page.Files) == 0 || int64(filter.Offset) >= page.Total {
			return ids, nil
		}
	}
}

func printPage(page *pipeline.FilePage, filter repository.FileRecordFilter) {
	rows := make([][]string, 0, len(page.Files))
	for _, f := range page.Files {
		rows = append(rows, []string{
			f.FileId,
			L.TruncateString(f.FileName, 40, L.TRUNC_CENTER),
			string(f.SourceType),
			f.SourceId,
			string(f.Status),
			L.HumanReadableBytes(uint64(f.Size), 1),
			L.TruncateString(f.ErrorMessage, 40, L.TRUNC_RIGHT),
		})
	}
	env.PrintTable([]string{"FILE ID", "NAME", "TYPE", "SOURCE", "STATUS", "SIZE", "ERROR"}, rows)
	L.Printf("Showing %d-%d of %d\n", min(int64(filter.Offset+1), page.Total), int64(filter.Offset)+int64(len(page.Files)), page.Total)
}

func printDetail(d *pipeline.FileDetail) {
	r := d.Record
	L.Printf("%s\n", &r)
	L.Printf("  path:        %s\n", r.Path)
	L.Printf("  source:      %s (%s)\n", r.SourceId, r.SourceType)
	if r.ParentFileId != "" {
		L.Printf("  derived from %s\n", r.ParentFileId)
	}
	L.Printf("  size:        %s\n", L.HumanReadableBytes(uint64(r.Size), 2))
	L.Printf("  processors:  %v\n", r.Processors)
	L.Printf("  retries:     %d\n", r.RetryCount)
	if r.ErrorMessage != "" {
		L.Printf("  error:       %s\n", r.ErrorMessage)
	}
	if r.SourceTombstoned {
		L.Printf("  the source of this file was removed\n")
	}
	rows := make([][]string, 0, len(d.Events))
	for _, ev := range d.Events {
		from := string(ev.FromStatus)
		if from == "" {
			from = "-"
		}
		rows = append(rows, []string{env.FormatTime(&ev.At), from, string(ev.ToStatus), ev.Processor, ev.Message})
	}
	env.PrintTable([]string{"AT", "FROM", "TO", "PROCESSOR", "MESSAGE"}, rows)
}

func printStatistics(s *pipeline.FileStatistics) {
	L.Printf("Total: %d, queued: %d\n", s.Total, s.QueueSize)
	rows := [][]string{}
	for _, st := range model.AllFileStatuses {
		rows = append(rows, []string{string(st), strconv.FormatInt(s.ByStatus[st], 10)})
	}
	env.PrintTable([]string{"STATUS", "FILES"}, rows)

	types := make([]string, 0, len(s.BySourceType))
	for t := range s.BySourceType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	rows = [][]string{}
	for _, t := range types {
		rows = append(rows, []string{t, strconv.FormatInt(s.BySourceType[model.SourceType(t)], 10)})
	}
	env.PrintTable([]string{"SOURCE TYPE", "FILES"}, rows)
}
