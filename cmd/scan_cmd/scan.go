package scan_cmd

import (
	"context"
	"filepipe/cmd/env"
	"filepipe/config"
	L "filepipe/logger"
	"filepipe/scanner"
	"flag"
	"fmt"
	"time"
)

type ScanCmdEnv struct {
	Async bool
	Json  bool
}

var scanCmdEnv *ScanCmdEnv

func Execute(ctx context.Context, args []string) error {
	err := parseFlags(args)
	if err != nil {
		return err
	}
	e, err := env.Open(ctx, env.MODE_CONTROL)
	if err != nil {
		return err
	}
	defer e.Close(context.WithoutCancel(ctx))

	var result *scanner.ScanResult
	if scanCmdEnv.Async {
		result, err = scanWithProgress(ctx, e.Scanner)
	} else {
		result, err = e.Scanner.Scan(ctx)
	}
	if err != nil {
		return err
	}
	if scanCmdEnv.Json {
		return env.PrintJson(result)
	}
	L.Printf("Scan: %s\n", result)
	for _, se := range result.SourceErrors {
		L.Printf("  %s: %s\n", se.Source, se.Error)
	}
	if result.New+result.Changed > 0 {
		L.Printf("%d files are waiting, they are processed by 'filepipe serve'.\n", result.New+result.Changed)
	}
	return nil
}

// scanWithProgress runs the scan in the background and renders its progress
// in the footer until it is done.
func scanWithProgress(ctx context.Context, sc *scanner.Scanner) (*scanner.ScanResult, error) {
	err := sc.ScanAsync(ctx)
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		sc.Wait()
		close(done)
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			L.Footer(L.INFO, "")
			p := sc.Progress()
			if p.LastError != "" {
				return nil, fmt.Errorf("scan failed: %s", p.LastError)
			}
			if p.LastResult == nil {
				return nil, fmt.Errorf("scan finished without a result")
			}
			return p.LastResult, nil
		case <-ticker.C:
			p := sc.Progress()
			var pct float64
			if p.SourcesTotal > 0 {
				pct = float64(p.SourcesDone) * 100 / float64(p.SourcesTotal)
			}
			L.Footer(L.INFO, fmt.Sprintf("%s %d/%d sources, %d files seen, %d new",
				L.ProgressBar(pct, 30), p.SourcesDone, p.SourcesTotal, p.Scanned, p.New))
		}
	}
}

func parseFlags(args []string) error {
	scanCmd := flag.NewFlagSet("scan", flag.ExitOnError)
	common := env.AddCommonFlags(scanCmd)
	async := scanCmd.Bool("async", false, "Scan in the background and show progress")
	asJson := scanCmd.Bool("json", false, "Print the result as JSON")
	scanCmd.Usage = func() {
		PrintUsage()
	}
	err := scanCmd.Parse(args)
	if err != nil {
		return err
	}
	err = env.ArgsOrErr(scanCmd.Args(), 0, 0, "filepipe help scan")
	if err != nil {
		return err
	}
	err = common.Apply(config.New())
	if err != nil {
		return err
	}
	scanCmdEnv = &ScanCmdEnv{Async: *async, Json: *asJson}
	return nil
}
