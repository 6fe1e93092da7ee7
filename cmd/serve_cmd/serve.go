package serve_cmd

import (
	"context"
	"filepipe/cmd/env"
	"filepipe/config"
	L "filepipe/logger"
	"filepipe/pipeline"
	"flag"
	"fmt"
	"time"
)

type ServeCmdEnv struct {
	StartAll       bool
	StatusInterval time.Duration
}

var serveCmdEnv *ServeCmdEnv

const shutdownTimeout = 30 * time.Second

func Execute(ctx context.Context, args []string) error {
	err := parseFlags(args)
	if err != nil {
		return err
	}

	e, err := env.Open(ctx, env.MODE_SERVE)
	if err != nil {
		return err
	}
	defer func() {
		L.Footer(L.INFO, "")
		L.Info("Shutting down, waiting for in-flight files")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		e.Close(shutdownCtx)
	}()

	_, err = e.Controller.RecoverInterrupted(ctx)
	if err != nil {
		return err
	}
	if serveCmdEnv.StartAll {
		_, err = e.Controller.Control(ctx, pipeline.ACTION_START, "")
	} else {
		err = e.Controller.Reconcile(ctx)
	}
	if err != nil {
		return err
	}
	err = e.Scheduler.Run(ctx)
	if err != nil {
		return err
	}

	status, err := e.Controller.Status(ctx)
	if err != nil {
		return err
	}
	L.Printf("%s", status)
	if !status.Running {
		L.Warn("No processor is enabled. Use 'filepipe pipeline start' to start processing.")
	}

	ticker := time.NewTicker(serveCmdEnv.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := e.Controller.Reconcile(ctx)
			if err != nil {
				L.Error(err)
			}
			err = e.Scheduler.Refresh(ctx)
			if err != nil {
				L.Error(err)
			}
			status, err := e.Controller.Status(ctx)
			if err != nil {
				L.Error(err)
				continue
			}
			L.Footer(L.INFO, footer(status))
		}
	}
}

func footer(s *pipeline.Status) string {
	var processed, success, failed int64
	for _, st := range s.ProcessorStatistics {
		processed += st.Processed
		success += st.Success
		failed += st.Failed
	}
	state := "stopped"
	if s.Running {
		state = "running"
	}
	return fmt.Sprintf("pipeline %s | queue %d | workers %d | processed %d, ok %d, failed %d",
		state, s.QueueSize, s.WorkerCount, processed, success, failed)
}

func parseFlags(args []string) error {
	// serve is long running, so it is more talkative by default
	L.SetLevel(L.INFO)

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	common := env.AddCommonFlags(serveCmd)
	startAll := serveCmd.Bool("start", false, "Start every processor before serving")
	statusInterval := serveCmd.Duration("status-interval", 2*time.Second, "How often desired state and status are refreshed")
	serveCmd.Usage = func() {
		PrintUsage()
	}
	err := serveCmd.Parse(args)
	if err != nil {
		return err
	}
	if len(serveCmd.Args()) > 0 {
		return fmt.Errorf("too many arguments. For more information check 'filepipe help serve'")
	}
	err = common.Apply(config.New())
	if err != nil {
		return err
	}
	if *statusInterval < 100*time.Millisecond {
		return fmt.Errorf("status-interval must be at least 100ms")
	}
	serveCmdEnv = &ServeCmdEnv{
		StartAll:       *startAll,
		StatusInterval: *statusInterval,
	}
	return nil
}
