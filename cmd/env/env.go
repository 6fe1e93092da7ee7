package env

import (
	"context"
	"errors"
	"filepipe/artifact"
	"filepipe/config"
	"filepipe/database"
	"filepipe/knowledge"
	L "filepipe/logger"
	"filepipe/pipeline"
	"filepipe/processor"
	"filepipe/registry"
	"filepipe/scanner"
	"filepipe/scheduler"
	"filepipe/stt"
	"fmt"
	"path/filepath"
	"time"
)

type Mode int

const (
	// MODE_CONTROL records pipeline state for a serving process to apply
	MODE_CONTROL Mode = iota
	// MODE_SERVE runs the processors in this process
	MODE_SERVE
)

// Env holds everything a subcommand needs, wired from the parsed config.
type Env struct {
	DB         *database.DB
	Registry   *registry.Registry
	Processors *processor.Registry
	Controller *pipeline.Controller
	Scanner    *scanner.Scanner
	Scheduler  *scheduler.Scheduler
	Artifacts  artifact.Store
}

// OpenDB opens and migrates the database named by the parsed config.
func OpenDB(ctx context.Context) (*database.DB, error) {
	dbPath, err := database.GetDBFilePath(ctx)
	if err != nil {
		return nil, err
	}
	db, err := database.NewDB(dbPath)
	if err != nil {
		return nil, err
	}
	L.Debug(fmt.Sprintf("Found database at: %s", dbPath))
	err = db.Init(ctx)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	return db, nil
}

func Open(ctx context.Context, mode Mode) (*Env, error) {
	db, err := OpenDB(ctx)
	if err != nil {
		return nil, err
	}
	e, err := wire(ctx, db, mode)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	return e, nil
}

func wire(ctx context.Context, db *database.DB, mode Mode) (*Env, error) {
	cfg := config.Get()
	e := &Env{DB: db, Registry: registry.New(db)}
	e.Scanner = scanner.New(db, e.Registry, nil)

	// deleting stt records removes their transcripts in any mode
	artifactsCfg := cfg.Artifacts
	if artifactsCfg.Backend == config.AB_LOCAL && artifactsCfg.LocalDir == "" && cfg.StagingDir != "" {
		artifactsCfg.LocalDir = filepath.Join(cfg.StagingDir, "artifacts")
	}
	store, err := artifact.New(ctx, &artifactsCfg)
	if err != nil {
		if mode == MODE_SERVE {
			return nil, fmt.Errorf("could not open artifact store: %w", err)
		}
		L.Warn(fmt.Sprintf("Transcripts of deleted files will be kept: %v", err))
	} else {
		e.Artifacts = store
	}

	// only a serving process touches transcriber and knowledge base
	var transcriber stt.Transcriber = unavailableTranscriber{err: errors.New("stt: not available outside serve")}
	var ingester knowledge.Ingester = unavailableIngester{err: errors.New("knowledge: not available outside serve")}
	if mode == MODE_SERVE {
		t, err := stt.NewOpenAITranscriber(&cfg.Transcriber)
		if err != nil {
			L.Warn(fmt.Sprintf("Audio files will fail to transcribe: %v", err))
			transcriber = unavailableTranscriber{err: err}
		} else {
			transcriber = t
		}
		i, err := knowledge.NewHTTPIngester(&cfg.Knowledge, cfg.Timeouts.Ingest())
		if err != nil {
			L.Warn(fmt.Sprintf("Text files will fail to ingest: %v", err))
			ingester = unavailableIngester{err: err}
		} else {
			ingester = i
		}
	}

	e.Processors = processor.NewRegistry()
	err = e.Processors.Register(processor.NewAudioToText(transcriber, e.Artifacts, cfg.Transcriber, cfg.Timeouts.Transcribe(), processor.LogSpeakerSink{}))
	if err != nil {
		return nil, err
	}
	err = e.Processors.Register(processor.NewKnowledge(e.Registry, ingester, cfg.Timeouts.Ingest()))
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Runner: processor.RunnerOptions{
			Workers:      cfg.Pipeline.WorkersPerProcessor,
			PollInterval: cfg.PollInterval(),
			BatchSize:    cfg.Pipeline.BatchSize,
		},
		Artifacts: e.Artifacts,
	}
	if mode == MODE_SERVE {
		opts.Fetcher = processor.NewContentFetcher(e.Registry, e.Artifacts, nil, cfg.Timeouts.FtpConnect(), cfg.Timeouts.Fetch())
	}
	e.Controller, err = pipeline.New(ctx, db, e.Registry, e.Processors, opts)
	if err != nil {
		return nil, err
	}
	if mode == MODE_SERVE {
		e.Scanner.OnDiscovered(e.Controller.Wake)
	}

	e.Scheduler = scheduler.New(db)
	interval := time.Duration(cfg.Scheduler.ScanIntervalSeconds) * time.Second
	err = e.Scheduler.Register(scheduler.FileScanTask(e.Scanner, interval))
	if err != nil {
		return nil, err
	}
	err = e.Scheduler.Sync(ctx)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Close stops whatever is still running and closes the database.
func (e *Env) Close(ctx context.Context) {
	e.Scanner.Wait()
	err := e.Scheduler.Shutdown(ctx)
	if err != nil {
		L.Warn(err)
	}
	err = e.Controller.Shutdown(ctx)
	if err != nil {
		L.Warn(err)
	}
	err = e.DB.Close(ctx)
	if err != nil {
		L.Warn(err)
	}
}

type unavailableTranscriber struct {
	err error
}

func (u unavailableTranscriber) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcription, error) {
	return nil, u.err
}

type unavailableIngester struct {
	err error
}

func (u unavailableIngester) Ingest(ctx context.Context, doc knowledge.Document) error {
	return u.err
}
