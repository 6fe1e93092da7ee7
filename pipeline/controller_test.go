package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"filepipe/artifact"
	"filepipe/config"
	"filepipe/database"
	"filepipe/database/model"
	"filepipe/database/repository"
	"filepipe/knowledge"
	"filepipe/processor"
	"filepipe/registry"
	"filepipe/scanner"
	"filepipe/stt"
	"filepipe/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcription, error) {
	return &stt.Transcription{Text: "transcript of " + req.FileName, Duration: 3}, nil
}

type fakeIngester struct {
	mu   sync.Mutex
	docs []knowledge.Document
}

func (f *fakeIngester) Ingest(ctx context.Context, doc knowledge.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeIngester) Documents() []knowledge.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]knowledge.Document{}, f.docs...)
}

type fixture struct {
	db         *database.DB
	registry   *registry.Registry
	records    repository.FileRecordRepository
	processors *processor.Registry
	fetcher    processor.Fetcher
	artifacts  artifact.Store
	ingester   *fakeIngester
	dial       transport.Dialer
	transport  *transport.MockTransport
}

var runnerOptions = processor.RunnerOptions{Workers: 2, PollInterval: 20 * time.Millisecond, BatchSize: 16}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Init(ctx))
	t.Cleanup(func() { db.Close(ctx) })

	store, err := artifact.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	reg := registry.New(db)
	tr := new(transport.MockTransport)
	dial := func(ctx context.Context, src *model.ScanSource, _ time.Duration) (transport.Transport, error) {
		return tr, nil
	}
	ing := &fakeIngester{}
	procs := processor.NewRegistry()
	require.NoError(t, procs.Register(processor.NewAudioToText(fakeTranscriber{}, store, config.Transcriber{}, time.Minute, nil)))
	require.NoError(t, procs.Register(processor.NewKnowledge(reg, ing, time.Minute)))

	return &fixture{
		db:         db,
		registry:   reg,
		records:    repository.NewFileRecordRepository(db),
		processors: procs,
		fetcher:    processor.NewContentFetcher(reg, store, dial, time.Second, time.Second),
		artifacts:  store,
		ingester:   ing,
		dial:       dial,
		transport:  tr,
	}
}

func (f *fixture) controller(t *testing.T, local bool) *Controller {
	t.Helper()
	opts := Options{Runner: runnerOptions, Artifacts: f.artifacts}
	if local {
		opts.Fetcher = f.fetcher
	}
	c, err := New(context.Background(), f.db, f.registry, f.processors, opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Shutdown(ctx)
	})
	return c
}

func (f *fixture) insert(t *testing.T, name string, status model.FileStatus) *model.FileRecord {
	t.Helper()
	rec := &model.FileRecord{
		FileId:     model.NewFileId("local-docs", "/docs/"+name),
		FileName:   name,
		Path:       "/docs/" + name,
		SourceType: model.SOURCE_TYPE_LOCAL,
		SourceId:   "local-docs",
		FileType:   ".bin",
		Status:     status,
	}
	if status == model.FILE_STATUS_FAILED {
		rec.ErrorMessage = "boom"
	}
	require.NoError(t, f.records.Insert(context.Background(), rec))
	return rec
}

func waitForStatus(t *testing.T, records repository.FileRecordRepository, fileId string, status model.FileStatus) *model.FileRecord {
	t.Helper()
	var rec *model.FileRecord
	require.Eventually(t, func() bool {
		r, err := records.Get(context.Background(), fileId)
		if err != nil {
			return false
		}
		rec = r
		return r.Status == status
	}, 5*time.Second, 10*time.Millisecond, "waiting for %s to become %s", fileId, status)
	return rec
}

func TestFtpAudioScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.registry.AddSource(ctx, &model.ScanSource{
		Name:    "ftp-audio",
		Kind:    model.SOURCE_KIND_FTP,
		Enabled: true,
		Ftp:     &model.FtpConfig{Host: "10.0.0.5", RemoteDir: "/rec"},
	}))
	mtime := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	f.transport.On("List", mock.Anything, "/rec").Return([]transport.Entry{
		{Path: "/rec/call_001.wav", Name: "call_001.wav", Size: 4, ModTime: mtime},
	}, nil)
	f.transport.On("Fetch", mock.Anything, "/rec/call_001.wav").Return([]byte("RIFF"), nil)
	f.transport.On("Close").Return(nil)

	c := f.controller(t, true)
	sc := scanner.New(f.db, f.registry, f.dial)
	sc.OnDiscovered(c.Wake)

	result, err := sc.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.New)
	audioId := model.NewFileId("ftp-audio", "/rec/call_001.wav")
	audio, err := f.records.Get(ctx, audioId)
	require.NoError(t, err)
	assert.Equal(t, model.FILE_STATUS_WAIT, audio.Status)

	res, err := c.Control(ctx, ACTION_START, "")
	require.NoError(t, err)
	assert.Equal(t, "running", res.Status)
	assert.Equal(t, map[string]string{
		processor.AUDIO_TO_TEXT:       "started",
		processor.KNOWLEDGE_PROCESSOR: "started",
	}, res.Results)

	audio = waitForStatus(t, f.records, audioId, model.FILE_STATUS_SUCCESS)
	assert.Equal(t, []string{processor.AUDIO_TO_TEXT}, audio.Processors)

	page, err := c.ListFiles(ctx, repository.FileRecordFilter{SourceType: model.SOURCE_TYPE_STT})
	require.NoError(t, err)
	require.Len(t, page.Files, 1)
	transcriptId := page.Files[0].FileId
	transcript := waitForStatus(t, f.records, transcriptId, model.FILE_STATUS_FAILED)
	assert.Equal(t, "no_mapping", transcript.ErrorMessage)
	assert.Equal(t, audioId, transcript.ParentFileId)
	assert.Equal(t, "ftp-audio", transcript.SourceId)
	assert.Empty(t, f.ingester.Documents())

	require.NoError(t, f.registry.SaveMappings(ctx, []model.KnowledgeBaseMapping{
		{ScanConfigName: "ftp-audio", KnowledgeBaseId: "kb-calls", KnowledgeBaseName: "Calls", Enabled: true},
	}))
	rp, err := c.Reprocess(ctx, []string{transcriptId})
	require.NoError(t, err)
	assert.Equal(t, 1, rp.SuccessCount)

	transcript = waitForStatus(t, f.records, transcriptId, model.FILE_STATUS_SUCCESS)
	assert.Equal(t, []string{processor.AUDIO_TO_TEXT, processor.KNOWLEDGE_PROCESSOR}, transcript.Processors)
	assert.Empty(t, transcript.ErrorMessage)
	assert.Equal(t, int64(1), transcript.RetryCount)

	docs := f.ingester.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "kb-calls", docs[0].KnowledgeBaseID)
	assert.Equal(t, "transcript of call_001.wav", string(docs[0].Content))

	detail, err := c.GetFile(ctx, transcriptId)
	require.NoError(t, err)
	var path []model.FileStatus
	for _, e := range detail.Events {
		path = append(path, e.ToStatus)
	}
	assert.Equal(t, []model.FileStatus{
		model.FILE_STATUS_WAIT,
		model.FILE_STATUS_PROCESSING,
		model.FILE_STATUS_FAILED,
		model.FILE_STATUS_RETRYING,
		model.FILE_STATUS_WAIT,
		model.FILE_STATUS_PROCESSING,
		model.FILE_STATUS_SUCCESS,
	}, path)

	// the unchanged audio file is not picked up again
	result, err = sc.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.New)
	assert.Equal(t, 0, result.Changed)

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, int64(0), status.QueueSize)
	assert.Equal(t, 4, status.WorkerCount)
	assert.Equal(t, []string{"ftp://10.0.0.5:21/rec"}, status.WatchPaths)
	assert.Equal(t, int64(1), status.ProcessorStatistics[processor.AUDIO_TO_TEXT].Success)
	assert.Equal(t, int64(1), status.ProcessorStatistics[processor.KNOWLEDGE_PROCESSOR].Success)
	assert.Equal(t, int64(1), status.ProcessorStatistics[processor.KNOWLEDGE_PROCESSOR].Failed)
}

func TestStatisticsResetOnStart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.controller(t, true)
	doc := &model.FileRecord{
		FileId:     "doc-1",
		FileName:   "notes.txt",
		Path:       "/docs/notes.txt",
		SourceType: model.SOURCE_TYPE_LOCAL,
		SourceId:   "nowhere",
		FileType:   ".txt",
		Status:     model.FILE_STATUS_WAIT,
	}
	require.NoError(t, f.records.Insert(ctx, doc))

	_, err := c.Control(ctx, ACTION_START, processor.KNOWLEDGE_PROCESSOR)
	require.NoError(t, err)
	waitForStatus(t, f.records, doc.FileId, model.FILE_STATUS_FAILED)
	require.Eventually(t, func() bool {
		s, err := c.Status(ctx)
		return err == nil && s.ProcessorStatistics[processor.KNOWLEDGE_PROCESSOR].Failed == 1
	}, 5*time.Second, 10*time.Millisecond)

	res, err := c.Control(ctx, ACTION_STOP, "")
	require.NoError(t, err)
	assert.Equal(t, "stopped", res.Status)
	state, err := repository.NewProcessorRepository(f.db).Get(ctx, processor.KNOWLEDGE_PROCESSOR)
	require.NoError(t, err)
	assert.False(t, state.Enabled)
	assert.False(t, state.Consuming)
	assert.Equal(t, int64(1), state.Stats.Failed)

	_, err = c.Control(ctx, ACTION_START, processor.KNOWLEDGE_PROCESSOR)
	require.NoError(t, err)
	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ProcessorStats{}, status.ProcessorStatistics[processor.KNOWLEDGE_PROCESSOR])
}

func TestControl(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.controller(t, true)
	processors := repository.NewProcessorRepository(f.db)

	t.Run("unknown processor", func(t *testing.T) {
		_, err := c.Control(ctx, ACTION_START, "ocr")
		assert.ErrorIs(t, err, processor.ErrUnknownProcessor)
	})

	t.Run("start is idempotent", func(t *testing.T) {
		_, err := c.Control(ctx, ACTION_START, processor.AUDIO_TO_TEXT)
		require.NoError(t, err)
		res, err := c.Control(ctx, ACTION_START, processor.AUDIO_TO_TEXT)
		require.NoError(t, err)
		assert.Equal(t, "started", res.Results[processor.AUDIO_TO_TEXT])
		r, err := c.Runner(processor.AUDIO_TO_TEXT)
		require.NoError(t, err)
		assert.True(t, r.IsConsuming())
		state, err := processors.Get(ctx, processor.AUDIO_TO_TEXT)
		require.NoError(t, err)
		assert.True(t, state.Enabled)
		assert.True(t, state.Consuming)
	})

	t.Run("restart keeps it running", func(t *testing.T) {
		res, err := c.Control(ctx, ACTION_RESTART, processor.AUDIO_TO_TEXT)
		require.NoError(t, err)
		assert.Equal(t, "restarted", res.Results[processor.AUDIO_TO_TEXT])
		assert.Equal(t, "running", res.Status)
	})

	t.Run("stop all", func(t *testing.T) {
		res, err := c.Control(ctx, ACTION_STOP, "")
		require.NoError(t, err)
		assert.Equal(t, "stopped", res.Status)
		status, err := c.Status(ctx)
		require.NoError(t, err)
		assert.False(t, status.Running)
		assert.Equal(t, 0, status.WorkerCount)
		running, err := repository.NewSettingRepository(f.db).Get(ctx, model.SETTING_PIPELINE_RUNNING)
		require.NoError(t, err)
		assert.Equal(t, "false", running)
	})
}

func TestReconcileAppliesDesiredState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	serving := f.controller(t, true)
	cli := f.controller(t, false)
	assert.False(t, cli.IsLocal())

	_, err := cli.Control(ctx, ACTION_START, processor.KNOWLEDGE_PROCESSOR)
	require.NoError(t, err)
	status, err := cli.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Running)

	health := serving.Health(ctx)
	assert.Equal(t, WARNING, health.OverallStatus)
	assert.Equal(t, HEALTHY, health.Components["database"].Status)

	require.NoError(t, serving.Reconcile(ctx))
	r, err := serving.Runner(processor.KNOWLEDGE_PROCESSOR)
	require.NoError(t, err)
	assert.True(t, r.IsConsuming())
	a2t, err := serving.Runner(processor.AUDIO_TO_TEXT)
	require.NoError(t, err)
	assert.False(t, a2t.IsConsuming())
	assert.Equal(t, HEALTHY, serving.Health(ctx).OverallStatus)

	status, err = cli.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, runnerOptions.Workers, status.WorkerCount)

	_, err = cli.Control(ctx, ACTION_STOP, "")
	require.NoError(t, err)
	require.NoError(t, serving.Reconcile(ctx))
	assert.False(t, r.IsConsuming())
}

func TestReprocessReportsEachFile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.controller(t, true)
	failed := f.insert(t, "failed.bin", model.FILE_STATUS_FAILED)
	waiting := f.insert(t, "waiting.bin", model.FILE_STATUS_WAIT)
	done := f.insert(t, "done.bin", model.FILE_STATUS_SUCCESS)

	res, err := c.Reprocess(ctx, []string{failed.FileId, done.FileId, "missing", waiting.FileId})
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalCount)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, []string{failed.FileId, waiting.FileId}, res.ReprocessedFiles)
	assert.Equal(t, []FailedFile{
		{FileId: done.FileId, Error: "not_eligible"},
		{FileId: "missing", Error: "not_found"},
	}, res.FailedFiles)

	got, err := f.records.Get(ctx, failed.FileId)
	require.NoError(t, err)
	assert.Equal(t, model.FILE_STATUS_WAIT, got.Status)
	assert.Empty(t, got.ErrorMessage)
	assert.Equal(t, int64(1), got.RetryCount)

	got, err = f.records.Get(ctx, done.FileId)
	require.NoError(t, err)
	assert.Equal(t, model.FILE_STATUS_SUCCESS, got.Status)
}

func TestRecoverInterrupted(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	processing := f.insert(t, "processing.bin", model.FILE_STATUS_PROCESSING)
	downloading := f.insert(t, "downloading.bin", model.FILE_STATUS_DOWNLOADING)
	waiting := f.insert(t, "waiting.bin", model.FILE_STATUS_WAIT)

	t.Run("a control only process leaves records alone", func(t *testing.T) {
		n, err := f.controller(t, false).RecoverInterrupted(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	c := f.controller(t, true)
	n, err := c.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, id := range []string{processing.FileId, downloading.FileId} {
		got, err := f.records.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.FILE_STATUS_FAILED, got.Status)
		assert.Equal(t, INTERRUPTED, got.ErrorMessage)
	}
	got, err := f.records.Get(ctx, waiting.FileId)
	require.NoError(t, err)
	assert.Equal(t, model.FILE_STATUS_WAIT, got.Status)

	res, err := c.Reprocess(ctx, []string{processing.FileId})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
}

func TestRecordsOfDeletedSourceLeaveTheQueue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.controller(t, true)
	require.NoError(t, f.registry.AddSource(ctx, &model.ScanSource{
		Name:    "local-docs",
		Kind:    model.SOURCE_KIND_LOCAL,
		Local:   &model.LocalConfig{Path: t.TempDir()},
		Enabled: true,
	}))
	failed := f.insert(t, "failed.bin", model.FILE_STATUS_FAILED)
	f.insert(t, "waiting.bin", model.FILE_STATUS_WAIT)
	f.insert(t, "processing.bin", model.FILE_STATUS_PROCESSING)

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), status.QueueSize)

	refs, err := f.registry.DeleteSource(ctx, "local-docs", true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), refs)

	res, err := c.Reprocess(ctx, []string{failed.FileId})
	require.NoError(t, err)
	assert.Zero(t, res.SuccessCount)
	assert.Equal(t, []FailedFile{{FileId: failed.FileId, Error: "source_deleted"}}, res.FailedFiles)
	got, err := f.records.Get(ctx, failed.FileId)
	require.NoError(t, err)
	assert.Equal(t, model.FILE_STATUS_FAILED, got.Status)

	// the waiting record can never be claimed, the processing one still finishes
	status, err = c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.QueueSize)
	stats, err := c.FileStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.QueueSize)
	assert.Equal(t, int64(3), stats.Total)
}

func TestBatchDeleteAndStatistics(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.controller(t, true)
	a := f.insert(t, "a.bin", model.FILE_STATUS_WAIT)
	b := f.insert(t, "b.bin", model.FILE_STATUS_PROCESSING)
	f.insert(t, "c.bin", model.FILE_STATUS_FAILED)

	stats, err := c.FileStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.QueueSize)
	assert.Equal(t, int64(1), stats.ByStatus[model.FILE_STATUS_FAILED])
	assert.Equal(t, int64(3), stats.BySourceType[model.SOURCE_TYPE_LOCAL])

	n, err := c.BatchDelete(ctx, []string{a.FileId, b.FileId, "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page, err := c.ListFiles(ctx, repository.FileRecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	_, err = c.GetFile(ctx, a.FileId)
	assert.ErrorIs(t, err, database.ErrDoesNotExist)
}

func TestBatchDeleteRemovesTranscripts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.controller(t, false)
	audio := f.insert(t, "call.wav", model.FILE_STATUS_SUCCESS)

	key := processor.TranscriptKey(audio.Stem())
	require.NoError(t, f.artifacts.Put(ctx, key, []byte("hello"), "text/plain"))
	transcript := &model.FileRecord{
		FileId:     model.NewFileId("local-docs", key),
		FileName:   "call_transcript.txt",
		Path:       key,
		SourceType: model.SOURCE_TYPE_STT,
		SourceId:   "local-docs",
		FileType:   ".txt",
		Status:     model.FILE_STATUS_SUCCESS,
	}
	require.NoError(t, f.records.Insert(ctx, transcript))

	t.Run("keeps the transcript of a remaining record", func(t *testing.T) {
		n, err := c.BatchDelete(ctx, []string{audio.FileId})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		data, err := f.artifacts.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("removes the transcript with its record", func(t *testing.T) {
		n, err := c.BatchDelete(ctx, []string{transcript.FileId})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		_, err = f.artifacts.Get(ctx, key)
		assert.ErrorIs(t, err, artifact.ErrNotFound)
	})

	t.Run("tolerates a transcript that is already gone", func(t *testing.T) {
		require.NoError(t, f.records.Insert(ctx, transcript))
		n, err := c.BatchDelete(ctx, []string{transcript.FileId})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Restart ")
	require.NoError(t, err)
	assert.Equal(t, ACTION_RESTART, a)
	_, err = ParseAction("pause")
	assert.Error(t, err)
}
