package processor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"filepipe/artifact"
	"filepipe/config"
	"filepipe/database"
	"filepipe/database/model"
	"filepipe/knowledge"
	"filepipe/stt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	mu       sync.Mutex
	requests []stt.Request
	result   *stt.Transcription
	err      error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeIngester struct {
	mu   sync.Mutex
	docs []knowledge.Document
	err  error
}

func (f *fakeIngester) Ingest(ctx context.Context, doc knowledge.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeIngester) Documents() []knowledge.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]knowledge.Document{}, f.docs...)
}

type fakeMappings map[string]*model.KnowledgeBaseMapping

func (f fakeMappings) GetMappingForSource(ctx context.Context, name string) (*model.KnowledgeBaseMapping, error) {
	m, ok := f[name]
	if !ok || !m.Enabled {
		return nil, database.ErrDoesNotExist
	}
	return m, nil
}

type recordingSink struct {
	events []SpeakerEvent
}

func (s *recordingSink) SpeakerRegistered(ctx context.Context, ev SpeakerEvent) {
	s.events = append(s.events, ev)
}

func staticLoader(data []byte, calls *int) Loader {
	return func(ctx context.Context) ([]byte, error) {
		*calls++
		return data, nil
	}
}

func audioRecord() *model.FileRecord {
	return &model.FileRecord{
		FileId:     model.NewFileId("ftp-audio", "/rec/call_001.wav"),
		FileName:   "call_001.wav",
		Path:       "/rec/call_001.wav",
		SourceType: model.SOURCE_TYPE_FTP,
		SourceId:   "ftp-audio",
		FileType:   ".wav",
		Status:     model.FILE_STATUS_WAIT,
		Processors: []string{},
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewKnowledge(fakeMappings{}, &fakeIngester{}, 0)))
	require.NoError(t, reg.Register(NewAudioToText(&fakeTranscriber{}, nil, config.Transcriber{}, 0, nil)))
	assert.Error(t, reg.Register(NewKnowledge(fakeMappings{}, &fakeIngester{}, 0)))

	assert.Equal(t, []string{KNOWLEDGE_PROCESSOR, AUDIO_TO_TEXT}, reg.Names())
	p, err := reg.Get(AUDIO_TO_TEXT)
	require.NoError(t, err)
	assert.Equal(t, "stt", p.Topic())
	_, err = reg.Get("ocr")
	assert.ErrorIs(t, err, ErrUnknownProcessor)
}

func TestCanProcess(t *testing.T) {
	a2t := NewAudioToText(&fakeTranscriber{}, nil, config.Transcriber{}, 0, nil)
	kp := NewKnowledge(fakeMappings{}, &fakeIngester{}, 0)

	tests := []struct {
		name      string
		rec       model.FileRecord
		audio     bool
		knowledge bool
	}{
		{"waiting audio", model.FileRecord{FileType: ".wav", SourceType: model.SOURCE_TYPE_FTP, Status: model.FILE_STATUS_WAIT}, true, false},
		{"retrying audio", model.FileRecord{FileType: ".mp3", SourceType: model.SOURCE_TYPE_LOCAL, Status: model.FILE_STATUS_RETRYING}, true, false},
		{"audio in flight", model.FileRecord{FileType: ".wav", SourceType: model.SOURCE_TYPE_FTP, Status: model.FILE_STATUS_PROCESSING}, false, false},
		{"failed audio", model.FileRecord{FileType: ".wav", SourceType: model.SOURCE_TYPE_FTP, Status: model.FILE_STATUS_FAILED}, false, false},
		{"transcript", model.FileRecord{FileType: ".txt", SourceType: model.SOURCE_TYPE_STT, Status: model.FILE_STATUS_WAIT}, false, true},
		{"audio from stt", model.FileRecord{FileType: ".wav", SourceType: model.SOURCE_TYPE_STT, Status: model.FILE_STATUS_WAIT}, false, false},
		{"document", model.FileRecord{FileType: ".pdf", SourceType: model.SOURCE_TYPE_LOCAL, Status: model.FILE_STATUS_WAIT}, false, true},
		{"image", model.FileRecord{FileType: ".png", SourceType: model.SOURCE_TYPE_LOCAL, Status: model.FILE_STATUS_WAIT}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.audio, a2t.CanProcess(&tt.rec))
			assert.Equal(t, tt.knowledge, kp.CanProcess(&tt.rec))
		})
	}
}

func TestAudioToTextProcess(t *testing.T) {
	ctx := context.Background()
	store, err := artifact.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	tr := &fakeTranscriber{result: &stt.Transcription{
		Text:               "hello from the call",
		Duration:           12.5,
		Segments:           []stt.Segment{{Start: 0, End: 12.5, Text: "hello from the call"}},
		RegisteredSpeakers: []string{"spk-7"},
	}}
	sink := &recordingSink{}
	cfg := config.Transcriber{Model: "whisper-1", Language: "zh", Punctuation: true, Hotwords: []string{"filepipe"}, Threshold: 0.4}
	a2t := NewAudioToText(tr, store, cfg, time.Minute, sink)

	rec := audioRecord()
	rec.Processors = []string{"uploader"}
	calls := 0
	res, err := a2t.Process(ctx, rec, staticLoader([]byte("RIFF"), &calls))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	require.Len(t, tr.requests, 1)
	req := tr.requests[0]
	assert.Equal(t, "call_001.wav", req.FileName)
	assert.Equal(t, []byte("RIFF"), req.Audio)
	assert.Equal(t, "zh", req.Language)
	assert.Equal(t, "whisper-1", req.Model)
	assert.Equal(t, []string{"filepipe"}, req.Hotwords)
	assert.Equal(t, 0.4, req.Threshold)

	require.Len(t, res.Derived, 1)
	child := res.Derived[0]
	assert.True(t, strings.HasPrefix(child.Path, "to_knowledge/"))
	assert.True(t, strings.HasSuffix(child.Path, "_call_001_transcript.txt"))
	assert.Equal(t, model.SOURCE_TYPE_STT, child.SourceType)
	assert.Equal(t, "ftp-audio", child.SourceId)
	assert.Equal(t, rec.FileId, child.ParentFileId)
	assert.Equal(t, ".txt", child.FileType)
	assert.Equal(t, model.FILE_STATUS_WAIT, child.Status)
	assert.Equal(t, []string{"uploader", AUDIO_TO_TEXT}, child.Processors)
	assert.Equal(t, model.NewFileId("ftp-audio", child.Path), child.FileId)
	assert.Equal(t, []string{"uploader"}, rec.Processors, "parent processors are left to the store")

	stored, err := store.Get(ctx, child.Path)
	require.NoError(t, err)
	assert.Equal(t, "hello from the call", string(stored))

	require.Len(t, sink.events, 1)
	assert.Equal(t, SpeakerEvent{FileId: rec.FileId, SourceId: "ftp-audio", SpeakerId: "spk-7"}, sink.events[0])
}

func TestAudioToTextTranscriberError(t *testing.T) {
	store, err := artifact.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	tr := &fakeTranscriber{err: errors.New("engine unavailable")}
	a2t := NewAudioToText(tr, store, config.Transcriber{}, time.Minute, nil)
	calls := 0
	_, err = a2t.Process(context.Background(), audioRecord(), staticLoader([]byte("RIFF"), &calls))
	assert.EqualError(t, err, "engine unavailable")
}

func TestKnowledgeProcess(t *testing.T) {
	ctx := context.Background()
	transcript := &model.FileRecord{
		FileId:     "t1",
		FileName:   "abc_call_001_transcript.txt",
		Path:       "to_knowledge/abc_call_001_transcript.txt",
		SourceType: model.SOURCE_TYPE_STT,
		SourceId:   "ftp-audio",
		FileType:   ".txt",
		Status:     model.FILE_STATUS_WAIT,
	}

	t.Run("no mapping fails before fetching", func(t *testing.T) {
		ing := &fakeIngester{}
		kp := NewKnowledge(fakeMappings{}, ing, time.Minute)
		calls := 0
		_, err := kp.Process(ctx, transcript, staticLoader([]byte("text"), &calls))
		assert.ErrorIs(t, err, ErrNoMapping)
		assert.Equal(t, "no_mapping", err.Error())
		assert.Equal(t, 0, calls)
		assert.Empty(t, ing.Documents())
	})

	t.Run("disabled mapping counts as missing", func(t *testing.T) {
		kp := NewKnowledge(fakeMappings{"ftp-audio": {KnowledgeBaseId: "kb-9", Enabled: false}}, &fakeIngester{}, time.Minute)
		calls := 0
		_, err := kp.Process(ctx, transcript, staticLoader([]byte("text"), &calls))
		assert.ErrorIs(t, err, ErrNoMapping)
	})

	t.Run("pushes to the mapped knowledge base", func(t *testing.T) {
		ing := &fakeIngester{}
		kp := NewKnowledge(fakeMappings{"ftp-audio": {KnowledgeBaseId: "kb-9", Enabled: true}}, ing, time.Minute)
		calls := 0
		res, err := kp.Process(ctx, transcript, staticLoader([]byte("text"), &calls))
		require.NoError(t, err)
		assert.Empty(t, res.Derived)
		docs := ing.Documents()
		require.Len(t, docs, 1)
		assert.Equal(t, "kb-9", docs[0].KnowledgeBaseID)
		assert.Equal(t, "abc_call_001_transcript.txt", docs[0].Name)
		assert.Equal(t, "text/plain; charset=utf-8", docs[0].ContentType)
		assert.Equal(t, []byte("text"), docs[0].Content)
	})

	t.Run("ingest errors fail the record", func(t *testing.T) {
		ing := &fakeIngester{err: knowledge.ErrRejected}
		kp := NewKnowledge(fakeMappings{"ftp-audio": {KnowledgeBaseId: "kb-9", Enabled: true}}, ing, time.Minute)
		calls := 0
		_, err := kp.Process(ctx, transcript, staticLoader([]byte("text"), &calls))
		assert.ErrorIs(t, err, knowledge.ErrRejected)
	})
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/markdown; charset=utf-8", contentType(".md"))
	assert.Equal(t, "application/pdf", contentType(".pdf"))
	assert.Equal(t, "application/octet-stream", contentType(".unknownext"))
}
