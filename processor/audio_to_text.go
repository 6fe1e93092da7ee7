package processor

import (
	"context"
	"filepipe/artifact"
	"filepipe/config"
	"filepipe/database/model"
	L "filepipe/logger"
	"filepipe/stt"
	"fmt"
	"path"
	"slices"
	"time"

	"github.com/google/uuid"
)

const TRANSCRIPT_PREFIX = "to_knowledge"

type AudioToText struct {
	transcriber stt.Transcriber
	artifacts   artifact.Store
	cfg         config.Transcriber
	timeout     time.Duration
	speakers    SpeakerSink
}

// NewAudioToText transcribes audio records and stores the transcript as a new
// stt record, which the knowledge processor picks up. speakers may be nil.
func NewAudioToText(transcriber stt.Transcriber, artifacts artifact.Store, cfg config.Transcriber, timeout time.Duration, speakers SpeakerSink) *AudioToText {
	return &AudioToText{
		transcriber: transcriber,
		artifacts:   artifacts,
		cfg:         cfg,
		timeout:     timeout,
		speakers:    speakers,
	}
}

func (a *AudioToText) Name() string {
	return AUDIO_TO_TEXT
}

func (a *AudioToText) Topic() string {
	return "stt"
}

func (a *AudioToText) FileTypes() []string {
	return model.AudioExtensions
}

func (a *AudioToText) CanProcess(rec *model.FileRecord) bool {
	return model.IsAudioExtension(rec.FileType) &&
		rec.SourceType != model.SOURCE_TYPE_STT &&
		rec.Status.IsClaimable()
}

func TranscriptKey(stem string) string {
	return fmt.Sprintf("%s/%s_%s_transcript.txt", TRANSCRIPT_PREFIX, uuid.NewString(), stem)
}

func (a *AudioToText) Process(ctx context.Context, rec *model.FileRecord, load Loader) (*Result, error) {
	audio, err := load(ctx)
	if err != nil {
		return nil, err
	}

	tctx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	start := time.Now()
	tr, err := a.transcriber.Transcribe(tctx, stt.Request{
		FileName:    rec.FileName,
		Audio:       audio,
		Language:    a.cfg.Language,
		Model:       a.cfg.Model,
		Punctuation: a.cfg.Punctuation,
		Diarization: a.cfg.Diarization,
		Hotwords:    a.cfg.Hotwords,
		Threshold:   a.cfg.Threshold,
	})
	if err != nil {
		return nil, err
	}
	L.Info(fmt.Sprintf("Transcribed %s: %d segments, %.1fs of audio in %s",
		rec.FileName, len(tr.Segments), tr.Duration, L.HumanReadableTime(time.Since(start).Milliseconds())))

	key := TranscriptKey(rec.Stem())
	text := []byte(tr.Text)
	err = a.artifacts.Put(ctx, key, text, "text/plain; charset=utf-8")
	if err != nil {
		return nil, fmt.Errorf("could not store transcript of %s: %w", rec.FileName, err)
	}

	if a.speakers != nil {
		for _, speaker := range tr.RegisteredSpeakers {
			a.speakers.SpeakerRegistered(ctx, SpeakerEvent{FileId: rec.FileId, SourceId: rec.SourceId, SpeakerId: speaker})
		}
	}

	processors := slices.Clone(rec.Processors)
	if !slices.Contains(processors, AUDIO_TO_TEXT) {
		processors = append(processors, AUDIO_TO_TEXT)
	}
	child := model.FileRecord{
		FileId:       model.NewFileId(rec.SourceId, key),
		FileName:     path.Base(key),
		Path:         key,
		SourceType:   model.SOURCE_TYPE_STT,
		SourceId:     rec.SourceId,
		ParentFileId: rec.FileId,
		FileType:     ".txt",
		Size:         int64(len(text)),
		ModifiedAt:   time.Now().UTC(),
		Status:       model.FILE_STATUS_WAIT,
		Processors:   processors,
	}
	return &Result{Derived: []model.FileRecord{child}}, nil
}
