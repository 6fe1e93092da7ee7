package processor

import (
	"context"
	L "filepipe/logger"
	"fmt"
)

// SpeakerEvent reports a speaker id the transcription engine registered on
// its own while transcribing a file.
type SpeakerEvent struct {
	FileId    string
	SourceId  string
	SpeakerId string
}

type SpeakerSink interface {
	SpeakerRegistered(ctx context.Context, ev SpeakerEvent)
}

// LogSpeakerSink writes speaker events to the log.
type LogSpeakerSink struct{}

func (LogSpeakerSink) SpeakerRegistered(ctx context.Context, ev SpeakerEvent) {
	L.Info(fmt.Sprintf("speaker %s registered while transcribing %s (%s)", ev.SpeakerId, ev.FileId, ev.SourceId))
}
