package stt

import (
	"context"
	"strings"
	"unicode"
)

type Request struct {
	FileName    string
	Audio       []byte
	Language    string
	Model       string
	Punctuation bool
	Diarization bool
	Hotwords    []string
	// minimum speech confidence in [0, 1] a segment needs to be kept
	Threshold float64
}

type Segment struct {
	Speaker string  `json:"speaker,omitempty"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

type Transcription struct {
	Text     string    `json:"text"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
	// speaker ids the engine registered while transcribing
	RegisteredSpeakers []string `json:"registered_speakers,omitempty"`
}

type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (*Transcription, error)
}

// StripPunctuation removes punctuation and collapses the whitespace left behind.
func StripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
