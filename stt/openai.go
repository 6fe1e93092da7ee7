package stt

import (
	"bytes"
	"context"
	"errors"
	"filepipe/config"
	L "filepipe/logger"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var ErrMissingApiKey = errors.New("stt: transcriber api key is not set")

// OpenAITranscriber calls an OpenAI compatible audio transcription endpoint.
type OpenAITranscriber struct {
	client *openai.Client
}

func NewOpenAITranscriber(cfg *config.Transcriber) (*OpenAITranscriber, error) {
	if strings.TrimSpace(cfg.ApiKey) == "" {
		return nil, ErrMissingApiKey
	}
	clientConfig := openai.DefaultConfig(cfg.ApiKey)
	if cfg.BaseUrl != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseUrl, "/")
	}
	return &OpenAITranscriber{client: openai.NewClientWithConfig(clientConfig)}, nil
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, req Request) (*Transcription, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("stt: %s is empty", req.FileName)
	}
	if req.Diarization {
		L.Debug("stt: speaker diarization is not supported by the openai engine, ignoring")
	}
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    req.Model,
		FilePath: req.FileName,
		Reader:   bytes.NewReader(req.Audio),
		Prompt:   strings.Join(req.Hotwords, ", "),
		Language: req.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("stt: could not transcribe %s: %w", req.FileName, err)
	}

	out := &Transcription{
		Duration: resp.Duration,
		Segments: []Segment{},
	}
	dropped := 0
	for _, seg := range resp.Segments {
		if req.Threshold > 0 && 1-seg.NoSpeechProb < req.Threshold {
			dropped++
			continue
		}
		text := strings.TrimSpace(seg.Text)
		if !req.Punctuation {
			text = StripPunctuation(text)
		}
		out.Segments = append(out.Segments, Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}

	if len(resp.Segments) == 0 || dropped == 0 {
		out.Text = strings.TrimSpace(resp.Text)
		if !req.Punctuation {
			out.Text = StripPunctuation(out.Text)
		}
	} else {
		parts := make([]string, 0, len(out.Segments))
		for _, s := range out.Segments {
			parts = append(parts, s.Text)
		}
		out.Text = strings.Join(parts, " ")
		L.Debug(fmt.Sprintf("stt: dropped %d of %d segments of %s below threshold %.2f",
			dropped, len(resp.Segments), req.FileName, req.Threshold))
	}
	return out, nil
}
