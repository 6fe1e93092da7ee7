package processor

import (
	"context"
	"filepipe/artifact"
	"filepipe/database/model"
	"filepipe/file_io"
	L "filepipe/logger"
	"filepipe/transport"
	"fmt"
	"time"
)

// Fetcher reads the content a record points to.
type Fetcher interface {
	Fetch(ctx context.Context, rec *model.FileRecord) ([]byte, error)
}

type SourceLookup interface {
	GetSource(ctx context.Context, name string) (*model.ScanSource, error)
}

// ContentFetcher reads local files from disk, ftp files through a fresh
// transport for their source, and derived stt records from the artifact store.
type ContentFetcher struct {
	sources        SourceLookup
	artifacts      artifact.Store
	dial           transport.Dialer
	connectTimeout time.Duration
	fetchTimeout   time.Duration
}

func NewContentFetcher(sources SourceLookup, artifacts artifact.Store, dial transport.Dialer, connectTimeout time.Duration, fetchTimeout time.Duration) *ContentFetcher {
	if dial == nil {
		dial = transport.New
	}
	return &ContentFetcher{
		sources:        sources,
		artifacts:      artifacts,
		dial:           dial,
		connectTimeout: connectTimeout,
		fetchTimeout:   fetchTimeout,
	}
}

func (f *ContentFetcher) Fetch(ctx context.Context, rec *model.FileRecord) ([]byte, error) {
	if f.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.fetchTimeout)
		defer cancel()
	}
	start := time.Now()
	var data []byte
	var err error
	switch rec.SourceType {
	case model.SOURCE_TYPE_LOCAL:
		data, err = file_io.ReadFile(ctx, rec.Path)
	case model.SOURCE_TYPE_FTP:
		data, err = f.fetchRemote(ctx, rec)
	case model.SOURCE_TYPE_STT:
		if f.artifacts == nil {
			return nil, fmt.Errorf("no artifact store to read %s from", rec.Path)
		}
		data, err = f.artifacts.Get(ctx, rec.Path)
	default:
		return nil, fmt.Errorf("cannot fetch %s: unknown source type %s", rec.FileId, rec.SourceType)
	}
	if err != nil {
		return nil, fmt.Errorf("could not fetch %s: %w", rec.Path, err)
	}
	L.Debug(fmt.Sprintf("Fetched %s (%s) in %s", rec.Path,
		L.HumanReadableBytes(uint64(len(data)), 1),
		L.HumanReadableTime(time.Since(start).Milliseconds())))
	return data, nil
}

func (f *ContentFetcher) fetchRemote(ctx context.Context, rec *model.FileRecord) ([]byte, error) {
	src, err := f.sources.GetSource(ctx, rec.SourceId)
	if err != nil {
		return nil, fmt.Errorf("could not get source %s: %w", rec.SourceId, err)
	}
	tr, err := f.dial(ctx, src, f.connectTimeout)
	if err != nil {
		return nil, err
	}
	defer tr.Close()
	return tr.Fetch(ctx, rec.Path)
}
