package transport

import (
	"context"
	"errors"
	"filepipe/database/model"
	"fmt"
	"time"
)

var ErrUnsupportedKind = errors.New("transport: unsupported source kind")

// Entry is a regular file found under a source root.
type Entry struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Inspection is the result of a dry-run connection to a source.
type Inspection struct {
	Root      string
	Reachable bool
	Entries   []Entry
	Latency   time.Duration
}

type Transport interface {
	// List returns every regular file under root.
	List(ctx context.Context, root string) ([]Entry, error)
	Fetch(ctx context.Context, path string) ([]byte, error)
	// Inspect lists at most limit entries directly under the source root.
	Inspect(ctx context.Context, limit int) (*Inspection, error)
	Close() error
}

// Dialer opens a transport for a source.
type Dialer func(ctx context.Context, src *model.ScanSource, connectTimeout time.Duration) (Transport, error)

func New(ctx context.Context, src *model.ScanSource, connectTimeout time.Duration) (Transport, error) {
	switch src.Kind {
	case model.SOURCE_KIND_LOCAL:
		if src.Local == nil {
			return nil, fmt.Errorf("source %s has no local config", src.Name)
		}
		return NewLocalTransport(src.Local), nil
	case model.SOURCE_KIND_FTP:
		if src.Ftp == nil {
			return nil, fmt.Errorf("source %s has no ftp config", src.Name)
		}
		return DialFTP(ctx, src.Ftp, connectTimeout)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, src.Kind)
	}
}
