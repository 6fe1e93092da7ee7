package transport

import (
	"context"
	"filepipe/database/model"
	"filepipe/file_io"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type LocalTransport struct {
	root      string
	recursive bool
}

func NewLocalTransport(cfg *model.LocalConfig) *LocalTransport {
	return &LocalTransport{
		root:      cfg.Path,
		recursive: cfg.Recursive,
	}
}

func (t *LocalTransport) List(ctx context.Context, root string) ([]Entry, error) {
	if root == "" {
		root = t.root
	}
	entries := []Entry{}
	err := file_io.WalkFiles(ctx, root, t.recursive, func(f file_io.WalkedFile) error {
		entries = append(entries, Entry{
			Path:    f.Path,
			Name:    f.Name,
			Size:    f.Size,
			ModTime: f.ModifiedAt,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not list %s: %w", root, err)
	}
	return entries, nil
}

func (t *LocalTransport) Fetch(ctx context.Context, path string) ([]byte, error) {
	return file_io.ReadFile(ctx, path)
}

func (t *LocalTransport) Inspect(ctx context.Context, limit int) (*Inspection, error) {
	start := time.Now()
	insp := &Inspection{Root: t.root, Entries: []Entry{}}
	dirEntries, err := os.ReadDir(t.root)
	insp.Latency = time.Since(start)
	if err != nil {
		return insp, fmt.Errorf("could not read %s: %w", t.root, err)
	}
	insp.Reachable = true
	for _, d := range dirEntries {
		if limit > 0 && len(insp.Entries) >= limit {
			break
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		insp.Entries = append(insp.Entries, Entry{
			Path:    filepath.Join(t.root, d.Name()),
			Name:    d.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return insp, nil
}

func (t *LocalTransport) Close() error {
	return nil
}
