package transport

import (
	"context"
	"filepipe/database/model"
	L "filepipe/logger"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPTransport wraps one control connection. The connection serves a single
// command at a time, so calls are serialized.
type FTPTransport struct {
	mu   sync.Mutex
	conn *ftp.ServerConn
	cfg  model.FtpConfig
}

func DialFTP(ctx context.Context, cfg *model.FtpConfig, connectTimeout time.Duration) (*FTPTransport, error) {
	c := *cfg
	if c.Port == 0 {
		c.Port = model.DEFAULT_FTP_PORT
	}
	if c.RemoteDir == "" {
		c.RemoteDir = "/"
	}
	conn, err := ftp.Dial(c.Addr(),
		ftp.DialWithTimeout(connectTimeout),
		ftp.DialWithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("could not connect to ftp://%s: %w", c.Addr(), err)
	}
	username := c.Username
	if username == "" {
		username = "anonymous"
	}
	err = conn.Login(username, c.Password)
	if err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("could not login to ftp://%s as %s: %w", c.Addr(), username, err)
	}
	L.Debug(fmt.Sprintf("ftp: connected to %s", c.Addr()))
	return &FTPTransport{conn: conn, cfg: c}, nil
}

func (t *FTPTransport) List(ctx context.Context, root string) ([]Entry, error) {
	if root == "" {
		root = t.cfg.RemoteDir
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := []Entry{}
	walker := t.conn.Walk(root)
	for walker.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := walker.Stat()
		if e == nil || e.Type != ftp.EntryTypeFile {
			continue
		}
		entries = append(entries, Entry{
			Path:    walker.Path(),
			Name:    e.Name,
			Size:    int64(e.Size),
			ModTime: e.Time,
		})
	}
	if err := walker.Err(); err != nil {
		return nil, fmt.Errorf("could not walk ftp://%s%s: %w", t.cfg.Addr(), root, err)
	}
	return entries, nil
}

func (t *FTPTransport) Fetch(ctx context.Context, filePath string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, err := t.conn.Retr(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve %s: %w", filePath, err)
	}
	defer r.Close()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(r)
		done <- result{data, err}
	}()
	select {
	case <-ctx.Done():
		// closing the response aborts the transfer and unblocks the reader
		r.Close()
		<-done
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("could not read %s: %w", filePath, res.err)
		}
		return res.data, nil
	}
}

func (t *FTPTransport) Inspect(ctx context.Context, limit int) (*Inspection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	insp := &Inspection{Root: t.cfg.RemoteDir, Entries: []Entry{}}
	list, err := t.conn.List(t.cfg.RemoteDir)
	insp.Latency = time.Since(start)
	if err != nil {
		return insp, fmt.Errorf("could not list ftp://%s%s: %w", t.cfg.Addr(), t.cfg.RemoteDir, err)
	}
	insp.Reachable = true
	for _, e := range list {
		if limit > 0 && len(insp.Entries) >= limit {
			break
		}
		if e.Name == "." || e.Name == ".." {
			continue
		}
		insp.Entries = append(insp.Entries, Entry{
			Path:    path.Join(t.cfg.RemoteDir, e.Name),
			Name:    e.Name,
			Size:    int64(e.Size),
			ModTime: e.Time,
		})
	}
	return insp, nil
}

func (t *FTPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.Quit()
}
