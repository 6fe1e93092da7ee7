package transport

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"filepipe/database/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocalTransport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")
	writeFile(t, filepath.Join(root, "nested", "b.wav"), "RIFFxxxx")
	ctx := context.Background()

	t.Run("ListRecursive", func(t *testing.T) {
		tr := NewLocalTransport(&model.LocalConfig{Path: root, Recursive: true})
		entries, err := tr.List(ctx, "")
		require.NoError(t, err)
		var names []string
		for _, e := range entries {
			names = append(names, e.Name)
		}
		sort.Strings(names)
		assert.Equal(t, []string{"a.txt", "b.wav"}, names)
	})

	t.Run("ListFlat", func(t *testing.T) {
		tr := NewLocalTransport(&model.LocalConfig{Path: root, Recursive: false})
		entries, err := tr.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(5), entries[0].Size)
	})

	t.Run("Fetch", func(t *testing.T) {
		tr := NewLocalTransport(&model.LocalConfig{Path: root})
		data, err := tr.Fetch(ctx, filepath.Join(root, "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "alpha", string(data))

		_, err = tr.Fetch(ctx, filepath.Join(root, "missing.txt"))
		assert.Error(t, err)
	})

	t.Run("Inspect", func(t *testing.T) {
		tr := NewLocalTransport(&model.LocalConfig{Path: root})
		insp, err := tr.Inspect(ctx, 1)
		require.NoError(t, err)
		assert.True(t, insp.Reachable)
		assert.Len(t, insp.Entries, 1)

		missing := NewLocalTransport(&model.LocalConfig{Path: filepath.Join(root, "nope")})
		insp, err = missing.Inspect(ctx, 10)
		assert.Error(t, err)
		assert.False(t, insp.Reachable)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		tr := NewLocalTransport(&model.LocalConfig{Path: root, Recursive: true})
		_, err := tr.List(cctx, "")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("Local", func(t *testing.T) {
		tr, err := New(ctx, &model.ScanSource{Name: "l", Kind: model.SOURCE_KIND_LOCAL, Local: &model.LocalConfig{Path: t.TempDir()}}, time.Second)
		require.NoError(t, err)
		assert.IsType(t, &LocalTransport{}, tr)
		assert.NoError(t, tr.Close())
	})

	t.Run("MissingConfig", func(t *testing.T) {
		_, err := New(ctx, &model.ScanSource{Name: "f", Kind: model.SOURCE_KIND_FTP}, time.Second)
		assert.Error(t, err)
	})

	t.Run("UnknownKind", func(t *testing.T) {
		_, err := New(ctx, &model.ScanSource{Name: "s3", Kind: "s3"}, time.Second)
		assert.ErrorIs(t, err, ErrUnsupportedKind)
	})

	t.Run("UnreachableFtp", func(t *testing.T) {
		src := &model.ScanSource{
			Name: "down",
			Kind: model.SOURCE_KIND_FTP,
			Ftp:  &model.FtpConfig{Host: "127.0.0.1", Port: 1, RemoteDir: "/"},
		}
		_, err := New(ctx, src, 500*time.Millisecond)
		assert.Error(t, err)
	})
}
