package artifact

import (
	"context"
	"errors"
	"filepipe/config"
	"filepipe/file_io"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("artifact: not found")
var ErrInvalidKey = errors.New("artifact: invalid key")

// Store keeps artifacts derived by processors, such as transcripts.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Location renders where a key lives, for display.
	Location(key string) string
}

// cleanKey rejects keys that are absolute or escape the store root.
func cleanKey(key string) (string, error) {
	k := path.Clean(strings.ReplaceAll(key, `\`, "/"))
	if k == "." || k == "" || strings.HasPrefix(k, "/") || k == ".." || strings.HasPrefix(k, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return k, nil
}

func New(ctx context.Context, cfg *config.Artifacts) (Store, error) {
	switch cfg.Backend {
	case config.AB_MINIO:
		if cfg.Minio == nil {
			return nil, fmt.Errorf("artifacts: minio backend selected without minio settings")
		}
		return NewMinioStore(ctx, cfg.Minio)
	default:
		dir := cfg.LocalDir
		if dir == "" {
			workDir, err := file_io.GetGlobalWorkDir()
			if err != nil {
				return nil, err
			}
			dir = filepath.Join(workDir, "artifacts")
		}
		return NewLocalStore(dir)
	}
}
