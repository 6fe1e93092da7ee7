package knowledge

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"filepipe/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPIngester(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/api/v1/knowledge-bases/kb-reject/knowledge/file" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unsupported file"}`))
			return
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/knowledge-bases/kb-1/knowledge/file", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "call_transcript.txt", header.Filename)
		assert.Equal(t, "text/plain; charset=utf-8", header.Header.Get("Content-Type"))
		assert.Equal(t, "hello", string(data))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	ing, err := NewHTTPIngester(&config.Knowledge{
		Endpoint: srv.URL + "/api/v1/",
		ApiKey:   "secret",
	}, 5*time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("Uploads", func(t *testing.T) {
		err := ing.Ingest(ctx, Document{
			KnowledgeBaseID: "kb-1",
			Name:            "call_transcript.txt",
			ContentType:     "text/plain; charset=utf-8",
			Content:         []byte("hello"),
		})
		assert.NoError(t, err)
	})

	t.Run("Rejected", func(t *testing.T) {
		err := ing.Ingest(ctx, Document{KnowledgeBaseID: "kb-reject", Name: "x.pdf", Content: []byte("x")})
		assert.ErrorIs(t, err, ErrRejected)
	})

	t.Run("NoKnowledgeBase", func(t *testing.T) {
		before := calls.Load()
		err := ing.Ingest(ctx, Document{Name: "x.txt"})
		assert.Error(t, err)
		assert.Equal(t, before, calls.Load())
	})
}

func TestRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ing, err := NewHTTPIngester(&config.Knowledge{Endpoint: srv.URL, RequestsPerSecond: 0.001, Burst: 1}, time.Second)
	require.NoError(t, err)

	doc := Document{KnowledgeBaseID: "kb", Name: "a.txt", Content: []byte("a")}
	require.NoError(t, ing.Ingest(context.Background(), doc))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = ing.Ingest(ctx, doc)
	assert.ErrorContains(t, err, "rate limiter")
}

func TestNewHTTPIngester(t *testing.T) {
	_, err := NewHTTPIngester(&config.Knowledge{Endpoint: "  "}, time.Second)
	assert.Error(t, err)
}
