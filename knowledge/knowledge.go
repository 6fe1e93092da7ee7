package knowledge

import (
	"bytes"
	"context"
	"errors"
	"filepipe/config"
	L "filepipe/logger"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var ErrRejected = errors.New("knowledge: document rejected")

type Document struct {
	KnowledgeBaseID string
	Name            string
	ContentType     string
	Content         []byte
}

type Ingester interface {
	Ingest(ctx context.Context, doc Document) error
}

// HTTPIngester uploads documents to a knowledge base service as multipart
// files, throttled by a token bucket shared by all workers.
type HTTPIngester struct {
	endpoint    string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

func NewHTTPIngester(cfg *config.Knowledge, timeout time.Duration) (*HTTPIngester, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("knowledge: endpoint is not set")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("knowledge: invalid endpoint %s: %w", endpoint, err)
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)
	return &HTTPIngester{
		endpoint:    endpoint,
		apiKey:      cfg.ApiKey,
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(limit, burst),
	}, nil
}

func (c *HTTPIngester) Ingest(ctx context.Context, doc Document) error {
	if doc.KnowledgeBaseID == "" {
		return fmt.Errorf("knowledge: no knowledge base for %s", doc.Name)
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, doc.Name))
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(doc.Content); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	u := fmt.Sprintf("%s/knowledge-bases/%s/knowledge/file", c.endpoint, url.PathEscape(doc.KnowledgeBaseID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return fmt.Errorf("knowledge: create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("knowledge: upload %s: %w", doc.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		L.Debug(L.HttpResponseString(resp))
		return fmt.Errorf("%w: %s returned %s for %s", ErrRejected, doc.KnowledgeBaseID, resp.Status, doc.Name)
	}
	L.Debug(fmt.Sprintf("knowledge: uploaded %s (%s) to %s", doc.Name,
		L.HumanReadableBytes(uint64(len(doc.Content)), 1), doc.KnowledgeBaseID))
	return nil
}
