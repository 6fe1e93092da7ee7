package processor

import (
	"context"
	"errors"
	"filepipe/database"
	"filepipe/database/model"
	"filepipe/knowledge"
	L "filepipe/logger"
	"fmt"
	"mime"
	"time"
)

type MappingLookup interface {
	GetMappingForSource(ctx context.Context, sourceName string) (*model.KnowledgeBaseMapping, error)
}

// Knowledge pushes text bearing records to the knowledge base their source is
// mapped to.
type Knowledge struct {
	mappings MappingLookup
	ingester knowledge.Ingester
	timeout  time.Duration
}

func NewKnowledge(mappings MappingLookup, ingester knowledge.Ingester, timeout time.Duration) *Knowledge {
	return &Knowledge{mappings: mappings, ingester: ingester, timeout: timeout}
}

func (k *Knowledge) Name() string {
	return KNOWLEDGE_PROCESSOR
}

func (k *Knowledge) Topic() string {
	return "to_knowledge"
}

func (k *Knowledge) FileTypes() []string {
	return model.TextExtensions
}

func (k *Knowledge) CanProcess(rec *model.FileRecord) bool {
	return model.IsTextExtension(rec.FileType) && rec.Status.IsClaimable()
}

func contentType(ext string) string {
	switch ext {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (k *Knowledge) Process(ctx context.Context, rec *model.FileRecord, load Loader) (*Result, error) {
	// no point downloading content nobody will take
	mapping, err := k.mappings.GetMappingForSource(ctx, rec.SourceId)
	if err != nil {
		if errors.Is(err, database.ErrDoesNotExist) {
			return nil, ErrNoMapping
		}
		return nil, fmt.Errorf("could not look up mapping for %s: %w", rec.SourceId, err)
	}

	content, err := load(ctx)
	if err != nil {
		return nil, err
	}

	ictx := ctx
	if k.timeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}
	err = k.ingester.Ingest(ictx, knowledge.Document{
		KnowledgeBaseID: mapping.KnowledgeBaseId,
		Name:            rec.FileName,
		ContentType:     contentType(rec.FileType),
		Content:         content,
	})
	if err != nil {
		return nil, err
	}
	L.Info(fmt.Sprintf("Pushed %s to knowledge base %s", rec.FileName, mapping.KnowledgeBaseId))
	return &Result{}, nil
}
