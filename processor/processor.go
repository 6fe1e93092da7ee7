package processor

import (
	"context"
	"errors"
	"filepipe/database/model"
	"fmt"
	"slices"
	"sync"
)

// ErrNoMapping is recorded verbatim as the error message of a record whose
// source has no enabled knowledge base mapping.
var ErrNoMapping = errors.New("no_mapping")

var ErrUnknownProcessor = errors.New("unknown processor")

const (
	AUDIO_TO_TEXT       = "audio_to_text"
	KNOWLEDGE_PROCESSOR = "knowledge_processor"
)

// Loader fetches the content of the record being processed. Processors call
// it only once they know they need the bytes.
type Loader func(ctx context.Context) ([]byte, error)

type Result struct {
	// records created by the transform, inserted before the parent is marked
	// as success
	Derived []model.FileRecord
}

type Processor interface {
	Name() string
	Topic() string
	// FileTypes narrows the store query for candidates, CanProcess has the
	// final say.
	FileTypes() []string
	CanProcess(rec *model.FileRecord) bool
	Process(ctx context.Context, rec *model.FileRecord, load Loader) (*Result, error)
}

// Registry holds the processors known to the running process, in the order
// they were registered.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
	order      []string
}

func NewRegistry() *Registry {
	return &Registry{processors: map[string]Processor{}}
}

func (r *Registry) Register(p Processor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.processors[p.Name()]; ok {
		return fmt.Errorf("processor %s is already registered", p.Name())
	}
	r.processors[p.Name()] = p
	r.order = append(r.order, p.Name())
	return nil
}

func (r *Registry) Get(name string) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProcessor, name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

func (r *Registry) List() []Processor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Processor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.processors[name])
	}
	return out
}
