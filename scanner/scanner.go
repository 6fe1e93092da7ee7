package scanner

import (
	"context"
	"errors"
	"filepipe/config"
	"filepipe/database"
	"filepipe/database/model"
	"filepipe/database/repository"
	L "filepipe/logger"
	"filepipe/registry"
	"filepipe/transport"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrScanInProgress = errors.New("scan already in progress")

type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

type ScanResult struct {
	Scanned      int           `json:"scanned"`
	New          int           `json:"new"`
	Changed      int           `json:"changed"`
	Processed    int           `json:"processed"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	SourceErrors []SourceError `json:"source_errors"`
	ScanTime     time.Time     `json:"scan_time"`
	DurationMs   int64         `json:"duration_ms"`
}

func (r *ScanResult) merge(o *ScanResult) {
	r.Scanned += o.Scanned
	r.New += o.New
	r.Changed += o.Changed
	r.Processed += o.Processed
	r.Skipped += o.Skipped
	r.Failed += o.Failed
	r.SourceErrors = append(r.SourceErrors, o.SourceErrors...)
}

func (r *ScanResult) String() string {
	return fmt.Sprintf("scanned=%d new=%d changed=%d processed=%d skipped=%d failed=%d in %s",
		r.Scanned, r.New, r.Changed, r.Processed, r.Skipped, r.Failed,
		L.HumanReadableTime(r.DurationMs))
}

type Progress struct {
	Running      bool        `json:"running"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	SourcesTotal int         `json:"sources_total"`
	SourcesDone  int         `json:"sources_done"`
	Scanned      int         `json:"scanned"`
	New          int         `json:"new"`
	LastResult   *ScanResult `json:"last_result,omitempty"`
	LastError    string      `json:"last_error,omitempty"`
}

type Scanner struct {
	registry *registry.Registry
	records  repository.FileRecordRepository
	dial     transport.Dialer

	running    atomic.Bool
	mu         sync.Mutex
	progress   Progress
	background sync.WaitGroup

	// called after a scan that found new or changed files
	onDiscovered func()
}

func New(db *database.DB, reg *registry.Registry, dial transport.Dialer) *Scanner {
	if dial == nil {
		dial = transport.New
	}
	return &Scanner{
		registry: reg,
		records:  repository.NewFileRecordRepository(db),
		dial:     dial,
	}
}

func (s *Scanner) OnDiscovered(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDiscovered = fn
}

// Scan scans every enabled source with the enabled file type rules.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)
	return s.scanEnabled(ctx)
}

// ScanAsync starts a scan in the background and returns immediately. Use
// Progress to follow it.
func (s *Scanner) ScanAsync(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrScanInProgress
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer s.running.Store(false)
		_, err := s.scanEnabled(context.WithoutCancel(ctx))
		if err != nil {
			L.Error(fmt.Errorf("background scan failed: %w", err))
		}
	}()
	return nil
}

// Wait blocks until a background scan started by ScanAsync is done.
func (s *Scanner) Wait() {
	s.background.Wait()
}

func (s *Scanner) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.progress
	p.Running = s.running.Load()
	return p
}

func (s *Scanner) scanEnabled(ctx context.Context) (*ScanResult, error) {
	sources, err := s.registry.ListSources(ctx, true)
	if err != nil {
		s.finish(nil, err)
		return nil, err
	}
	rules, err := s.registry.ListFileTypes(ctx, true)
	if err != nil {
		s.finish(nil, err)
		return nil, err
	}
	return s.ScanSources(ctx, sources, rules)
}

// ScanSources scans the given sources, upserting a file record for every file
// whose extension matches one of rules. A failing source is reported in the
// result and never stops the others.
func (s *Scanner) ScanSources(ctx context.Context, sources []model.ScanSource, rules []model.FileTypeRule) (*ScanResult, error) {
	cfg := config.Get()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Scan())
	defer cancel()

	start := time.Now()
	s.mu.Lock()
	s.progress = Progress{
		StartedAt:    &start,
		SourcesTotal: len(sources),
		LastResult:   s.progress.LastResult,
	}
	s.mu.Unlock()

	extensions := map[string]bool{}
	for _, r := range rules {
		if r.Enabled {
			extensions[r.Extension] = true
		}
	}

	result := &ScanResult{SourceErrors: []SourceError{}, ScanTime: start.UTC()}
	var resultMu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(cfg.Scanner.MaxConcurrentSources)
	for i := range sources {
		src := sources[i]
		g.Go(func() error {
			sourceResult := s.scanSource(ctx, &src, extensions, cfg)
			resultMu.Lock()
			result.merge(sourceResult)
			resultMu.Unlock()

			s.mu.Lock()
			s.progress.SourcesDone++
			s.progress.Scanned += sourceResult.Scanned
			s.progress.New += sourceResult.New
			s.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result.DurationMs = time.Since(start).Milliseconds()
	L.Info(fmt.Sprintf("Scan finished: %s", result.String()))
	for _, se := range result.SourceErrors {
		L.Warn(fmt.Sprintf("Source %s: %s", se.Source, se.Error))
	}
	s.finish(result, nil)

	if result.New+result.Changed > 0 {
		s.mu.Lock()
		notify := s.onDiscovered
		s.mu.Unlock()
		if notify != nil {
			notify()
		}
	}
	return result, nil
}

func (s *Scanner) finish(result *ScanResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result != nil {
		s.progress.LastResult = result
	}
	s.progress.LastError = ""
	if err != nil {
		s.progress.LastError = err.Error()
	}
}

func (s *Scanner) scanSource(ctx context.Context, src *model.ScanSource, extensions map[string]bool, cfg *config.Config) *ScanResult {
	result := &ScanResult{SourceErrors: []SourceError{}}
	sourceFailed := func(err error) *ScanResult {
		result.Failed++
		result.SourceErrors = append(result.SourceErrors, SourceError{Source: src.Name, Error: err.Error()})
		return result
	}

	tr, err := s.dial(ctx, src, cfg.Timeouts.FtpConnect())
	if err != nil {
		return sourceFailed(err)
	}
	defer tr.Close()

	entries, err := tr.List(ctx, src.Root())
	if err != nil {
		return sourceFailed(err)
	}
	L.Debug(fmt.Sprintf("Source %s: listed %d files under %s", src.Name, len(entries), src.WatchPath()))

	maxSize := cfg.MaxFileSizeBytes()
	sourceType := model.SourceTypeForKind(src.Kind)
	for _, e := range entries {
		if ctx.Err() != nil {
			return sourceFailed(ctx.Err())
		}
		result.Scanned++
		ext := strings.ToLower(filepath.Ext(e.Name))
		if !extensions[ext] {
			result.Skipped++
			continue
		}
		if e.Size > maxSize {
			L.Debug(fmt.Sprintf("Skipping %s: %s exceeds %s", e.Path,
				L.HumanReadableBytes(uint64(e.Size), 2), L.HumanReadableBytes(uint64(maxSize), 0)))
			result.Skipped++
			continue
		}
		rec := &model.FileRecord{
			FileId:     model.NewFileId(src.Name, e.Path),
			FileName:   e.Name,
			Path:       e.Path,
			SourceType: sourceType,
			SourceId:   src.Name,
			FileType:   ext,
			Size:       e.Size,
			ModifiedAt: e.ModTime,
		}
		outcome, err := s.records.Discover(ctx, rec)
		if err != nil {
			L.Warn(fmt.Sprintf("Could not record %s from %s: %v", e.Path, src.Name, err))
			result.Failed++
			continue
		}
		result.Processed++
		switch outcome {
		case repository.DISCOVER_NEW:
			result.New++
		case repository.DISCOVER_CHANGED:
			result.Changed++
		}
	}
	return result
}
