package pipeline

import (
	"context"
	"errors"
	"filepipe/artifact"
	"filepipe/database"
	"filepipe/database/model"
	"filepipe/database/repository"
	L "filepipe/logger"
	"filepipe/processor"
	"filepipe/registry"
	"fmt"
	"strconv"
	"sync"
)

type Options struct {
	// Fetcher reads record content for the local runners. Without one the
	// controller only records desired state, for a serving process to apply.
	Fetcher processor.Fetcher
	Runner  processor.RunnerOptions
	// Artifacts holds transcripts of stt records, removed with them.
	Artifacts artifact.Store
}

// Controller owns the processor runners of a process and the persisted
// pipeline state shared with other processes.
type Controller struct {
	db             *database.DB
	registry       *registry.Registry
	records        repository.FileRecordRepository
	processorsRepo repository.ProcessorRepository
	settings       repository.SettingRepository
	processors     *processor.Registry
	artifacts      artifact.Store

	// nil when the controller only records desired state
	runners map[string]*processor.Runner
	workers int
	// serializes control actions
	mu sync.Mutex
}

func New(ctx context.Context, db *database.DB, reg *registry.Registry, procs *processor.Registry, opts Options) (*Controller, error) {
	c := &Controller{
		db:             db,
		registry:       reg,
		records:        repository.NewFileRecordRepository(db),
		processorsRepo: repository.NewProcessorRepository(db),
		settings:       repository.NewSettingRepository(db),
		processors:     procs,
		artifacts:      opts.Artifacts,
		workers:        max(opts.Runner.Workers, 1),
	}
	for _, p := range procs.List() {
		err := c.processorsRepo.Register(ctx, p.Name(), p.Topic())
		if err != nil {
			return nil, err
		}
	}
	if opts.Fetcher != nil {
		c.runners = map[string]*processor.Runner{}
		for _, p := range procs.List() {
			c.runners[p.Name()] = processor.NewRunner(p, c.records, opts.Fetcher, opts.Runner)
		}
		// derived records are usually for another processor
		for _, r := range c.runners {
			r.OnDerived(c.Wake)
		}
	}
	return c, nil
}

func (c *Controller) IsLocal() bool {
	return c.runners != nil
}

// Wake makes every local runner look for work now.
func (c *Controller) Wake() {
	for _, r := range c.runners {
		r.Wake()
	}
}

func (c *Controller) Runner(name string) (*processor.Runner, error) {
	r, ok := c.runners[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", processor.ErrUnknownProcessor, name)
	}
	return r, nil
}

func (c *Controller) targets(name string) ([]string, error) {
	if name == "" {
		return c.processors.Names(), nil
	}
	if _, err := c.processors.Get(name); err != nil {
		return nil, err
	}
	return []string{name}, nil
}

// Control starts, stops or restarts all processors, or only the named one.
func (c *Controller) Control(ctx context.Context, action Action, name string) (*ControlResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	names, err := c.targets(name)
	if err != nil {
		return nil, err
	}
	result := &ControlResult{Action: action, Results: map[string]string{}}
	for _, n := range names {
		var err error
		switch action {
		case ACTION_START:
			err = c.start(ctx, n)
			result.Results[n] = "started"
		case ACTION_STOP:
			err = c.stop(ctx, n)
			result.Results[n] = "stopped"
		case ACTION_RESTART:
			err = c.stop(ctx, n)
			if err == nil {
				err = c.start(ctx, n)
			}
			result.Results[n] = "restarted"
		default:
			return nil, fmt.Errorf("unknown pipeline action: %s", action)
		}
		if err != nil {
			L.Error(fmt.Errorf("could not %s %s: %w", action, n, err))
			result.Results[n] = "failed: " + err.Error()
		}
	}

	running, err := c.anyEnabled(ctx)
	if err != nil {
		return nil, err
	}
	err = c.settings.Set(ctx, model.SETTING_PIPELINE_RUNNING, strconv.FormatBool(running))
	if err != nil {
		return nil, err
	}
	result.Status = "stopped"
	if running {
		result.Status = "running"
	}
	c.saveSnapshots(ctx)
	L.Info(fmt.Sprintf("Pipeline %s: %v", action, result.Results))
	return result, nil
}

func (c *Controller) start(ctx context.Context, name string) error {
	err := c.processorsRepo.SetDesired(ctx, name, true)
	if err != nil {
		return err
	}
	if c.runners == nil {
		return nil
	}
	_, err = c.runners[name].Start(ctx)
	return err
}

func (c *Controller) stop(ctx context.Context, name string) error {
	err := c.processorsRepo.SetDesired(ctx, name, false)
	if err != nil {
		return err
	}
	if c.runners == nil {
		return nil
	}
	_, err = c.runners[name].Stop(ctx)
	return err
}

func (c *Controller) anyEnabled(ctx context.Context) (bool, error) {
	states, err := c.processorsRepo.List(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range states {
		if s.Enabled {
			return true, nil
		}
	}
	return false, nil
}

// Reconcile applies the desired processor state, which other processes may
// have changed, and persists a snapshot of the local runners.
func (c *Controller) Reconcile(ctx context.Context) error {
	if c.runners == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	states, err := c.processorsRepo.List(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, s := range states {
		r, ok := c.runners[s.Name]
		if !ok {
			continue
		}
		switch {
		case s.Enabled && !r.IsConsuming():
			L.Info(fmt.Sprintf("Processor %s was enabled, starting it", s.Name))
			_, err = r.Start(ctx)
		case !s.Enabled && r.IsConsuming():
			L.Info(fmt.Sprintf("Processor %s was disabled, stopping it", s.Name))
			_, err = r.Stop(ctx)
		default:
			err = nil
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("could not reconcile %s: %w", s.Name, err))
		}
	}
	c.saveSnapshots(ctx)
	return errors.Join(errs...)
}

// RecoverInterrupted fails records a previous serving process left in
// flight, so an operator can reprocess them. It must run before any local
// runner starts.
func (c *Controller) RecoverInterrupted(ctx context.Context) (int, error) {
	if c.runners == nil {
		return 0, nil
	}
	const page = 200
	var ids []string
	for _, st := range model.InFlightStatuses {
		for offset := 0; ; offset += page {
			files, _, err := c.records.List(ctx, repository.FileRecordFilter{Status: st, Limit: page, Offset: offset})
			if err != nil {
				return 0, err
			}
			for _, f := range files {
				ids = append(ids, f.FileId)
			}
			if len(files) < page {
				break
			}
		}
	}
	recovered := 0
	for _, id := range ids {
		err := c.records.Fail(ctx, id, "", INTERRUPTED)
		if errors.Is(err, repository.ErrStatusConflict) || errors.Is(err, database.ErrDoesNotExist) {
			continue
		}
		if err != nil {
			return recovered, err
		}
		recovered++
	}
	if recovered > 0 {
		L.Warn(fmt.Sprintf("%d files were interrupted by an earlier shutdown and marked as failed", recovered))
	}
	return recovered, nil
}

// Shutdown stops the local runners without touching the desired state, so
// the next serving process resumes where this one left off.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, name := range c.processors.Names() {
		r, ok := c.runners[name]
		if !ok {
			continue
		}
		if _, err := r.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.saveSnapshots(context.WithoutCancel(ctx))
	return errors.Join(errs...)
}

func (c *Controller) saveSnapshots(ctx context.Context) {
	for name, r := range c.runners {
		err := c.processorsRepo.SaveSnapshot(ctx, name, r.IsConsuming(), r.Stats())
		if err != nil {
			L.Warn(fmt.Sprintf("could not save snapshot of %s: %v", name, err))
		}
	}
}

func (c *Controller) queueSize(ctx context.Context) (int64, map[model.FileStatus]int64, error) {
	counts, err := c.records.CountByStatus(ctx)
	if err != nil {
		return 0, nil, err
	}
	queued, err := c.records.CountQueued(ctx)
	if err != nil {
		return 0, nil, err
	}
	return queued, counts, nil
}

func (c *Controller) Status(ctx context.Context) (*Status, error) {
	queued, _, err := c.queueSize(ctx)
	if err != nil {
		return nil, err
	}
	sources, err := c.registry.ListSources(ctx, true)
	if err != nil {
		return nil, err
	}
	states, err := c.processorsRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	persisted := map[string]model.ProcessorState{}
	for _, s := range states {
		persisted[s.Name] = s
	}

	status := &Status{
		QueueSize:            queued,
		WatchPaths:           []string{},
		ProcessorStatistics:  map[string]model.ProcessorStats{},
		RegisteredProcessors: []ProcessorInfo{},
	}
	for _, src := range sources {
		status.WatchPaths = append(status.WatchPaths, src.WatchPath())
	}
	for _, p := range c.processors.List() {
		state := persisted[p.Name()]
		info := ProcessorInfo{Name: p.Name(), Topic: p.Topic(), Enabled: state.Enabled, Consuming: state.Consuming}
		stats := state.Stats
		if r, ok := c.runners[p.Name()]; ok {
			info.Consuming = r.IsConsuming()
			stats = r.Stats()
			status.WorkerCount += r.Workers()
		} else if state.Consuming {
			// reported by a serving process with the same configuration
			status.WorkerCount += c.workers
		}
		if info.Consuming {
			status.Running = true
		}
		status.ProcessorStatistics[p.Name()] = stats
		status.RegisteredProcessors = append(status.RegisteredProcessors, info)
	}
	if !c.IsLocal() && !status.Running {
		running, err := c.settings.Get(ctx, model.SETTING_PIPELINE_RUNNING)
		if err != nil && !errors.Is(err, database.ErrDoesNotExist) {
			return nil, err
		}
		status.Running = running == "true"
	}
	return status, nil
}

func (c *Controller) Health(ctx context.Context) *Health {
	h := &Health{OverallStatus: HEALTHY, Components: map[string]ComponentHealth{}}
	if err := c.db.Ping(ctx); err != nil {
		h.Components["database"] = ComponentHealth{Status: UNHEALTHY, Message: err.Error()}
		h.OverallStatus = UNHEALTHY
		return h
	}
	h.Components["database"] = ComponentHealth{Status: HEALTHY}

	states, err := c.processorsRepo.List(ctx)
	if err != nil {
		h.Components["processors"] = ComponentHealth{Status: UNHEALTHY, Message: err.Error()}
		h.OverallStatus = UNHEALTHY
		return h
	}
	processors := ComponentHealth{Status: HEALTHY}
	var idle []string
	for _, s := range states {
		consuming := s.Consuming
		if r, ok := c.runners[s.Name]; ok {
			consuming = r.IsConsuming()
		}
		if s.Enabled && !consuming {
			idle = append(idle, s.Name)
		}
	}
	if len(idle) > 0 {
		processors = ComponentHealth{Status: WARNING, Message: fmt.Sprintf("enabled but not consuming: %v", idle)}
	}
	h.Components["processors"] = processors
	h.OverallStatus = worse(h.OverallStatus, processors.Status)
	return h
}

func (c *Controller) ListFiles(ctx context.Context, filter repository.FileRecordFilter) (*FilePage, error) {
	files, total, err := c.records.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &FilePage{Files: files, Total: total}, nil
}

func (c *Controller) GetFile(ctx context.Context, fileId string) (*FileDetail, error) {
	rec, err := c.records.Get(ctx, fileId)
	if err != nil {
		return nil, err
	}
	events, err := c.records.Events(ctx, fileId)
	if err != nil {
		return nil, err
	}
	return &FileDetail{Record: *rec, Events: events}, nil
}

func (c *Controller) FileStatistics(ctx context.Context) (*FileStatistics, error) {
	queued, byStatus, err := c.queueSize(ctx)
	if err != nil {
		return nil, err
	}
	bySourceType, err := c.records.CountBySourceType(ctx)
	if err != nil {
		return nil, err
	}
	stats := &FileStatistics{ByStatus: byStatus, BySourceType: bySourceType, QueueSize: queued}
	for _, n := range byStatus {
		stats.Total += n
	}
	return stats, nil
}

// Reprocess puts failed, waiting and retrying records back in the queue.
// Every id is handled on its own, one bad id does not stop the others.
func (c *Controller) Reprocess(ctx context.Context, fileIds []string) (*ReprocessResult, error) {
	result := &ReprocessResult{
		ReprocessedFiles: []string{},
		FailedFiles:      []FailedFile{},
		TotalCount:       len(fileIds),
	}
	for _, id := range fileIds {
		_, err := c.records.Reprocess(ctx, id)
		switch {
		case err == nil:
			result.ReprocessedFiles = append(result.ReprocessedFiles, id)
		case errors.Is(err, repository.ErrNotEligible):
			result.FailedFiles = append(result.FailedFiles, FailedFile{FileId: id, Error: "not_eligible"})
		case errors.Is(err, repository.ErrSourceDeleted):
			result.FailedFiles = append(result.FailedFiles, FailedFile{FileId: id, Error: "source_deleted"})
		case errors.Is(err, database.ErrDoesNotExist):
			result.FailedFiles = append(result.FailedFiles, FailedFile{FileId: id, Error: "not_found"})
		default:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.FailedFiles = append(result.FailedFiles, FailedFile{FileId: id, Error: err.Error()})
		}
	}
	result.SuccessCount = len(result.ReprocessedFiles)
	L.Info(fmt.Sprintf("Reprocess: %d of %d files queued again", result.SuccessCount, result.TotalCount))
	if result.SuccessCount > 0 {
		c.Wake()
	}
	return result, nil
}

// BatchDelete removes records whatever their status. Runners working on a
// deleted record drop their result.
func (c *Controller) BatchDelete(ctx context.Context, fileIds []string) (int64, error) {
	var transcripts []string
	if c.artifacts != nil {
		for _, id := range fileIds {
			rec, err := c.records.Get(ctx, id)
			if errors.Is(err, database.ErrDoesNotExist) {
				continue
			}
			if err != nil {
				return 0, err
			}
			if rec.SourceType == model.SOURCE_TYPE_STT {
				transcripts = append(transcripts, rec.Path)
			}
		}
	}
	n, err := c.records.DeleteMany(ctx, fileIds)
	if err != nil {
		return 0, err
	}
	L.Info(fmt.Sprintf("Deleted %d of %d file records", n, len(fileIds)))
	for _, key := range transcripts {
		err := c.artifacts.Delete(ctx, key)
		if err != nil {
			L.Warn(fmt.Sprintf("Could not remove transcript %s: %v", key, err))
			continue
		}
		L.Debug(fmt.Sprintf("Removed transcript %s", c.artifacts.Location(key)))
	}
	return n, nil
}
