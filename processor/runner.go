package processor

import (
	"context"
	"errors"
	"filepipe/database"
	"filepipe/database/model"
	"filepipe/database/repository"
	L "filepipe/logger"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

type RunnerOptions struct {
	Workers      int
	PollInterval time.Duration
	BatchSize    int
}

func (o *RunnerOptions) normalize() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 32
	}
}

// Runner feeds claimable records to one processor through a bounded worker
// pool. A record is only ever handled by the runner that won its claim.
type Runner struct {
	processor Processor
	records   repository.FileRecordRepository
	fetcher   Fetcher
	opts      RunnerOptions
	stats     Stats

	// guards start and stop, held for the whole drain
	mu        sync.Mutex
	pool      *ants.Pool
	cancel    context.CancelFunc
	loopDone  chan struct{}
	consuming atomic.Bool
	inFlight  sync.WaitGroup

	pendingMu sync.Mutex
	pending   map[string]bool

	wake      chan struct{}
	onDerived atomic.Pointer[func()]
}

func NewRunner(p Processor, records repository.FileRecordRepository, fetcher Fetcher, opts RunnerOptions) *Runner {
	opts.normalize()
	return &Runner{
		processor: p,
		records:   records,
		fetcher:   fetcher,
		opts:      opts,
		pending:   map[string]bool{},
		wake:      make(chan struct{}, 1),
	}
}

func (r *Runner) Name() string {
	return r.processor.Name()
}

func (r *Runner) Processor() Processor {
	return r.processor
}

func (r *Runner) IsConsuming() bool {
	return r.consuming.Load()
}

func (r *Runner) Stats() model.ProcessorStats {
	return r.stats.Snapshot()
}

// Workers is the pool size while consuming, zero otherwise.
func (r *Runner) Workers() int {
	if !r.IsConsuming() {
		return 0
	}
	return r.opts.Workers
}

// OnDerived registers a callback run after a record produced derived records.
func (r *Runner) OnDerived(fn func()) {
	r.onDerived.Store(&fn)
}

// Wake makes the poll loop look for work without waiting for the next tick.
func (r *Runner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Start begins consuming. It returns false when the runner was already
// consuming. Statistics are reset on every actual start.
func (r *Runner) Start(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return false, nil
	}
	name := r.processor.Name()
	pool, err := ants.NewPool(r.opts.Workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			L.Error(fmt.Errorf("worker of %s panicked: %v", name, p))
		}),
	)
	if err != nil {
		return false, fmt.Errorf("could not create worker pool for %s: %w", name, err)
	}
	r.stats.Reset()
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.pool = pool
	r.cancel = cancel
	r.loopDone = make(chan struct{})
	r.consuming.Store(true)
	go r.loop(loopCtx, pool, r.loopDone)
	L.Info(fmt.Sprintf("Processor %s is consuming with %d workers", name, r.opts.Workers))
	return true, nil
}

// Stop stops claiming new records and waits for in-flight records until ctx
// is done. It returns false when the runner was not consuming.
func (r *Runner) Stop(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false, nil
	}
	name := r.processor.Name()
	r.cancel()
	<-r.loopDone
	r.consuming.Store(false)
	pool := r.pool
	r.cancel = nil
	r.pool = nil
	defer pool.Release()

	drained := make(chan struct{})
	go func() {
		r.inFlight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		L.Info(fmt.Sprintf("Processor %s stopped", name))
		return true, nil
	case <-ctx.Done():
		L.Warn(fmt.Sprintf("Processor %s stopped before %d in-flight records drained", name, pool.Running()))
		return true, fmt.Errorf("could not drain %s: %w", name, ctx.Err())
	}
}

func (r *Runner) loop(ctx context.Context, pool *ants.Pool, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()
	for {
		r.poll(ctx, pool)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.wake:
		}
	}
}

func (r *Runner) markPending(fileId string) bool {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	if r.pending[fileId] {
		return false
	}
	r.pending[fileId] = true
	return true
}

func (r *Runner) unmarkPending(fileId string) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	delete(r.pending, fileId)
}

func (r *Runner) poll(ctx context.Context, pool *ants.Pool) {
	if pool.Free() == 0 {
		return
	}
	candidates, err := r.records.ListClaimable(ctx, r.processor.FileTypes(), r.opts.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			L.Error(fmt.Errorf("%s could not list candidates: %w", r.processor.Name(), err))
		}
		return
	}
	// in-flight work outlives the poll loop
	workCtx := context.WithoutCancel(ctx)
	for i := range candidates {
		if ctx.Err() != nil {
			return
		}
		rec := candidates[i]
		if !r.processor.CanProcess(&rec) || !r.markPending(rec.FileId) {
			continue
		}
		r.inFlight.Add(1)
		err := pool.Submit(func() {
			defer r.inFlight.Done()
			defer r.unmarkPending(rec.FileId)
			r.handle(workCtx, &rec)
		})
		if err != nil {
			r.inFlight.Done()
			r.unmarkPending(rec.FileId)
			if !errors.Is(err, ants.ErrPoolOverload) {
				L.Error(fmt.Errorf("%s could not submit %s: %w", r.processor.Name(), rec.FileId, err))
			}
			return
		}
	}
}

func (r *Runner) handle(ctx context.Context, rec *model.FileRecord) {
	name := r.processor.Name()
	claimed, err := r.records.Claim(ctx, rec.FileId, name)
	if err != nil {
		L.Error(fmt.Errorf("%s could not claim %s: %w", name, rec.FileId, err))
		return
	}
	if !claimed {
		r.stats.skipped.Add(1)
		L.Debug(fmt.Sprintf("%s lost the claim on %s", name, rec.FileId))
		return
	}
	r.stats.processed.Add(1)
	rec.Status = model.FILE_STATUS_PROCESSING
	L.Debug(fmt.Sprintf("%s claimed %s", name, rec))

	start := time.Now()
	res, err := r.run(ctx, rec)
	if err != nil {
		r.fail(ctx, rec, err.Error())
		return
	}
	err = r.records.Complete(ctx, rec.FileId, name, res.Derived)
	if err != nil {
		if errors.Is(err, database.ErrDoesNotExist) {
			L.Warn(fmt.Sprintf("%s was deleted while %s worked on it, dropping the result", rec.FileId, name))
			return
		}
		r.fail(ctx, rec, fmt.Sprintf("could not save result: %v", err))
		return
	}
	r.stats.success.Add(1)
	L.Info(fmt.Sprintf("%s processed %s in %s", name, rec.FileName, L.HumanReadableTime(time.Since(start).Milliseconds())))
	if len(res.Derived) > 0 {
		if fn := r.onDerived.Load(); fn != nil {
			(*fn)()
		}
	}
}

func (r *Runner) run(ctx context.Context, rec *model.FileRecord) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = fmt.Errorf("panic in %s: %v", r.processor.Name(), p)
		}
	}()
	res, err = r.processor.Process(ctx, rec, r.loader(rec))
	if err == nil && res == nil {
		res = &Result{}
	}
	return res, err
}

// loader fetches content for rec. Remote records go through downloading while
// the transfer runs.
func (r *Runner) loader(rec *model.FileRecord) Loader {
	name := r.processor.Name()
	return func(ctx context.Context) ([]byte, error) {
		if rec.SourceType != model.SOURCE_TYPE_FTP {
			return r.fetcher.Fetch(ctx, rec)
		}
		err := r.records.Transition(ctx, rec.FileId, model.FILE_STATUS_PROCESSING, model.FILE_STATUS_DOWNLOADING, name, "")
		if err != nil {
			return nil, err
		}
		rec.Status = model.FILE_STATUS_DOWNLOADING
		data, err := r.fetcher.Fetch(ctx, rec)
		if err != nil {
			return nil, err
		}
		err = r.records.Transition(ctx, rec.FileId, model.FILE_STATUS_DOWNLOADING, model.FILE_STATUS_PROCESSING, name,
			"downloaded "+L.HumanReadableBytes(uint64(len(data)), 1))
		if err != nil {
			return nil, err
		}
		rec.Status = model.FILE_STATUS_PROCESSING
		return data, nil
	}
}

func (r *Runner) fail(ctx context.Context, rec *model.FileRecord, message string) {
	name := r.processor.Name()
	r.stats.failed.Add(1)
	err := r.records.Fail(ctx, rec.FileId, name, message)
	if err != nil {
		if errors.Is(err, database.ErrDoesNotExist) {
			L.Warn(fmt.Sprintf("%s was deleted while %s worked on it, dropping the failure", rec.FileId, name))
			return
		}
		L.Error(fmt.Errorf("%s could not mark %s as failed: %w", name, rec.FileId, err))
		return
	}
	L.Warn(fmt.Sprintf("%s failed %s: %s", name, rec.FileName, message))
}
