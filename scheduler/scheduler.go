package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"filepipe/database"
	"filepipe/database/model"
	"filepipe/database/repository"
	L "filepipe/logger"
	"filepipe/registry"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// MaxInterval bounds task intervals well below the range of time.Duration.
const MaxInterval = 366 * 24 * time.Hour

// INTERRUPTED is the error of executions a killed process left running
const INTERRUPTED = "interrupted"

var ErrInvalidInterval = fmt.Errorf("%w: interval_seconds must be between 1 and %d", registry.ErrValidation, int64(MaxInterval/time.Second))
var ErrUnknownTask = errors.New("unknown task")
var ErrTaskRunning = errors.New("task is already running")

// Job does the work of one execution. The returned value is stored as the
// execution result.
type Job func(ctx context.Context) (any, error)

type TaskDef struct {
	Id              string
	Name            string
	Description     string
	DefaultEnabled  bool
	DefaultInterval time.Duration
	Run             Job
}

type TaskUpdate struct {
	Enabled         *bool
	IntervalSeconds *int64
}

type TaskInfo struct {
	model.TaskConfig
	SkippedRuns int64 `json:"skipped_runs"`
}

type task struct {
	def   TaskDef
	entry cron.EntryID
	// interval of the current cron entry
	every   time.Duration
	busy    atomic.Bool
	skipped atomic.Int64
}

type Scheduler struct {
	tasks repository.TaskRepository

	mu      sync.Mutex
	defs    map[string]*task
	cron    *cron.Cron
	running bool
	baseCtx context.Context
	// executions started by RunNow, cron tracks its own jobs
	wg sync.WaitGroup

	now func() time.Time
}

func New(db *database.DB) *Scheduler {
	return &Scheduler{
		tasks:   repository.NewTaskRepository(db),
		defs:    map[string]*task{},
		baseCtx: context.Background(),
		now:     time.Now,
	}
}

// Register adds a task definition. Tasks must be registered before Run.
func (s *Scheduler) Register(def TaskDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("cannot register %s on a running scheduler", def.Id)
	}
	if def.Id == "" || def.Run == nil {
		return fmt.Errorf("task definition needs an id and a job")
	}
	if def.DefaultInterval < time.Second || def.DefaultInterval > MaxInterval {
		return fmt.Errorf("task %s: %w", def.Id, ErrInvalidInterval)
	}
	if _, ok := s.defs[def.Id]; ok {
		return fmt.Errorf("task %s is already registered", def.Id)
	}
	s.defs[def.Id] = &task{def: def}
	return nil
}

// Sync writes registered tasks to the store. Schedules changed by an operator
// are kept.
func (s *Scheduler) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.defs {
		_, err := s.tasks.Sync(ctx, &model.TaskConfig{
			TaskId:          t.def.Id,
			TaskName:        t.def.Name,
			Description:     t.def.Description,
			Enabled:         t.def.DefaultEnabled,
			IntervalSeconds: int64(t.def.DefaultInterval / time.Second),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Run schedules every enabled task and starts ticking. Executions a killed
// process left running are recorded as failed first.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Sync(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	n, err := s.tasks.RecoverInterrupted(ctx, s.now(), INTERRUPTED)
	if err != nil {
		return err
	}
	if n > 0 {
		L.Warn(fmt.Sprintf("%d task executions were interrupted by an earlier shutdown", n))
	}
	s.baseCtx = context.WithoutCancel(ctx)
	s.cron = cron.New()
	for id, t := range s.defs {
		cfg, err := s.tasks.GetTaskById(ctx, id)
		if err != nil {
			return err
		}
		if cfg.Enabled {
			if err := s.schedule(ctx, t, cfg); err != nil {
				return err
			}
		}
	}
	s.cron.Start()
	s.running = true
	L.Info(fmt.Sprintf("Scheduler is running with %d tasks", len(s.defs)))
	return nil
}

// Shutdown stops ticking and waits for running executions until ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	// done once jobs already dispatched by cron return
	ticks := s.cron.Stop()
	for _, t := range s.defs {
		t.entry = 0
		t.every = 0
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-ticks.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		L.Debug("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stopped with executions still running: %w", ctx.Err())
	}
}

// schedule replaces the cron entry of t according to cfg. Callers hold s.mu.
func (s *Scheduler) schedule(ctx context.Context, t *task, cfg *model.TaskConfig) error {
	if t.entry != 0 {
		s.cron.Remove(t.entry)
		t.entry = 0
		t.every = 0
	}
	if !cfg.Enabled {
		return nil
	}
	t.every = cfg.Interval()
	t.entry = s.cron.Schedule(cron.Every(cfg.Interval()), cron.FuncJob(func() {
		s.tick(t)
	}))
	next := s.now().Add(cfg.Interval())
	return s.tasks.UpdateSchedule(ctx, cfg.TaskId, true, cfg.IntervalSeconds, &next)
}

// Refresh picks up schedule changes written by other processes.
func (s *Scheduler) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	for id, t := range s.defs {
		cfg, err := s.tasks.GetTaskById(ctx, id)
		if err != nil {
			return err
		}
		scheduled := t.entry != 0
		if cfg.Enabled == scheduled && (!scheduled || t.every == cfg.Interval()) {
			continue
		}
		L.Info(fmt.Sprintf("Task %s schedule changed, rescheduling", id))
		if err := s.schedule(ctx, t, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) lookup(taskId string) (*task, error) {
	t, ok := s.defs[taskId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskId)
	}
	return t, nil
}

func (s *Scheduler) Get(ctx context.Context, taskId string) (*TaskInfo, error) {
	s.mu.Lock()
	t, err := s.lookup(taskId)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	cfg, err := s.tasks.GetTaskById(ctx, taskId)
	if err != nil {
		return nil, err
	}
	return &TaskInfo{TaskConfig: *cfg, SkippedRuns: t.skipped.Load()}, nil
}

func (s *Scheduler) List(ctx context.Context) ([]TaskInfo, error) {
	configs, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]TaskInfo, 0, len(configs))
	for _, cfg := range configs {
		info := TaskInfo{TaskConfig: cfg}
		if t, ok := s.defs[cfg.TaskId]; ok {
			info.SkippedRuns = t.skipped.Load()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Update changes whether a task runs and how often. A running scheduler picks
// the change up right away.
func (s *Scheduler) Update(ctx context.Context, taskId string, upd TaskUpdate) (*model.TaskConfig, error) {
	if upd.IntervalSeconds != nil && (*upd.IntervalSeconds <= 0 || *upd.IntervalSeconds > int64(MaxInterval/time.Second)) {
		return nil, fmt.Errorf("%s: %w", taskId, ErrInvalidInterval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(taskId)
	if err != nil {
		return nil, err
	}
	cfg, err := s.tasks.GetTaskById(ctx, taskId)
	if err != nil {
		return nil, err
	}
	if upd.Enabled != nil {
		cfg.Enabled = *upd.Enabled
	}
	if upd.IntervalSeconds != nil {
		cfg.IntervalSeconds = *upd.IntervalSeconds
	}
	var next *time.Time
	if cfg.Enabled {
		n := s.now().Add(cfg.Interval())
		next = &n
	}
	err = s.tasks.UpdateSchedule(ctx, taskId, cfg.Enabled, cfg.IntervalSeconds, next)
	if err != nil {
		return nil, err
	}
	if s.running {
		if err := s.schedule(ctx, t, cfg); err != nil {
			return nil, err
		}
	}
	L.Info(fmt.Sprintf("Task %s: enabled=%t interval=%s", taskId, cfg.Enabled, L.HumanReadableTime(cfg.Interval().Milliseconds())))
	return s.tasks.GetTaskById(ctx, taskId)
}

func (s *Scheduler) Start(ctx context.Context, taskId string) (*model.TaskConfig, error) {
	enabled := true
	return s.Update(ctx, taskId, TaskUpdate{Enabled: &enabled})
}

// Stop cancels future ticks. An execution in progress still completes.
func (s *Scheduler) Stop(ctx context.Context, taskId string) (*model.TaskConfig, error) {
	enabled := false
	return s.Update(ctx, taskId, TaskUpdate{Enabled: &enabled})
}

func (s *Scheduler) Executions(ctx context.Context, taskId string, limit int) ([]model.Execution, error) {
	s.mu.Lock()
	_, err := s.lookup(taskId)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.tasks.ListExecutions(ctx, taskId, limit)
}

// RunNow runs a task right away and waits for it. It fails with
// ErrTaskRunning when an execution is already in progress.
func (s *Scheduler) RunNow(ctx context.Context, taskId string) (*model.Execution, error) {
	s.mu.Lock()
	t, err := s.lookup(taskId)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !t.busy.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%s: %w", taskId, ErrTaskRunning)
	}
	defer t.busy.Store(false)
	s.wg.Add(1)
	defer s.wg.Done()
	return s.execute(ctx, t)
}

// tick runs on every cron activation. Overlapping ticks are dropped.
func (s *Scheduler) tick(t *task) {
	if !t.busy.CompareAndSwap(false, true) {
		n := t.skipped.Add(1)
		L.Warn(fmt.Sprintf("Task %s is still running, skipping this tick (%d skipped so far)", t.def.Id, n))
		return
	}
	defer t.busy.Store(false)
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	_, err := s.execute(ctx, t)
	if err != nil {
		L.Error(fmt.Errorf("task %s: %w", t.def.Id, err))
	}
}

// execute records one execution of t. Callers own t.busy.
func (s *Scheduler) execute(ctx context.Context, t *task) (exec *model.Execution, err error) {
	cfg, err := s.tasks.GetTaskById(ctx, t.def.Id)
	if err != nil {
		return nil, err
	}
	start := s.now()
	var next *time.Time
	if cfg.Enabled {
		n := start.Add(cfg.Interval())
		next = &n
	}
	if err := s.tasks.MarkStarted(ctx, t.def.Id, start, next); err != nil {
		return nil, err
	}
	defer func() {
		if ferr := s.tasks.MarkFinished(context.WithoutCancel(ctx), t.def.Id); ferr != nil && err == nil {
			err = ferr
		}
	}()

	exec = &model.Execution{
		Id:        uuid.NewString(),
		TaskId:    t.def.Id,
		StartTime: start,
		Status:    model.EXECUTION_STATUS_RUNNING,
	}
	if err := s.tasks.CreateExecution(ctx, exec); err != nil {
		return nil, err
	}
	L.Info(fmt.Sprintf("Running task %s", t.def.Id))

	result, runErr := s.runJob(ctx, t)
	end := s.now()
	exec.EndTime = &end
	exec.ExecutionTimeMs = end.Sub(start).Milliseconds()
	if runErr != nil {
		exec.Status = model.EXECUTION_STATUS_FAILED
		exec.Error = runErr.Error()
		L.Warn(fmt.Sprintf("Task %s failed after %s: %v", t.def.Id, L.HumanReadableTime(exec.ExecutionTimeMs), runErr))
	} else {
		exec.Status = model.EXECUTION_STATUS_SUCCESS
		if result != nil {
			data, err := json.Marshal(result)
			if err != nil {
				L.Warn(fmt.Sprintf("could not encode result of task %s: %v", t.def.Id, err))
			} else {
				exec.Result = data
			}
		}
		L.Info(fmt.Sprintf("Task %s finished in %s", t.def.Id, L.HumanReadableTime(exec.ExecutionTimeMs)))
	}
	if err := s.tasks.FinishExecution(context.WithoutCancel(ctx), exec); err != nil {
		return exec, err
	}
	return exec, nil
}

func (s *Scheduler) runJob(ctx context.Context, t *task) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in task %s: %v", t.def.Id, p)
		}
	}()
	return t.def.Run(ctx)
}
