package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"meraki-sync/core/ledger"
	"meraki-sync/core/reconcile"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("scheduled task not found")

// ErrTaskRunning is returned when a task is executed while a previous execution is in progress.
var ErrTaskRunning = errors.New("scheduled task is already running")

// Syncer runs one sync. *reconcile.Engine implements it.
type Syncer interface {
	Run(ctx context.Context, req reconcile.Request) (*ledger.RunRecord, error)
}

// Service stores scheduled tasks and executes them.
type Service struct {
	db     *gorm.DB
	syncer Syncer
	logger *zap.Logger
	now    func() time.Time

	// dueMu keeps RunDue passes from overlapping.
	dueMu sync.Mutex

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a schedule service.
func NewService(db *gorm.DB, syncer Syncer, logger *zap.Logger, opts ...Option) *Service {
	ctx, stop := context.WithCancel(context.Background())
	s := &Service{db: db, syncer: syncer, logger: logger, now: time.Now, ctx: ctx, stop: stop}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every task ordered by next run.
func (s *Service) List(ctx context.Context) ([]ScheduledSyncTask, error) {
	var out []ScheduledSyncTask
	if err := s.db.WithContext(ctx).Order("next_run IS NULL, next_run asc, id asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list scheduled tasks: %w", err)
	}
	return out, nil
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, id uint) (*ScheduledSyncTask, error) {
	var t ScheduledSyncTask
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get scheduled task %d: %w", id, err)
	}
	return &t, nil
}

// Create validates and stores a new task. Its first run is the scheduled time, or now.
func (s *Service) Create(ctx context.Context, t *ScheduledSyncTask) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ScheduledAt.IsZero() {
		t.ScheduledAt = s.now()
	}
	next := t.ScheduledAt
	t.ID = 0
	t.NextRun = &next
	t.Status = StatusPending
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create scheduled task %s: %w", t.Name, err)
	}
	return nil
}

// Update replaces the definition of a task. Execution history is kept; a changed
// scheduled time or frequency resets the next run.
func (s *Service) Update(ctx context.Context, id uint, t *ScheduledSyncTask) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if existing.Status == StatusRunning {
		return fmt.Errorf("%w: task %d", ErrTaskRunning, id)
	}

	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt
	t.LastRun = existing.LastRun
	t.LastRunID = existing.LastRunID
	t.LastError = existing.LastError
	t.TotalRuns = existing.TotalRuns
	t.SuccessfulRuns = existing.SuccessfulRuns
	t.FailedRuns = existing.FailedRuns
	t.Status = existing.Status
	t.NextRun = existing.NextRun
	if t.ScheduledAt.IsZero() {
		t.ScheduledAt = existing.ScheduledAt
	}
	if !t.ScheduledAt.Equal(existing.ScheduledAt) || t.Frequency != existing.Frequency {
		next := t.ScheduledAt
		if next.Before(s.now()) && t.Frequency != FrequencyOnce {
			t.NextRun = nil
			next = *t.CalculateNextRun(s.now())
		}
		t.NextRun = &next
	}

	if err := s.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("failed to update scheduled task %d: %w", id, err)
	}
	return nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&ScheduledSyncTask{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete scheduled task %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// Due returns the enabled tasks whose next run is at or before now and that are not running.
func (s *Service) Due(ctx context.Context, now time.Time) ([]ScheduledSyncTask, error) {
	var out []ScheduledSyncTask
	err := s.db.WithContext(ctx).
		Where("enabled = ? AND next_run IS NOT NULL AND next_run <= ? AND status <> ?", true, now, StatusRunning).
		Order("next_run asc, id asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select due tasks: %w", err)
	}
	return out, nil
}

// InterruptedError is recorded on tasks that were still running when the process stopped.
const InterruptedError = "interrupted: the process stopped before the sync finished"

// RecoverInterrupted fails every task left running by a previous process so that
// Due selects it again. It must only be called before this process executes tasks.
func (s *Service) RecoverInterrupted(ctx context.Context) (int, error) {
	res := s.db.WithContext(ctx).Model(&ScheduledSyncTask{}).
		Where("status = ?", StatusRunning).
		Updates(map[string]any{
			"status":      StatusFailed,
			"last_error":  InterruptedError,
			"total_runs":  gorm.Expr("total_runs + 1"),
			"failed_runs": gorm.Expr("failed_runs + 1"),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to recover interrupted tasks: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Warn("Recovered interrupted scheduled tasks", zap.Int64("count", res.RowsAffected))
	}
	return int(res.RowsAffected), nil
}

// RunDue executes every due task in order and returns how many ran.
// A failing task is recorded and rescheduled; the remaining tasks still run.
func (s *Service) RunDue(ctx context.Context, now time.Time) (int, error) {
	s.dueMu.Lock()
	defer s.dueMu.Unlock()

	tasks, err := s.Due(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		s.logger.Debug("No scheduled tasks due")
		return 0, nil
	}

	s.logger.Info("Executing due scheduled tasks", zap.Int("count", len(tasks)))
	ran := 0
	for i := range tasks {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.execute(ctx, &tasks[i], true); err != nil {
			s.logger.Error("Scheduled task could not be executed", zap.String("task", tasks[i].Name), zap.Error(err))
			continue
		}
		ran++
	}
	return ran, nil
}

// RunNow executes a task in the background. The next run is left unchanged.
func (s *Service) RunNow(id uint) (*ScheduledSyncTask, error) {
	t, err := s.Get(s.ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusRunning {
		return nil, fmt.Errorf("%w: task %d", ErrTaskRunning, id)
	}

	task := *t
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.execute(s.ctx, &task, false); err != nil {
			s.logger.Error("Manual task execution failed", zap.Uint("task_id", id), zap.Error(err))
		}
	}()
	return t, nil
}

// Wait blocks until every background execution has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown cancels background executions and waits for them.
func (s *Service) Shutdown() {
	s.stop()
	s.wg.Wait()
}

// execute runs one task and records its outcome. The returned error covers only
// bookkeeping failures; a failed sync is recorded on the task.
func (s *Service) execute(ctx context.Context, t *ScheduledSyncTask, reschedule bool) (*ledger.RunRecord, error) {
	logger := s.logger.With(zap.Uint("task_id", t.ID), zap.String("task", t.Name))
	persist := context.WithoutCancel(ctx)

	started := s.now()
	res := s.db.WithContext(persist).Model(&ScheduledSyncTask{}).
		Where("id = ? AND status <> ?", t.ID, StatusRunning).
		Updates(map[string]any{"status": StatusRunning, "last_run": started})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to mark task running: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: task %d", ErrTaskRunning, t.ID)
	}
	t.Status = StatusRunning
	t.LastRun = &started

	logger.Info("Scheduled task started",
		zap.String("sync_mode", string(t.SyncMode)),
		zap.String("execution_mode", string(t.ExecutionMode)),
	)
	run, runErr := s.syncer.Run(ctx, t.Request())

	t.TotalRuns++
	switch {
	case runErr != nil:
		t.Status = StatusFailed
		t.FailedRuns++
		t.LastError = runErr.Error()
	case !run.Status.Succeeded():
		t.Status = StatusFailed
		t.FailedRuns++
		t.LastError = run.Message
	default:
		t.Status = StatusCompleted
		t.SuccessfulRuns++
		t.LastError = ""
	}
	if errors.Is(runErr, context.Canceled) {
		t.Status = StatusCancelled
	}
	if run != nil {
		id := run.ID
		t.LastRunID = &id
	}
	if reschedule {
		t.NextRun = t.CalculateNextRun(s.now())
	}

	if err := s.db.WithContext(persist).Save(t).Error; err != nil {
		return run, fmt.Errorf("failed to record task outcome: %w", err)
	}

	fields := []zap.Field{zap.String("status", string(t.Status))}
	if t.NextRun != nil {
		fields = append(fields, zap.Time("next_run", *t.NextRun))
	}
	if t.Status == StatusCompleted {
		logger.Info("Scheduled task finished", fields...)
	} else {
		logger.Warn("Scheduled task failed", append(fields, zap.String("error", t.LastError))...)
	}
	return run, nil
}
