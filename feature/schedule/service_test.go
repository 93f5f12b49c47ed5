package schedule_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"meraki-sync/core/database"
	"meraki-sync/core/ledger"
	"meraki-sync/core/reconcile"
	"meraki-sync/feature/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeSyncer returns canned outcomes keyed by organization id.
type fakeSyncer struct {
	mu       sync.Mutex
	requests []reconcile.Request
	status   map[string]ledger.RunStatus
	err      map[string]error
	nextID   uint
}

func (f *fakeSyncer) Run(_ context.Context, req reconcile.Request) (*ledger.RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.nextID++
	if err := f.err[req.Scope.OrganizationID]; err != nil {
		return nil, err
	}
	status, ok := f.status[req.Scope.OrganizationID]
	if !ok {
		status = ledger.RunSuccess
	}
	return &ledger.RunRecord{ID: f.nextID, Mode: req.Mode, Status: status, Message: "run " + string(status)}, nil
}

var clock = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, syncer schedule.Syncer) (*schedule.Service, *gorm.DB) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, schedule.Models()...))
	svc := schedule.NewService(db, syncer, zap.NewNop(), schedule.WithClock(func() time.Time { return clock }))
	t.Cleanup(svc.Shutdown)
	return svc, db
}

func createTask(t *testing.T, svc *schedule.Service, name, org string, freq schedule.Frequency, at time.Time) *schedule.ScheduledSyncTask {
	t.Helper()
	task := schedule.NewTask()
	task.Name = name
	task.OrganizationID = org
	task.Frequency = freq
	task.ScheduledAt = at
	require.NoError(t, svc.Create(context.Background(), &task))
	return &task
}

func TestRunDue_ExecutesAndReschedules(t *testing.T) {
	ctx := context.Background()
	syncer := &fakeSyncer{
		status: map[string]ledger.RunStatus{"O2": ledger.RunFailed},
		err:    map[string]error{"O3": errors.New("inventory unreachable")},
	}
	svc, _ := newService(t, syncer)

	ok := createTask(t, svc, "ok", "O1", schedule.FrequencyHourly, clock.Add(-10*time.Minute))
	failed := createTask(t, svc, "failed", "O2", schedule.FrequencyDaily, clock.Add(-time.Minute))
	broken := createTask(t, svc, "broken", "O3", schedule.FrequencyOnce, clock.Add(-time.Minute))
	future := createTask(t, svc, "future", "O4", schedule.FrequencyDaily, clock.Add(time.Hour))

	n, err := svc.RunDue(ctx, clock)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, syncer.requests, 3)

	got, err := svc.Get(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusCompleted, got.Status)
	assert.Equal(t, 1, got.SuccessfulRuns)
	require.NotNil(t, got.NextRun)
	assert.True(t, clock.Add(50*time.Minute).Equal(*got.NextRun))
	require.NotNil(t, got.LastRunID)

	got, err = svc.Get(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusFailed, got.Status)
	assert.Equal(t, 1, got.FailedRuns)
	assert.Equal(t, "run failed", got.LastError)
	require.NotNil(t, got.NextRun)

	got, err = svc.Get(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusFailed, got.Status)
	assert.Equal(t, "inventory unreachable", got.LastError)
	assert.Nil(t, got.NextRun)

	got, err = svc.Get(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusPending, got.Status)
	assert.Zero(t, got.TotalRuns)

	// An hour later the hourly task and the future task are due; the one-time task never is.
	n, err = svc.RunDue(ctx, clock.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunDue_SkipsRunningAndDisabled(t *testing.T) {
	ctx := context.Background()
	syncer := &fakeSyncer{}
	svc, db := newService(t, syncer)

	running := createTask(t, svc, "running", "O1", schedule.FrequencyDaily, clock.Add(-time.Minute))
	require.NoError(t, db.Model(running).Update("status", schedule.StatusRunning).Error)
	disabled := createTask(t, svc, "disabled", "O2", schedule.FrequencyDaily, clock.Add(-time.Minute))
	require.NoError(t, db.Model(disabled).Update("enabled", false).Error)

	n, err := svc.RunDue(ctx, clock)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, syncer.requests)

	_, err = svc.RunNow(running.ID)
	assert.ErrorIs(t, err, schedule.ErrTaskRunning)
	err = svc.Update(ctx, running.ID, running)
	assert.ErrorIs(t, err, schedule.ErrTaskRunning)
}

func TestRecoverInterrupted_ReleasesStaleRunningTasks(t *testing.T) {
	ctx := context.Background()
	syncer := &fakeSyncer{}
	svc, db := newService(t, syncer)

	stale := createTask(t, svc, "stale", "O1", schedule.FrequencyDaily, clock.Add(-time.Minute))
	require.NoError(t, db.Model(stale).Update("status", schedule.StatusRunning).Error)
	idle := createTask(t, svc, "idle", "O2", schedule.FrequencyDaily, clock.Add(time.Hour))

	n, err := svc.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusFailed, got.Status)
	assert.Equal(t, schedule.InterruptedError, got.LastError)
	assert.Equal(t, 1, got.TotalRuns)
	assert.Equal(t, 1, got.FailedRuns)

	got, err = svc.Get(ctx, idle.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusPending, got.Status)

	ran, err := svc.RunDue(ctx, clock)
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
	require.Len(t, syncer.requests, 1)
	assert.Equal(t, "O1", syncer.requests[0].Scope.OrganizationID)

	n, err = svc.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunNow_KeepsNextRun(t *testing.T) {
	ctx := context.Background()
	syncer := &fakeSyncer{}
	svc, _ := newService(t, syncer)

	task := createTask(t, svc, "weekly", "O1", schedule.FrequencyWeekly, clock.Add(48*time.Hour))
	_, err := svc.RunNow(task.ID)
	require.NoError(t, err)
	svc.Wait()

	got, err := svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusCompleted, got.Status)
	assert.Equal(t, 1, got.TotalRuns)
	require.NotNil(t, got.NextRun)
	assert.True(t, clock.Add(48*time.Hour).Equal(*got.NextRun))

	_, err = svc.RunNow(999)
	assert.ErrorIs(t, err, schedule.ErrNotFound)
}

func TestUpdate_ResetsNextRunOnNewSchedule(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &fakeSyncer{})

	task := createTask(t, svc, "daily", "O1", schedule.FrequencyDaily, clock.Add(time.Hour))
	task.Frequency = schedule.FrequencyHourly
	task.ScheduledAt = clock.Add(-30 * time.Minute)
	task.TotalRuns = 99
	require.NoError(t, svc.Update(ctx, task.ID, task))

	got, err := svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.FrequencyHourly, got.Frequency)
	assert.Zero(t, got.TotalRuns)
	require.NotNil(t, got.NextRun)
	assert.True(t, clock.Add(30*time.Minute).Equal(*got.NextRun))

	assert.NoError(t, svc.Delete(ctx, task.ID))
	assert.ErrorIs(t, svc.Delete(ctx, task.ID), schedule.ErrNotFound)
}

func TestRunner(t *testing.T) {
	svc, _ := newService(t, &fakeSyncer{})

	_, err := schedule.NewRunner(svc, "not a spec", zap.NewNop())
	assert.Error(t, err)

	r, err := schedule.NewRunner(svc, "@every 1h", zap.NewNop())
	require.NoError(t, err)
	r.Start()
	r.Stop()
}
