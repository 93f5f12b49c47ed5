package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Progress levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// initialStatus is the status a run carries while it executes.
func initialStatus(m Mode) RunStatus {
	switch m {
	case ModeDryRun:
		return RunDryRun
	case ModeReview:
		return RunPendingReview
	default:
		return RunRunning
	}
}

// CreateRun persists a new run record for the given scope.
func (r *Repository) CreateRun(ctx context.Context, mode Mode, orgID string, networkIDs []string) (*RunRecord, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown sync mode %q", mode)
	}
	run := &RunRecord{
		Mode:           mode,
		Status:         initialStatus(mode),
		OrganizationID: orgID,
		NetworkIDs:     datatypes.JSONSlice[string](networkIDs),
		Errors:         datatypes.JSONSlice[string]{},
		ProgressLogs:   datatypes.JSONSlice[ProgressEntry]{},
		StartedAt:      r.now(),
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}
	return run, nil
}

// GetRun loads a run by id.
func (r *Repository) GetRun(ctx context.Context, id uint) (*RunRecord, error) {
	var run RunRecord
	if err := r.db.WithContext(ctx).First(&run, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunRecord
	if err := r.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// AddProgress appends a progress entry and persists it immediately.
func (r *Repository) AddProgress(ctx context.Context, run *RunRecord, level, message string) error {
	run.ProgressLogs = append(run.ProgressLogs, ProgressEntry{
		Timestamp: r.now(),
		Level:     level,
		Message:   message,
	})
	return r.updateRun(ctx, run, map[string]any{"progress_logs": run.ProgressLogs})
}

// UpdateProgress records the current operation and percentage immediately.
func (r *Repository) UpdateProgress(ctx context.Context, run *RunRecord, operation string, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	run.CurrentOperation = operation
	run.ProgressPercent = percent
	return r.updateRun(ctx, run, map[string]any{
		"current_operation": operation,
		"progress_percent":  percent,
	})
}

// AppendError adds an error line to the run and persists it immediately.
func (r *Repository) AppendError(ctx context.Context, run *RunRecord, message string) error {
	run.Errors = append(run.Errors, message)
	return r.updateRun(ctx, run, map[string]any{"errors": run.Errors})
}

// RequestCancel flags a running sync for cancellation. It is observed between organizations.
func (r *Repository) RequestCancel(ctx context.Context, id uint) error {
	run, err := r.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run.FinishedAt != nil {
		return fmt.Errorf("%w: run %d already finished", ErrInvalidTransition, id)
	}
	now := r.now()
	return r.updateRun(ctx, run, map[string]any{
		"cancel_requested":    true,
		"cancel_requested_at": &now,
	})
}

// CancelRequested reads the persisted cancel flag.
func (r *Repository) CancelRequested(ctx context.Context, id uint) (bool, error) {
	var flag bool
	err := r.db.WithContext(ctx).Model(&RunRecord{}).Where("id = ?", id).Select("cancel_requested").Scan(&flag).Error
	if err != nil {
		return false, fmt.Errorf("failed to read cancel flag: %w", err)
	}
	return flag, nil
}

// FinishRun stamps the finish time and duration and saves counters, status and message.
// The cancel flag is owned by RequestCancel and never overwritten here.
func (r *Repository) FinishRun(ctx context.Context, run *RunRecord) error {
	now := r.now()
	run.FinishedAt = &now
	run.DurationSeconds = now.Sub(run.StartedAt).Seconds()
	err := r.db.WithContext(ctx).Model(run).Select("*").Omit("cancel_requested", "cancel_requested_at").Updates(run).Error
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}
	return nil
}

func (r *Repository) updateRun(ctx context.Context, run *RunRecord, columns map[string]any) error {
	if err := r.db.WithContext(ctx).Model(&RunRecord{}).Where("id = ?", run.ID).Updates(columns).Error; err != nil {
		return fmt.Errorf("failed to update run %d: %w", run.ID, err)
	}
	return nil
}

func (r *Repository) now() time.Time {
	return r.clock().UTC()
}
