package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"meraki-sync/core/ledger"
	"meraki-sync/core/reconcile"

	"gorm.io/datatypes"
)

// ErrInvalidTask is wrapped by every task validation failure.
var ErrInvalidTask = errors.New("invalid scheduled task")

// SyncMode selects the networks a task covers.
type SyncMode string

const (
	SyncFull          SyncMode = "full"
	SyncSelective     SyncMode = "selective"
	SyncSingleNetwork SyncMode = "single_network"
)

// Frequency is how often a task repeats.
type Frequency string

const (
	FrequencyOnce   Frequency = "once"
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// Interval returns the repeat interval. ok is false for one-time tasks and unknown values.
func (f Frequency) Interval() (time.Duration, bool) {
	switch f {
	case FrequencyHourly:
		return time.Hour, true
	case FrequencyDaily:
		return 24 * time.Hour, true
	case FrequencyWeekly:
		return 7 * 24 * time.Hour, true
	}
	return 0, false
}

// TaskStatus is the outcome of the latest execution.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

// ScheduledSyncTask is a stored sync invocation with a repeat frequency.
type ScheduledSyncTask struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string `gorm:"size:500" json:"description"`

	SyncMode         SyncMode                    `gorm:"size:20;not null" json:"sync_mode"`
	OrganizationID   string                      `gorm:"size:64" json:"organization_id"`
	SelectedNetworks datatypes.JSONSlice[string] `json:"selected_networks"`
	ExecutionMode    ledger.Mode                 `gorm:"size:20;not null" json:"execution_mode"`

	SyncSites       bool `json:"sync_sites"`
	SyncDevices     bool `json:"sync_devices"`
	SyncVLANs       bool `gorm:"column:sync_vlans" json:"sync_vlans"`
	SyncPrefixes    bool `json:"sync_prefixes"`
	SyncInterfaces  bool `json:"sync_interfaces"`
	SyncIPAddresses bool `gorm:"column:sync_ip_addresses" json:"sync_ip_addresses"`
	SyncSSIDs       bool `gorm:"column:sync_ssids" json:"sync_ssids"`
	CleanupOrphaned bool `json:"cleanup_orphaned"`

	Frequency   Frequency  `gorm:"size:10;not null" json:"frequency"`
	ScheduledAt time.Time  `json:"scheduled_datetime"`
	NextRun     *time.Time `gorm:"index" json:"next_run,omitempty"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	Enabled     bool       `gorm:"index" json:"enabled"`

	Status         TaskStatus `gorm:"size:10;not null;index" json:"status"`
	TotalRuns      int        `json:"total_runs"`
	SuccessfulRuns int        `json:"successful_runs"`
	FailedRuns     int        `json:"failed_runs"`
	LastError      string     `gorm:"type:text" json:"last_error,omitempty"`
	LastRunID      *uint      `json:"last_run_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ScheduledSyncTask) TableName() string {
	return "sync_scheduled_tasks"
}

// Models returns the tables owned by this package.
func Models() []any {
	return []any{&ScheduledSyncTask{}}
}

// NewTask returns a task with every component enabled, running daily in auto mode.
func NewTask() ScheduledSyncTask {
	return ScheduledSyncTask{
		SyncMode:        SyncFull,
		ExecutionMode:   ledger.ModeAuto,
		SyncSites:       true,
		SyncDevices:     true,
		SyncVLANs:       true,
		SyncPrefixes:    true,
		SyncInterfaces:  true,
		SyncIPAddresses: true,
		SyncSSIDs:       true,
		CleanupOrphaned: true,
		Frequency:       FrequencyDaily,
		Enabled:         true,
		Status:          StatusPending,
	}
}

// Validate checks a task before it is stored.
func (t *ScheduledSyncTask) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTask)
	}
	switch t.SyncMode {
	case SyncFull:
	case SyncSelective, SyncSingleNetwork:
		if len(t.SelectedNetworks) == 0 {
			return fmt.Errorf("%w: %s sync needs selected_networks", ErrInvalidTask, t.SyncMode)
		}
	default:
		return fmt.Errorf("%w: unknown sync mode %q", ErrInvalidTask, t.SyncMode)
	}
	if !t.ExecutionMode.Valid() {
		return fmt.Errorf("%w: unknown execution mode %q", ErrInvalidTask, t.ExecutionMode)
	}
	if _, ok := t.Frequency.Interval(); !ok && t.Frequency != FrequencyOnce {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidTask, t.Frequency)
	}
	return nil
}

// CalculateNextRun returns the run after the current one. One-time tasks have none.
// The next run follows the previous one by the interval, or one interval from now
// when that is already in the past.
func (t *ScheduledSyncTask) CalculateNextRun(now time.Time) *time.Time {
	interval, ok := t.Frequency.Interval()
	if !ok {
		return nil
	}
	base := now
	switch {
	case t.NextRun != nil:
		base = *t.NextRun
	case !t.ScheduledAt.IsZero():
		base = t.ScheduledAt
	}
	next := base.Add(interval)
	if !next.After(now) {
		next = now.Add(interval)
	}
	return &next
}

// Request builds the engine request of the task.
func (t *ScheduledSyncTask) Request() reconcile.Request {
	scope := reconcile.Scope{OrganizationID: t.OrganizationID}
	switch t.SyncMode {
	case SyncSelective:
		scope.NetworkIDs = append([]string(nil), t.SelectedNetworks...)
	case SyncSingleNetwork:
		if len(t.SelectedNetworks) > 0 {
			scope.NetworkIDs = []string{t.SelectedNetworks[0]}
		}
	}
	return reconcile.Request{
		Mode:  t.ExecutionMode,
		Scope: scope,
		Components: &reconcile.Components{
			Sites:           t.SyncSites,
			Devices:         t.SyncDevices,
			VLANs:           t.SyncVLANs,
			Prefixes:        t.SyncPrefixes,
			Interfaces:      t.SyncInterfaces,
			IPAddresses:     t.SyncIPAddresses,
			SSIDs:           t.SyncSSIDs,
			CleanupOrphaned: t.CleanupOrphaned,
		},
	}
}
