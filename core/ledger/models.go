package ledger

import (
	"time"

	"gorm.io/datatypes"
)

// Mode selects how a run treats its staged changes.
type Mode string

const (
	// ModeAuto applies every staged change immediately.
	ModeAuto Mode = "auto"
	// ModeReview leaves staged changes pending for approval.
	ModeReview Mode = "review"
	// ModeDryRun stages changes for inspection only.
	ModeDryRun Mode = "dry_run"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeAuto, ModeReview, ModeDryRun:
		return true
	}
	return false
}

// RunStatus is the lifecycle state of a RunRecord.
type RunStatus string

const (
	RunRunning       RunStatus = "running"
	RunSuccess       RunStatus = "success"
	RunPartial       RunStatus = "partial"
	RunFailed        RunStatus = "failed"
	RunDryRun        RunStatus = "dry_run"
	RunPendingReview RunStatus = "pending_review"
)

// Succeeded reports whether a finished run counts as a successful execution.
func (s RunStatus) Succeeded() bool {
	switch s {
	case RunSuccess, RunPartial, RunDryRun, RunPendingReview:
		return true
	}
	return false
}

// ProgressEntry is one line of a run's live progress log.
type ProgressEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// RunRecord is the audit entry of one sync run.
type RunRecord struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	Mode   Mode      `gorm:"size:20;not null" json:"mode"`
	Status RunStatus `gorm:"size:20;not null;index" json:"status"`

	OrganizationID string                      `gorm:"size:64" json:"organization_id,omitempty"`
	NetworkIDs     datatypes.JSONSlice[string] `json:"network_ids"`

	OrganizationsSynced int `json:"organizations_synced"`
	NetworksSynced      int `json:"networks_synced"`
	DevicesSynced       int `json:"devices_synced"`
	VLANsSynced         int `gorm:"column:vlans_synced" json:"vlans_synced"`
	PrefixesSynced      int `json:"prefixes_synced"`
	SSIDsSynced         int `gorm:"column:ssids_synced" json:"ssids_synced"`
	DeletedSites        int `json:"deleted_sites"`
	DeletedDevices      int `json:"deleted_devices"`
	DeletedVLANs        int `gorm:"column:deleted_vlans" json:"deleted_vlans"`
	DeletedPrefixes     int `json:"deleted_prefixes"`
	UpdatedPrefixes     int `json:"updated_prefixes"`

	Errors          datatypes.JSONSlice[string]        `json:"errors"`
	Message         string                             `gorm:"type:text" json:"message"`
	DurationSeconds float64                            `json:"duration_seconds"`
	ProgressLogs    datatypes.JSONSlice[ProgressEntry] `json:"progress_logs"`

	CurrentOperation  string     `gorm:"size:255" json:"current_operation"`
	ProgressPercent   int        `json:"progress_percent"`
	CancelRequested   bool       `json:"cancel_requested"`
	CancelRequestedAt *time.Time `json:"cancel_requested_at,omitempty"`

	StartedAt  time.Time  `gorm:"index" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (RunRecord) TableName() string {
	return "sync_runs"
}

// SessionStatus is the lifecycle state of a ReviewSession.
type SessionStatus string

const (
	SessionPending           SessionStatus = "pending"
	SessionApproved          SessionStatus = "approved"
	SessionPartiallyApproved SessionStatus = "partially_approved"
	SessionRejected          SessionStatus = "rejected"
	SessionApplied           SessionStatus = "applied"
	SessionCancelled         SessionStatus = "cancelled"
)

// ReviewSession groups the staged changes of one run.
type ReviewSession struct {
	ID     uint          `gorm:"primaryKey" json:"id"`
	RunID  uint          `gorm:"uniqueIndex;not null" json:"run_id"`
	Status SessionStatus `gorm:"size:24;not null;index" json:"status"`

	ItemsTotal    int `json:"items_total"`
	ItemsApproved int `json:"items_approved"`
	ItemsRejected int `json:"items_rejected"`
	ItemsApplied  int `json:"items_applied"`
	ItemsFailed   int `json:"items_failed"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	AppliedAt  *time.Time `json:"applied_at,omitempty"`

	Items []StagedChange `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (ReviewSession) TableName() string {
	return "sync_review_sessions"
}

// ItemType names the kind of object a staged change targets.
type ItemType string

const (
	ItemSite       ItemType = "site"
	ItemDevice     ItemType = "device"
	ItemDeviceType ItemType = "device_type"
	ItemVLAN       ItemType = "vlan"
	ItemPrefix     ItemType = "prefix"
	ItemInterface  ItemType = "interface"
	ItemIPAddress  ItemType = "ip_address"
	ItemSSID       ItemType = "ssid"
)

// Action is what applying a staged change does.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// ItemStatus is the review state of a staged change.
type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemApproved ItemStatus = "approved"
	ItemRejected ItemStatus = "rejected"
	ItemApplied  ItemStatus = "applied"
	ItemFailed   ItemStatus = "failed"
)

// StagedChange is one proposed create or update.
// ProposedData is never modified after staging; reviewer overrides go to EditableData.
type StagedChange struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	SessionID uint `gorm:"index;not null" json:"session_id"`

	ItemType         ItemType `gorm:"size:20;not null;index" json:"item_type"`
	Action           Action   `gorm:"size:10;not null" json:"action"`
	ObjectName       string   `gorm:"size:255" json:"object_name"`
	ObjectIdentifier string   `gorm:"size:255" json:"object_identifier"`

	ProposedData datatypes.JSON `json:"proposed_data"`
	CurrentData  datatypes.JSON `json:"current_data,omitempty"`
	EditableData datatypes.JSON `json:"editable_data,omitempty"`

	Status         ItemStatus `gorm:"size:10;not null;index" json:"status"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	PreviewDisplay string     `gorm:"type:text" json:"preview_display"`
	ObjectID       *uint      `json:"object_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StagedChange) TableName() string {
	return "sync_staged_changes"
}

// Models returns the tables owned by this package.
func Models() []any {
	return []any{&RunRecord{}, &ReviewSession{}, &StagedChange{}}
}
