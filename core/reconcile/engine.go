package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meraki-sync/core/dcim"
	"meraki-sync/core/ledger"
	"meraki-sync/core/meraki"
	"meraki-sync/core/rules"
	"meraki-sync/core/settings"

	"go.uber.org/zap"
)

// SettingsSource provides the settings snapshot of a run.
type SettingsSource interface {
	Snapshot(ctx context.Context) (settings.Settings, error)
}

// RuleLoader compiles the enabled naming and prefix rules.
type RuleLoader func(ctx context.Context, opts rules.Options) (*rules.Set, error)

// Throttler is implemented by inventory clients whose request rate can be changed at runtime.
// The engine applies the throttle settings at the start of every run when the client supports it.
type Throttler interface {
	SetRateLimit(enabled bool, requestsPerSecond float64)
}

// Engine runs syncs. It is safe for concurrent use; concurrent runs are not coordinated
// beyond per-object serialization of applies.
type Engine struct {
	client         meraki.Client
	store          dcim.Store
	ledger         *ledger.Repository
	settingsSource SettingsSource
	ruleLoader     RuleLoader
	logger         *zap.Logger
	locks          *keyedMutex
}

// NewEngine wires an engine. settingsSource and loader may be nil, in which case the
// configuration defaults and an empty rule set are used.
func NewEngine(client meraki.Client, store dcim.Store, repo *ledger.Repository, settingsSource SettingsSource, loader RuleLoader, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		client:         client,
		store:          store,
		ledger:         repo,
		settingsSource: settingsSource,
		ruleLoader:     loader,
		logger:         logger,
		locks:          newKeyedMutex(),
	}
}

// Job is a run whose record and review session exist but which has not executed yet.
type Job struct {
	r *runner
}

// RunID is the id of the run record.
func (j *Job) RunID() uint {
	return j.r.run.ID
}

// SessionID is the id of the review session of the run.
func (j *Job) SessionID() uint {
	return j.r.session.ID
}

// Execute performs the sync and returns the finished run record.
// An error is returned only for fatal failures; per-item errors are recorded on the run.
func (j *Job) Execute(ctx context.Context) (*ledger.RunRecord, error) {
	return j.r.execute(ctx)
}

// Run prepares and executes one sync.
func (e *Engine) Run(ctx context.Context, req Request) (*ledger.RunRecord, error) {
	job, err := e.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return job.Execute(ctx)
}

// Prepare garbage collects old review sessions, then creates the run record and its
// review session. Surfaces that poll a run use the returned job to learn the run id
// before executing it in the background.
func (e *Engine) Prepare(ctx context.Context, req Request) (*Job, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("unknown sync mode %q", req.Mode)
	}

	snap := settings.Default()
	if e.settingsSource != nil {
		s, err := e.settingsSource.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		snap = s
	}

	retention := time.Duration(snap.RetentionDays) * 24 * time.Hour
	if n, err := e.ledger.CollectGarbage(ctx, retention); err != nil {
		e.logger.Warn("Review session cleanup failed", zap.Error(err))
	} else if n > 0 {
		e.logger.Info("Removed old review sessions", zap.Int("count", n))
	}

	run, err := e.ledger.CreateRun(ctx, req.Mode, req.Scope.OrganizationID, req.Scope.NetworkIDs)
	if err != nil {
		return nil, err
	}

	cache := newLookupCache()
	r := &runner{
		Engine:   e,
		persist:  context.WithoutCancel(ctx),
		mode:     req.Mode,
		scope:    req.Scope,
		comp:     req.components(),
		settings: snap,
		run:      run,
		acc:      newAccumulator(),
		applier:  &applier{store: e.store, cache: cache},
		logger:   e.logger.With(zap.Uint("run_id", run.ID), zap.String("mode", string(req.Mode))),
	}

	sessionStatus := ledger.SessionPending
	if req.Mode == ledger.ModeAuto {
		sessionStatus = ledger.SessionApproved
	}
	r.session, err = e.ledger.CreateSession(r.persist, run.ID, sessionStatus)
	if err != nil {
		_, err = r.abort(err)
		return nil, err
	}
	return &Job{r: r}, nil
}

// runner holds the state of one run.
type runner struct {
	*Engine

	// persist is used for ledger writes so that a cancelled ctx still records the outcome.
	persist context.Context
	// work is the caller's ctx. Item failures after it is done are not recorded.
	work context.Context

	mode     ledger.Mode
	scope    Scope
	comp     Components
	settings settings.Settings
	rules    *rules.Set

	run     *ledger.RunRecord
	session *ledger.ReviewSession
	acc     *accumulator
	applier *applier
	logger  *zap.Logger

	// deviceTypes holds the device types already staged by this run.
	deviceTypes map[string]struct{}
}

func (r *runner) execute(ctx context.Context) (*ledger.RunRecord, error) {
	r.work = ctx
	r.progress(ledger.LevelInfo, "Starting %s sync", r.mode)

	if t, ok := r.client.(Throttler); ok {
		t.SetRateLimit(r.settings.EnableAPIThrottling, float64(r.settings.APIRequestsPerSecond))
	}

	set, err := r.loadRules(ctx)
	if err != nil {
		return r.abort(err)
	}
	r.rules = set

	orgs, err := r.organizations(ctx)
	if err != nil {
		return r.abort(err)
	}
	r.progress(ledger.LevelInfo, "Found %d organization(s)", len(orgs))

	for i, org := range orgs {
		if r.cancelled(ctx) {
			return r.cancel()
		}
		r.operation(fmt.Sprintf("Syncing organization %s", org.Name), i*90/len(orgs))
		r.syncOrganization(ctx, org, i, len(orgs))
		r.acc.organizations++
	}
	if r.cancelled(ctx) {
		return r.cancel()
	}

	if r.mode == ledger.ModeAuto && r.comp.CleanupOrphaned {
		r.operation("Cleaning up orphaned objects", 95)
		r.cleanupOrphans(ctx)
	}

	return r.finalize()
}

func (r *runner) loadRules(ctx context.Context) (*rules.Set, error) {
	opts := rules.Options{
		ProcessUnmatchedSites: r.settings.ProcessUnmatchedSites,
		MatchTimeout:          r.settings.MatchTimeout,
	}
	if r.ruleLoader == nil {
		return rules.NewSet(nil, nil, opts, r.logger), nil
	}
	set, err := r.ruleLoader(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return set, nil
}

func (r *runner) organizations(ctx context.Context) ([]meraki.Organization, error) {
	if r.scope.OrganizationID != "" {
		org, err := r.client.GetOrganization(ctx, r.scope.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("failed to get organization %s: %w", r.scope.OrganizationID, err)
		}
		return []meraki.Organization{*org}, nil
	}
	orgs, err := r.client.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// cancelled reports whether the caller cancelled ctx or a cancel was requested on the run.
func (r *runner) cancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	flag, err := r.ledger.CancelRequested(r.persist, r.run.ID)
	if err != nil {
		r.logger.Warn("Could not read cancel flag", zap.Error(err))
		return false
	}
	return flag
}

func (r *runner) cancel() (*ledger.RunRecord, error) {
	r.progress(ledger.LevelWarning, "Sync cancelled by user")
	if err := r.ledger.SetSessionStatus(r.persist, r.session, ledger.SessionCancelled); err != nil {
		r.logger.Warn("Could not cancel review session", zap.Error(err))
	}
	return r.finish(ledger.RunFailed, "cancelled by user")
}

// abort finishes the run as failed after a fatal error and returns that error.
func (r *runner) abort(cause error) (*ledger.RunRecord, error) {
	r.logger.Error("Sync failed", zap.Error(cause))
	if err := r.ledger.AppendError(r.persist, r.run, cause.Error()); err != nil {
		r.logger.Warn("Could not record error", zap.Error(err))
	}
	r.progress(ledger.LevelError, "Sync failed: %v", cause)
	run, err := r.finish(ledger.RunFailed, cause.Error())
	if err != nil {
		return run, errors.Join(cause, err)
	}
	return run, cause
}

func (r *runner) finalize() (*ledger.RunRecord, error) {
	var status ledger.RunStatus
	var message string
	switch r.mode {
	case ledger.ModeDryRun:
		status = ledger.RunDryRun
		message = fmt.Sprintf("Dry run staged %d change(s)", r.acc.staged)
	case ledger.ModeReview:
		status = ledger.RunPendingReview
		message = fmt.Sprintf("Staged %d change(s) for review", r.acc.staged)
	default:
		switch {
		case len(r.run.Errors) == 0:
			status = ledger.RunSuccess
		case r.acc.devices > 0:
			status = ledger.RunPartial
		default:
			status = ledger.RunFailed
		}
		message = fmt.Sprintf("Synced %d organization(s), %d network(s), %d device(s), %d VLAN(s), %d prefix(es)",
			r.acc.organizations, r.acc.networks, r.acc.devices, r.acc.vlans, r.acc.prefixes)
		if n := len(r.run.Errors); n > 0 {
			message += fmt.Sprintf(" with %d error(s)", n)
		}
	}
	r.operation("Completed", 100)
	r.progress(ledger.LevelInfo, "%s", message)
	return r.finish(status, message)
}

func (r *runner) finish(status ledger.RunStatus, message string) (*ledger.RunRecord, error) {
	r.acc.writeTo(r.run)
	r.run.Status = status
	r.run.Message = message
	if err := r.ledger.FinishRun(r.persist, r.run); err != nil {
		return r.run, err
	}
	if r.session != nil {
		if _, err := r.ledger.RefreshCounts(r.persist, r.session.ID); err != nil {
			r.logger.Warn("Could not refresh review session counts", zap.Error(err))
		}
	}
	r.logger.Info("Sync finished",
		zap.String("status", string(status)),
		zap.Int("devices", r.acc.devices),
		zap.Int("errors", len(r.run.Errors)),
		zap.Float64("duration_seconds", r.run.DurationSeconds),
	)
	return r.run, nil
}

// progress appends a progress line. Persistence failures are logged and ignored.
func (r *runner) progress(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case ledger.LevelError:
		r.logger.Error(msg)
	case ledger.LevelWarning:
		r.logger.Warn(msg)
	default:
		r.logger.Info(msg)
	}
	if err := r.ledger.AddProgress(r.persist, r.run, level, msg); err != nil {
		r.logger.Warn("Could not persist progress", zap.Error(err))
	}
}

func (r *runner) operation(op string, percent int) {
	if err := r.ledger.UpdateProgress(r.persist, r.run, op, percent); err != nil {
		r.logger.Warn("Could not persist progress", zap.Error(err))
	}
}

// fail records a per-item error on the run; the caller continues with siblings.
func (r *runner) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.work != nil && r.work.Err() != nil {
		r.logger.Debug("Dropping error of cancelled sync", zap.String("error", msg))
		return
	}
	r.progress(ledger.LevelError, "%s", msg)
	if err := r.ledger.AppendError(r.persist, r.run, msg); err != nil {
		r.logger.Warn("Could not record error", zap.Error(err))
	}
}
