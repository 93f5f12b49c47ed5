package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"meraki-sync/core/ledger"
	"meraki-sync/core/reconcile"

	"go.uber.org/zap"
)

// ErrArchiveDisabled is returned by archive operations when no bucket is configured.
var ErrArchiveDisabled = errors.New("review archive is not configured")

// MaxErrors is the number of run errors shown by the polling view.
const MaxErrors = 10

// Service starts runs and drives review sessions.
type Service struct {
	engine   *reconcile.Engine
	ledger   *ledger.Repository
	archiver *ledger.StorageArchiver
	logger   *zap.Logger

	// ctx outlives requests; background runs stop when it is cancelled.
	ctx  context.Context
	stop context.CancelFunc
	wg   gosync.WaitGroup
}

// NewService creates a sync service. archiver may be nil.
func NewService(engine *reconcile.Engine, repo *ledger.Repository, archiver *ledger.StorageArchiver, logger *zap.Logger) *Service {
	ctx, stop := context.WithCancel(context.Background())
	return &Service{
		engine:   engine,
		ledger:   repo,
		archiver: archiver,
		logger:   logger,
		ctx:      ctx,
		stop:     stop,
	}
}

// Start creates a run and executes it in the background.
func (s *Service) Start(req reconcile.Request) (*ledger.RunRecord, error) {
	job, err := s.engine.Prepare(s.ctx, req)
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		run, err := job.Execute(s.ctx)
		if err != nil {
			s.logger.Error("Background sync failed", zap.Uint("run_id", job.RunID()), zap.Error(err))
			return
		}
		s.logger.Info("Background sync finished",
			zap.Uint("run_id", run.ID),
			zap.String("status", string(run.Status)),
		)
	}()

	return s.ledger.GetRun(s.ctx, job.RunID())
}

// Wait blocks until every background run has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown cancels background runs and waits for them to record their outcome.
func (s *Service) Shutdown() {
	s.stop()
	s.wg.Wait()
}

// RunView is the polling representation of a run.
type RunView struct {
	*ledger.RunRecord
	SessionID   uint     `json:"session_id,omitempty"`
	ErrorCount  int      `json:"error_count"`
	FirstErrors []string `json:"first_errors"`
}

func newRunView(run *ledger.RunRecord, sessionID uint) RunView {
	first := []string(run.Errors)
	if len(first) > MaxErrors {
		first = first[:MaxErrors]
	}
	return RunView{RunRecord: run, SessionID: sessionID, ErrorCount: len(run.Errors), FirstErrors: first}
}

// ListRuns returns the most recent runs.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]ledger.RunRecord, error) {
	return s.ledger.ListRuns(ctx, limit)
}

// GetRun returns the polling view of a run.
func (s *Service) GetRun(ctx context.Context, id uint) (*RunView, error) {
	run, err := s.ledger.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	var sessionID uint
	if session, err := s.ledger.SessionForRun(ctx, id); err == nil {
		sessionID = session.ID
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}
	view := newRunView(run, sessionID)
	return &view, nil
}

// CancelRun flags a run for cancellation.
func (s *Service) CancelRun(ctx context.Context, id uint) error {
	return s.ledger.RequestCancel(ctx, id)
}

// ListSessions returns review sessions, optionally filtered by status.
func (s *Service) ListSessions(ctx context.Context, status ledger.SessionStatus, limit int) ([]ledger.ReviewSession, error) {
	return s.ledger.ListSessions(ctx, status, limit)
}

// GetSession returns a session with its changes.
func (s *Service) GetSession(ctx context.Context, id uint) (*ledger.ReviewSession, error) {
	return s.ledger.GetSession(ctx, id, true)
}

// Decide approves or rejects one change.
func (s *Service) Decide(ctx context.Context, sessionID, itemID uint, approve bool) (*ledger.StagedChange, error) {
	if approve {
		return s.ledger.Approve(ctx, sessionID, itemID)
	}
	return s.ledger.Reject(ctx, sessionID, itemID)
}

// Edit stores reviewer overrides for one change.
func (s *Service) Edit(ctx context.Context, sessionID, itemID uint, raw []byte) (*ledger.StagedChange, error) {
	return s.ledger.Edit(ctx, sessionID, itemID, raw)
}

// DecideAll approves or rejects every pending change of a session.
func (s *Service) DecideAll(ctx context.Context, sessionID uint, approve bool) (*ledger.ReviewSession, error) {
	if approve {
		return s.ledger.ApproveAll(ctx, sessionID)
	}
	return s.ledger.RejectAll(ctx, sessionID)
}

// Apply applies the approved changes of a session.
func (s *Service) Apply(ctx context.Context, sessionID uint) (*ledger.ReviewSession, error) {
	return s.engine.ApplyReview(ctx, sessionID)
}

// ListArchives lists archived review sessions.
func (s *Service) ListArchives(ctx context.Context) ([]ledger.ArchiveObject, error) {
	if s.archiver == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archiver.List(ctx)
}

// OpenArchive reads one archived review session.
func (s *Service) OpenArchive(ctx context.Context, key string) (*ledger.ArchiveDocument, error) {
	if s.archiver == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archiver.Open(ctx, key)
}

// RemoveArchive deletes one archived review session.
func (s *Service) RemoveArchive(ctx context.Context, key string) error {
	if s.archiver == nil {
		return ErrArchiveDisabled
	}
	return s.archiver.Remove(ctx, key)
}

// PruneArchives removes archives older than the given number of days.
func (s *Service) PruneArchives(ctx context.Context, days int) (int, error) {
	if s.archiver == nil {
		return 0, ErrArchiveDisabled
	}
	if days <= 0 {
		return 0, fmt.Errorf("%w: older_than_days must be positive", ledger.ErrInvalidPayload)
	}
	return s.archiver.Prune(ctx, time.Now().Add(-time.Duration(days)*24*time.Hour))
}
