package reconcile

import (
	"context"
	"fmt"

	"meraki-sync/core/ledger"

	"go.uber.org/zap"
)

// ApplyReview applies every approved change of a review session in staging order
// through the same apply code as auto mode, then recomputes the session counts and status.
// A failing change is marked failed and the remaining changes are still applied.
func (e *Engine) ApplyReview(ctx context.Context, sessionID uint) (*ledger.ReviewSession, error) {
	session, err := e.ledger.GetSession(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case ledger.SessionPending, ledger.SessionApproved, ledger.SessionPartiallyApproved:
	default:
		return nil, fmt.Errorf("%w: session %d is %s", ledger.ErrInvalidTransition, sessionID, session.Status)
	}

	run, err := e.ledger.GetRun(ctx, session.RunID)
	if err != nil {
		return nil, err
	}
	if run.Mode == ledger.ModeDryRun {
		return nil, fmt.Errorf("%w: session %d belongs to a dry run", ledger.ErrInvalidTransition, sessionID)
	}

	changes, err := e.ledger.ApprovedChanges(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	logger := e.logger.With(zap.Uint("session_id", sessionID), zap.Uint("run_id", run.ID))
	persist := context.WithoutCancel(ctx)
	ap := &applier{store: e.store, cache: newLookupCache()}

	applied, failed := 0, 0
	for i := range changes {
		if ctx.Err() != nil {
			break
		}
		c := &changes[i]
		if _, err := e.applyChange(ctx, persist, ap, c); err != nil {
			failed++
			logger.Warn("Change failed to apply",
				zap.Uint("change_id", c.ID),
				zap.String("item_type", string(c.ItemType)),
				zap.String("object", c.ObjectName),
				zap.Error(err),
			)
			continue
		}
		applied++
	}

	msg := fmt.Sprintf("Review applied: %d change(s) applied, %d failed", applied, failed)
	logger.Info(msg)
	if err := e.ledger.AddProgress(persist, run, ledger.LevelInfo, msg); err != nil {
		logger.Warn("Could not persist progress", zap.Error(err))
	}
	return e.ledger.RefreshCounts(persist, sessionID)
}
