package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CollectGarbage deletes finished sessions older than retention and sessions whose
// run no longer exists. A session is finished when it was applied, cancelled or
// rejected, or when it is partially approved with no item left to decide or apply.
// Each session is archived first when an archiver is configured; archive failures
// are logged and do not stop deletion.
func (r *Repository) CollectGarbage(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := r.now().Add(-retention)

	undecided := r.db.Model(&StagedChange{}).Select("session_id").
		Where("status IN ?", []ItemStatus{ItemPending, ItemApproved})

	var sessions []ReviewSession
	err := r.db.WithContext(ctx).
		Where("(status IN ? AND updated_at < ?) OR (status = ? AND updated_at < ? AND id NOT IN (?)) OR run_id NOT IN (?)",
			[]SessionStatus{SessionApplied, SessionCancelled, SessionRejected},
			cutoff,
			SessionPartiallyApproved,
			cutoff,
			undecided,
			r.db.Model(&RunRecord{}).Select("id"),
		).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Find(&sessions).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find expired review sessions: %w", err)
	}

	collected := 0
	for i := range sessions {
		s := &sessions[i]
		if r.archiver != nil {
			r.archive(ctx, s)
		}

		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("session_id = ?", s.ID).Delete(&StagedChange{}).Error; err != nil {
				return err
			}
			return tx.Delete(&ReviewSession{}, s.ID).Error
		})
		if err != nil {
			return collected, fmt.Errorf("failed to delete review session %d: %w", s.ID, err)
		}
		collected++
	}

	if collected > 0 {
		r.logger.Info("Collected review sessions", zap.Int("count", collected))
	}
	return collected, nil
}

func (r *Repository) archive(ctx context.Context, s *ReviewSession) {
	doc := &ArchiveDocument{ArchivedAt: r.now(), Session: *s}
	if run, err := r.GetRun(ctx, s.RunID); err == nil {
		doc.Run = run
	}
	if err := r.archiver.Archive(ctx, doc); err != nil {
		r.logger.Warn("Failed to archive review session",
			zap.Uint("session_id", s.ID),
			zap.Uint("run_id", s.RunID),
			zap.Error(err),
		)
	}
}
