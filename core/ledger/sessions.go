package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

// CreateSession opens the review session of a run.
func (r *Repository) CreateSession(ctx context.Context, runID uint, status SessionStatus) (*ReviewSession, error) {
	s := &ReviewSession{RunID: runID, Status: status}
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, fmt.Errorf("failed to create review session: %w", err)
	}
	return s, nil
}

// GetSession loads a session, optionally with its items ordered by id.
func (r *Repository) GetSession(ctx context.Context, id uint, withItems bool) (*ReviewSession, error) {
	q := r.db.WithContext(ctx)
	if withItems {
		q = q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") })
	}
	var s ReviewSession
	if err := q.First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("review session %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load review session: %w", err)
	}
	return &s, nil
}

// SessionForRun returns the session owned by a run.
func (r *Repository) SessionForRun(ctx context.Context, runID uint) (*ReviewSession, error) {
	var s ReviewSession
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("review session of run %d: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load review session: %w", err)
	}
	return &s, nil
}

// ListSessions returns sessions newest first, optionally filtered by status.
func (r *Repository) ListSessions(ctx context.Context, status SessionStatus, limit int) ([]ReviewSession, error) {
	if limit <= 0 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Order("id desc").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []ReviewSession
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list review sessions: %w", err)
	}
	return out, nil
}

// SetSessionStatus overwrites the status of a session.
func (r *Repository) SetSessionStatus(ctx context.Context, s *ReviewSession, status SessionStatus) error {
	s.Status = status
	if err := r.db.WithContext(ctx).Model(s).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update review session %d: %w", s.ID, err)
	}
	return nil
}

// Stage persists a pending change. current may be nil for creates.
func (r *Repository) Stage(ctx context.Context, sessionID uint, action Action, name, identifier string, proposed, current Payload) (*StagedChange, error) {
	raw, err := EncodePayload(proposed)
	if err != nil {
		return nil, err
	}
	c := &StagedChange{
		SessionID:        sessionID,
		ItemType:         proposed.ItemType(),
		Action:           action,
		ObjectName:       name,
		ObjectIdentifier: identifier,
		ProposedData:     raw,
		Status:           ItemPending,
		PreviewDisplay:   proposed.Preview(),
	}
	if current != nil {
		if c.CurrentData, err = EncodePayload(current); err != nil {
			return nil, err
		}
	}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to stage %s %s: %w", c.ItemType, name, err)
	}
	return c, nil
}

// GetChange loads a change of a session.
func (r *Repository) GetChange(ctx context.Context, sessionID, id uint) (*StagedChange, error) {
	var c StagedChange
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("change %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load change: %w", err)
	}
	return &c, nil
}

// ApprovedChanges returns the approved changes of a session in staging order.
func (r *Repository) ApprovedChanges(ctx context.Context, sessionID uint) ([]StagedChange, error) {
	var out []StagedChange
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND status = ?", sessionID, ItemApproved).
		Order("id asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list approved changes: %w", err)
	}
	return out, nil
}

// TransitionChange moves a change to a new status and persists it.
func (r *Repository) TransitionChange(ctx context.Context, c *StagedChange, to ItemStatus) error {
	if err := c.Transition(to); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(c).Update("status", c.Status).Error; err != nil {
		return fmt.Errorf("failed to update change %d: %w", c.ID, err)
	}
	return nil
}

// MarkApplied records the destination object id of an applied change.
func (r *Repository) MarkApplied(ctx context.Context, c *StagedChange, objectID uint) error {
	if err := c.Transition(ItemApplied); err != nil {
		return err
	}
	c.ObjectID = &objectID
	c.ErrorMessage = ""
	err := r.db.WithContext(ctx).Model(c).Updates(map[string]any{
		"status":        c.Status,
		"object_id":     objectID,
		"error_message": "",
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update change %d: %w", c.ID, err)
	}
	return nil
}

// MarkFailed records the apply error of a change.
func (r *Repository) MarkFailed(ctx context.Context, c *StagedChange, cause error) error {
	if err := c.Transition(ItemFailed); err != nil {
		return err
	}
	c.ErrorMessage = cause.Error()
	err := r.db.WithContext(ctx).Model(c).Updates(map[string]any{
		"status":        c.Status,
		"error_message": c.ErrorMessage,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update change %d: %w", c.ID, err)
	}
	return nil
}

// Approve approves one pending change.
func (r *Repository) Approve(ctx context.Context, sessionID, id uint) (*StagedChange, error) {
	return r.decide(ctx, sessionID, id, ItemApproved)
}

// Reject rejects one pending change.
func (r *Repository) Reject(ctx context.Context, sessionID, id uint) (*StagedChange, error) {
	return r.decide(ctx, sessionID, id, ItemRejected)
}

func (r *Repository) decide(ctx context.Context, sessionID, id uint, to ItemStatus) (*StagedChange, error) {
	if err := r.ensureOpen(ctx, sessionID); err != nil {
		return nil, err
	}
	c, err := r.GetChange(ctx, sessionID, id)
	if err != nil {
		return nil, err
	}
	if err := r.TransitionChange(ctx, c, to); err != nil {
		return nil, err
	}
	if _, err := r.RefreshCounts(ctx, sessionID); err != nil {
		return nil, err
	}
	return c, nil
}

// Edit stores reviewer overrides for a pending or approved change.
// raw must decode to the payload type of the change.
func (r *Repository) Edit(ctx context.Context, sessionID, id uint, raw []byte) (*StagedChange, error) {
	if err := r.ensureOpen(ctx, sessionID); err != nil {
		return nil, err
	}
	c, err := r.GetChange(ctx, sessionID, id)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: editable data is not valid JSON", ErrInvalidPayload)
	}
	p, err := DecodePayload(c.ItemType, raw)
	if err != nil {
		return nil, err
	}
	if err := c.SetOverride(p); err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Model(c).Updates(map[string]any{
		"editable_data":   c.EditableData,
		"preview_display": c.PreviewDisplay,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update change %d: %w", c.ID, err)
	}
	return c, nil
}

// ApproveAll approves every pending change of a session.
func (r *Repository) ApproveAll(ctx context.Context, sessionID uint) (*ReviewSession, error) {
	return r.decideAll(ctx, sessionID, ItemApproved)
}

// RejectAll rejects every pending change of a session.
func (r *Repository) RejectAll(ctx context.Context, sessionID uint) (*ReviewSession, error) {
	return r.decideAll(ctx, sessionID, ItemRejected)
}

func (r *Repository) decideAll(ctx context.Context, sessionID uint, to ItemStatus) (*ReviewSession, error) {
	if err := r.ensureOpen(ctx, sessionID); err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Model(&StagedChange{}).
		Where("session_id = ? AND status = ?", sessionID, ItemPending).
		Update("status", to).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update changes of session %d: %w", sessionID, err)
	}
	return r.RefreshCounts(ctx, sessionID)
}

// ensureOpen rejects decisions on cancelled or fully applied sessions.
func (r *Repository) ensureOpen(ctx context.Context, sessionID uint) error {
	s, err := r.GetSession(ctx, sessionID, false)
	if err != nil {
		return err
	}
	switch s.Status {
	case SessionCancelled:
		return fmt.Errorf("%w: session %d is cancelled", ErrInvalidTransition, sessionID)
	case SessionApplied:
		return fmt.Errorf("%w: session %d", ErrImmutable, sessionID)
	}
	return nil
}

type statusCount struct {
	Status ItemStatus
	Total  int
}

// RefreshCounts recomputes the item counters of a session and derives its status.
// A cancelled session keeps its status.
func (r *Repository) RefreshCounts(ctx context.Context, sessionID uint) (*ReviewSession, error) {
	s, err := r.GetSession(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}

	var rows []statusCount
	err = r.db.WithContext(ctx).Model(&StagedChange{}).
		Select("status, count(*) as total").
		Where("session_id = ?", sessionID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count changes of session %d: %w", sessionID, err)
	}

	counts := make(map[ItemStatus]int, len(rows))
	total := 0
	for _, row := range rows {
		counts[row.Status] = row.Total
		total += row.Total
	}

	s.ItemsTotal = total
	s.ItemsApproved = counts[ItemApproved]
	s.ItemsRejected = counts[ItemRejected]
	s.ItemsApplied = counts[ItemApplied]
	s.ItemsFailed = counts[ItemFailed]
	if s.Status != SessionCancelled {
		s.Status = deriveStatus(s.Status, counts, total)
	}

	now := r.now()
	updates := map[string]any{
		"items_total":    s.ItemsTotal,
		"items_approved": s.ItemsApproved,
		"items_rejected": s.ItemsRejected,
		"items_applied":  s.ItemsApplied,
		"items_failed":   s.ItemsFailed,
		"status":         s.Status,
	}
	if counts[ItemPending] < total && s.ReviewedAt == nil {
		s.ReviewedAt = &now
		updates["reviewed_at"] = &now
	}
	if s.Status == SessionApplied && s.AppliedAt == nil {
		s.AppliedAt = &now
		updates["applied_at"] = &now
	}
	if err := r.db.WithContext(ctx).Model(s).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update review session %d: %w", sessionID, err)
	}
	return s, nil
}

func deriveStatus(current SessionStatus, counts map[ItemStatus]int, total int) SessionStatus {
	if total == 0 {
		return current
	}
	pending := counts[ItemPending]
	approved := counts[ItemApproved]
	rejected := counts[ItemRejected]
	applied := counts[ItemApplied]
	failed := counts[ItemFailed]

	switch {
	case pending == total:
		return current
	case rejected == total:
		return SessionRejected
	case applied == total:
		return SessionApplied
	case applied > 0 && pending == 0 && approved == 0:
		return SessionPartiallyApproved
	case approved+applied == total:
		return SessionApproved
	case pending == 0 && failed == 0 && rejected == 0:
		return SessionApproved
	default:
		return SessionPartiallyApproved
	}
}
