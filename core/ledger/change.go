package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned for a status change the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrImmutable is returned when an applied change is modified.
	ErrImmutable = errors.New("applied change is immutable")
	// ErrNotFound is returned when a run, session or change does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPayload is returned when data does not decode to the payload of an item type.
	ErrInvalidPayload = errors.New("invalid payload")
)

var transitions = map[ItemStatus][]ItemStatus{
	ItemPending:  {ItemApproved, ItemRejected},
	ItemApproved: {ItemApplied, ItemFailed},
}

// CanTransition reports whether the change may move to status to.
func (c *StagedChange) CanTransition(to ItemStatus) bool {
	for _, next := range transitions[c.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the change to status to.
func (c *StagedChange) Transition(to ItemStatus) error {
	if c.Status == ItemApplied {
		return ErrImmutable
	}
	if !c.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	c.Status = to
	return nil
}

// Proposed decodes the payload produced by the sync.
func (c *StagedChange) Proposed() (Payload, error) {
	return DecodePayload(c.ItemType, c.ProposedData)
}

// HasOverride reports whether a reviewer edited the change.
func (c *StagedChange) HasOverride() bool {
	return hasData(c.EditableData)
}

// FinalData is the payload that apply uses: the reviewer override when set, else the proposal.
func (c *StagedChange) FinalData() (Payload, error) {
	if c.HasOverride() {
		return DecodePayload(c.ItemType, c.EditableData)
	}
	return c.Proposed()
}

// SetOverride records reviewer edits. The payload type must match the item type.
func (c *StagedChange) SetOverride(p Payload) error {
	if c.Status == ItemApplied {
		return ErrImmutable
	}
	if c.Status != ItemPending && c.Status != ItemApproved {
		return fmt.Errorf("%w: cannot edit a %s change", ErrInvalidTransition, c.Status)
	}
	if p.ItemType() != c.ItemType {
		return fmt.Errorf("%w: payload type %s does not match item type %s", ErrInvalidPayload, p.ItemType(), c.ItemType)
	}
	raw, err := EncodePayload(p)
	if err != nil {
		return err
	}
	c.EditableData = raw
	c.PreviewDisplay = p.Preview()
	return nil
}
