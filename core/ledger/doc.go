// Package ledger records sync runs and the changes they propose.
//
// A RunRecord is the audit entry of one run: counters, errors, a live progress log and
// the cancel flag. Each run owns one ReviewSession whose StagedChanges are the proposed
// creates and updates. Every change is staged before anything is written to the
// destination store, whatever the mode.
//
// Change payloads are a closed union: one Payload type per ItemType, stored as JSON and
// decoded with DecodePayload. Reviewer edits go to EditableData and FinalData prefers
// them; ProposedData is never rewritten.
//
// Status changes follow a small state machine:
//
//	pending  -> approved | rejected
//	approved -> applied  | failed
//
// Applied changes are immutable.
package ledger
