// Package reconcile synchronizes a Meraki Dashboard inventory into the destination store.
//
// A run walks organizations, networks and devices, stages every proposed
// create or update as a ledger.StagedChange and, in auto mode, applies each
// change immediately. Review and dry-run modes stop after staging; a review
// session is applied later through ApplyReview using the same apply code.
//
// # Flow
//
//  1. Old and orphaned review sessions are garbage collected.
//  2. A RunRecord and its ReviewSession are created.
//  3. Per organization the run checks for cancellation, loads device statuses
//     and visits every network that has devices and a resolvable site name.
//  4. Per network it stages the site, VLANs, prefixes and devices. Auto mode
//     also enriches devices with interfaces, IP addresses and SSIDs.
//  5. Auto mode finishes with orphan cleanup scoped to the sites synced in the run.
//
// # Concurrency
//
// Network inventory can be prefetched by a bounded errgroup. Staging and apply
// stay serialized within a run; applies across runs sharing an Engine are
// serialized per object through a keyed mutex.
//
// # Usage Example
//
//	engine := reconcile.NewEngine(client, dcim.NewGormStore(db), ledgerRepo, settingsRepo, loader, logger)
//	run, err := engine.Run(ctx, reconcile.Request{Mode: ledger.ModeReview})
//	...
//	session, err := engine.ApplyReview(ctx, sessionID)
package reconcile
