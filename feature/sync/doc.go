// Package sync exposes the reconciliation engine over HTTP.
//
// Runs are started in the background and polled; review sessions are inspected,
// decided and applied item by item or in bulk. Archived review sessions are read
// back from object storage.
//
// # HTTP Endpoints
//
//   - POST /sync/runs : Starts a run ({mode, organization_id, network_ids, components}). Returns 202 and the run.
//   - GET /sync/runs : Lists recent runs (?limit=).
//   - GET /sync/runs/:id : Polling view with progress, counters and the first errors.
//   - POST /sync/runs/:id/cancel : Requests cancellation; observed between organizations.
//   - GET /sync/reviews : Lists review sessions (?status=, ?limit=).
//   - GET /sync/reviews/:id : Session with its staged changes.
//   - POST /sync/reviews/:id/items/:item/approve|reject : Decides one change.
//   - PUT /sync/reviews/:id/items/:item : Stores reviewer overrides for one change.
//   - POST /sync/reviews/:id/approve-all|reject-all : Decides every pending change.
//   - POST /sync/reviews/:id/apply : Applies the approved changes.
//   - GET /sync/archives : Lists archived sessions.
//   - GET /sync/archives/* : Reads one archived session.
//   - DELETE /sync/archives : Removes archives older than ?older_than_days=.
//   - DELETE /sync/archives/* : Removes one archive.
package sync
