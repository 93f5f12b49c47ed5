// Package health reports whether the services a sync depends on are usable.
//
// # Checks
//
//   - database : every table and column of the gorm models exists.
//   - inventory : the Meraki API answers an organization listing.
//   - storage : the review archive bucket exists (optionally created with ?fix=true).
//
// # HTTP Endpoints
//
//   - GET /health : Runs every check. Returns 503 when any check fails.
//   - GET /health/database : Schema check.
//   - GET /health/inventory : Meraki reachability.
//   - GET /health/storage : Archive bucket check.
package health
