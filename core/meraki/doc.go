// Package meraki is a small client for the Meraki Dashboard API.
//
// Only the endpoints read by the sync engine are implemented. Every outbound request
// waits on a token bucket (golang.org/x/time/rate) and is retried with capped
// exponential backoff (cenkalti/backoff/v5) on 429 and 5xx responses, honoring
// Retry-After. Endpoints that answer 404 when a feature is not configured on a
// network (VLANs, switch ports, SSIDs, appliance ports, firmware) return an empty
// result instead of an error.
//
// The Client interface is what the engine depends on; core/meraki/mocks holds a
// testify mock of it.
package meraki
