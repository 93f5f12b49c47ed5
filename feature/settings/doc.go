// Package settings exposes the persisted sync settings over HTTP.
//
// Changes take effect at the start of the next run; a running sync keeps the
// snapshot it started with.
//
// # HTTP Endpoints
//
//   - GET /settings : Returns the settings, creating them from configuration defaults on first access.
//   - PUT /settings : Validates and replaces the settings.
package settings
