// Package loader mounts the HTTP features of the service.
//
// A feature implements Feature and is registered on a Manager. LoadAll loads the
// enabled features in registration order onto the API router and stops at the first
// error. Each feature package (sync, rules, schedule, settings, health) exposes a
// NewFeature constructor taking its dependencies, so it can be tested with a bare
// fiber app.
package loader
