// Package settings holds the runtime-editable sync settings.
//
// The PluginSettings row is a singleton created from the sync configuration section
// on first access. A run never reads the row directly: it takes a Settings snapshot
// at start so edits made while a run is in flight apply to the next run only.
package settings
