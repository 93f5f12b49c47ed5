// Package schedule stores scheduled sync tasks and runs them when they are due.
//
// A task names a scope (every organization, selected networks or a single network),
// the components to sync, an execution mode and a frequency. The Runner ticks on a
// cron spec and executes every enabled task whose next run has passed, one at a time.
// After each execution the outcome is recorded on the task and the next run is
// recalculated; a task that fell behind is moved to one interval from now rather
// than replaying missed runs.
//
// # HTTP Endpoints
//
//   - GET /schedules, POST /schedules : Lists or creates tasks.
//   - GET|PUT|DELETE /schedules/:id : Reads, replaces or removes a task.
//   - POST /schedules/:id/run : Executes a task now in the background. The next run is unchanged.
package schedule
