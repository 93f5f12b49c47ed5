// Package logger builds the Zap logger used across the service.
//
// Output goes to stdout in json or console encoding. When File is set, entries are also
// written to a lumberjack-rotated file.
//
// WithRayID attaches the request's ray id to a logger so that every line of one HTTP
// request can be correlated:
//
//	l := logger.WithRayID(log, c)
//	l.Error("Failed to start run", zap.Error(err))
package logger
