// Package server holds the HTTP server configuration.
//
// The main entry point handles server startup; this package only defines the
// settings it reads: listen port, API key, route prefix and whether the
// scheduled sync runner starts with the server.
package server
