package server

import "strings"

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API. Empty disables the check.
	ApiKey string `mapstructure:"api_key" default:""`
	// BasePath is the prefix under which feature routes are mounted.
	BasePath string `mapstructure:"base_path" default:"/api/v1"`
	// ScheduleRunner starts the scheduled sync runner alongside the HTTP server.
	ScheduleRunner bool `mapstructure:"schedule_runner" default:"true"`
}

// IsProtected reports whether requests must carry the API key.
func (c Config) IsProtected() bool {
	return strings.TrimSpace(c.ApiKey) != ""
}

// NormalizedBasePath returns BasePath with a leading slash and no trailing slash.
func (c Config) NormalizedBasePath() string {
	p := strings.Trim(strings.TrimSpace(c.BasePath), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
