// Package config provides configuration management for meraki-sync.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file. Defaults come from the `default` struct tags of each section.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, base path, schedule runner)
//   - Database: MySQL or SQLite connection details
//   - Storage: S3/MinIO credentials and the review archive bucket
//   - Log: Logging level, format and optional rotated file
//   - Meraki: Dashboard API key, rate limit and retry policy
//   - Sync: defaults of the persisted sync settings (roles, tags, transforms, workers)
//
// Environment variables map to nested keys by replacing dots with underscores,
// e.g. MERAKI_API_KEY sets meraki.api_key and SYNC_MX_ROLE sets sync.mx_role.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
