// Package database opens the GORM connection and inspects the live schema.
//
// Connect supports MySQL for deployments and SQLite for tests and single-node setups.
// Migrate runs AutoMigrate over the models owned by the dcim, ledger, rules, settings
// and schedule packages.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns read the columns of a table (SHOW COLUMNS on MySQL,
// PRAGMA table_info on SQLite). The health feature uses them to compare the database
// against the GORM models.
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	missing, err := database.MissingColumns(db, "sync_runs", []string{"id", "status"})
package database
