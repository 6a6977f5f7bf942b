// Package database provides SQLite connectivity for Gray Logic Energy.
//
// It opens the database in WAL mode with a single connection (SQLite allows
// one writer), applies embedded schema migrations and offers a health check
// for the API.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. They are registered by the migrations package
// through MigrationsFS.
package database
