// Package database provides SQLite connectivity for FleetLock.
//
// SQLite holds the command audit log only. The device registry is
// deliberately in-memory and rebuilt from announcements after a restart.
//
// This package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Applying versioned migrations from any fs.FS (normally the embedded
//     migrations package)
//   - Health checks for the API
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
