// Package database provides SQLite connectivity for the PowerSync worker.
//
// This package manages:
//   - Database connection with WAL mode so the HomeTracker reader can query
//     while the worker appends readings
//   - Schema migrations embedded into the binary (power_config,
//     power_readings_raw, power_learning_status)
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - Busy timeout prevents lock contention errors
//   - A single connection is kept open; the poll loop is the only writer
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
