// Package database provides SQLite database connectivity for Parley.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations with per-migration transactions
//   - Connection pooling and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - Busy timeout prevents lock contention errors
//   - A single writer connection matches SQLite's locking model
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
//
// Migration files live in the migrations package and are embedded into
// the binary. Each migration has both .up.sql and .down.sql variants
// named YYYYMMDD_HHMMSS_description.
package database
