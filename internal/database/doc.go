// Package database provides SQLite-based storage for scrape results.
//
// This package implements the ResultDB, which keeps every saved result so
// that later runs can be compared against earlier ones with the history
// command.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
