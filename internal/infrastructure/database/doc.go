// Package database provides SQLite persistence for Pool Core.
//
// It wraps database/sql with the mattn/go-sqlite3 driver, configured for
// a single-writer embedded deployment (WAL mode, busy timeout, tiny pool).
//
// Durable state lives here: the active mode, the last commanded actuator
// values, and the pump runtime log all survive restarts. Timers and
// ownership flags deliberately do not (see internal/control).
//
// Schema changes are expressed as embedded SQL migrations in the
// migrations/ directory at the repository root, applied in version order
// on startup, each in its own transaction.
package database
