// Package database provides SQLite-based storage for conversion runs.
//
// ReportDB keeps one row per run and one row per deduplicated report,
// keyed by the report hash, so that two runs over the same project can be
// compared. The full report is stored as JSON next to the indexed columns.
//
// SQLite is accessed through modernc.org/sqlite, a CGO-free driver, with
// WAL enabled and a single open connection.
package database
