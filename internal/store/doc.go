// Package store persists normalized receipt rows in SQLite.
//
// The six tables mirror the row types in package rows. Writes are
// idempotent: every INSERT uses ON CONFLICT DO NOTHING, so re-ingesting
// the same receipts leaves the database unchanged and reports zero rows
// written.
//
// A whole batch is written in one transaction. Either every row of the
// batch lands or none does.
//
// Column encodings:
//   - identifiers are raw BLOBs
//   - block_height and gas_price are decimal TEXT
//   - args is RFC 8785 canonical JSON
//   - receipt_data.data is NULL when the receipt carried no data
//
// The connection is configured with WAL journaling, NORMAL synchronous mode,
// a 5 second busy timeout and foreign key enforcement. Schema changes are
// tracked in PRAGMA user_version.
package store
