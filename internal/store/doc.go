// Package store provides durable storage for installed userscripts.
//
// One record per script, keyed by script ID:
//
//	{match: list<string>, exclude: list<string>, code: string, encoded: bool}
//
// Two backends implement the same method set:
//   - Store: SQLite (default), one row per script in the scripts table
//   - BoltStore: bbolt, JSON records plus an insertion-order index
//
// # Ordering
//
// GetAll returns scripts in first-insertion order. Upserting an existing ID
// replaces its fields but keeps its position, so re-installing a script does
// not change the order in which scripts are injected.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Every write is committed before the method returns.
package store
