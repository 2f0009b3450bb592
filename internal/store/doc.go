// Package store provides the keyed record store the ledger runs on.
//
// Records live at derived addresses and hold canonical JSON bodies. The
// store knows nothing about polls; it offers the three primitives the
// ledger's invariants are built from:
//
//   - Create is insert-if-absent. An occupied address returns ErrOccupied,
//     which is how per-poll and per-voter uniqueness is enforced.
//   - Update runs a function inside one transaction. Either every write in
//     it commits or none does.
//   - View runs a read-only function against a consistent snapshot.
//
// # Backends
//
//   - Store: database/sql over SQLite (github.com/mattn/go-sqlite3) or
//     PostgreSQL (github.com/lib/pq)
//   - Memory: a mutex-guarded map with a staged overlay per transaction
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: transactions are serialized
//
// # Journal
//
// Every ledger operation appends a JournalEntry. Entries are ordered by
// seq (a logical clock), never by wall time, so the journal reads back
// identically on every run.
package store
