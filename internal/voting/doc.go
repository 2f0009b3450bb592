// Package voting implements the poll ledger: polls with a voting window,
// candidates scoped to a poll, and one vote record per voter per poll.
//
// Records never reference each other by pointer. Every lookup derives the
// record's address from its identifying ids (see package address), and
// each operation runs as a single store transaction: guards fail fast with
// a typed *Error and nothing the operation wrote is persisted.
//
// Uniqueness is enforced by address collision. A second poll with the
// same id, a second candidate with the same (poll, candidate) pair, or a
// second vote by the same voter in the same poll all land on an occupied
// address and are rejected by the store's insert-if-absent primitive.
//
// # Tallying
//
// With Options.Tally set the ledger also maintains candidate.votes and
// poll.total_votes inside the vote transaction. Without it those counters
// stay zero and Results derives counts from vote records alone.
//
// # Retention
//
// Deleting a poll does not delete its vote records. Only existing
// candidates block deletion. A poll re-created under the same id
// therefore still sees earlier voters as having voted.
package voting
