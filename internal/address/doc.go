// Package address derives deterministic record addresses from ordered seeds.
//
// An address is the SHA-256 digest of the seeds, a one-byte bump, the
// program id, and a fixed marker. Bumps are tried from 255 downward and the
// first digest that does not decode as an ed25519 point wins, so a derived
// address can never collide with a key that has a private counterpart.
//
// The same derivation serves reads and writes: finding the poll with id 7
// and creating it resolve to the same address. Whether a record is present
// at that address is what distinguishes the two.
//
// Record seed layouts:
//
//	poll       [poll_id LE8]
//	candidate  [poll_id LE8, candidate_id LE8]
//	vote       ["vote", poll_id LE8, sha256(voter)]
package address
