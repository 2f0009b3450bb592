package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/pollstore/internal/address"
)

var (
	// ErrNotFound is returned when no record lives at an address.
	ErrNotFound = errors.New("record not found")

	// ErrOccupied is returned by Create when the address already holds a record.
	ErrOccupied = errors.New("address already occupied")

	// ErrReadOnly is returned by write methods called inside View.
	ErrReadOnly = errors.New("read-only transaction")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")
)

// Kind labels what a record body holds.
type Kind string

// Record kinds.
const (
	KindPoll      Kind = "poll"
	KindCandidate Kind = "candidate"
	KindVote      Kind = "vote"
)

// Record is one addressed entry.
//
// PollID and Ordinal are index columns used only for listing: every kind
// belongs to a poll, and Ordinal orders records within it (the candidate
// id for candidates, the poll id for polls, zero for votes).
type Record struct {
	Address address.Address
	Kind    Kind
	PollID  uint64
	Ordinal uint64
	Bump    uint8
	Data    []byte
}

func (r Record) clone() Record {
	r.Data = append([]byte(nil), r.Data...)
	return r
}

// Query selects records for List. A nil PollID matches every poll.
type Query struct {
	Kind   Kind
	PollID *uint64
}

// ForPoll returns a Query over kind within pollID.
func ForPoll(kind Kind, pollID uint64) Query {
	return Query{Kind: kind, PollID: &pollID}
}

func (q Query) matches(r Record) bool {
	if r.Kind != q.Kind {
		return false
	}
	return q.PollID == nil || *q.PollID == r.PollID
}

// JournalEntry records the outcome of one ledger operation.
type JournalEntry struct {
	ID      string `json:"id"`
	Seq     int64  `json:"seq"`
	Op      string `json:"op"`
	Args    string `json:"args"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
}

// Tx is the view of the store inside one transaction.
type Tx interface {
	// Get returns the record at addr or ErrNotFound.
	Get(ctx context.Context, addr address.Address) (Record, error)

	// Create inserts rec if its address is free, else returns ErrOccupied.
	Create(ctx context.Context, rec Record) error

	// Put replaces the record at rec.Address. Returns ErrNotFound if absent.
	Put(ctx context.Context, rec Record) error

	// Delete removes the record at addr. Returns ErrNotFound if absent.
	Delete(ctx context.Context, addr address.Address) error

	// List returns records matching q ordered by poll id, ordinal, address.
	List(ctx context.Context, q Query) ([]Record, error)

	// AppendJournal appends entry and returns the seq it was assigned, one
	// above the highest seq visible to the transaction. entry.Seq is ignored.
	AppendJournal(ctx context.Context, entry JournalEntry) (int64, error)
}

// Backend owns the records and hands out transactions.
type Backend interface {
	// Update runs fn in a read-write transaction. If fn returns an error
	// nothing it wrote is persisted and the error is returned unchanged.
	Update(ctx context.Context, fn func(Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error

	// Journal returns up to limit most recent entries in ascending seq
	// order. limit <= 0 returns all entries.
	Journal(ctx context.Context, limit int) ([]JournalEntry, error)

	// MaxSeq returns the highest journal seq, or 0 when the journal is empty.
	MaxSeq(ctx context.Context) (int64, error)

	Close() error
}

func validateRecord(rec Record) error {
	if rec.Address.IsZero() {
		return fmt.Errorf("record has zero address")
	}
	switch rec.Kind {
	case KindPoll, KindCandidate, KindVote:
	default:
		return fmt.Errorf("unknown record kind %q", rec.Kind)
	}
	if len(rec.Data) == 0 {
		return fmt.Errorf("record %s has empty body", rec.Address)
	}
	return nil
}
