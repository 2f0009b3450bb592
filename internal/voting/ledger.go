package voting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/pollstore/internal/address"
	"github.com/roach88/pollstore/internal/clock"
	"github.com/roach88/pollstore/internal/codec"
	"github.com/roach88/pollstore/internal/store"
)

// Journal outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeInvariant = "InvariantViolation"
)

// IDGenerator produces journal entry ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 journal ids.
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Options configures a Ledger.
type Options struct {
	// Tally maintains candidate.votes and poll.total_votes on every vote.
	Tally bool

	// Clock supplies the current time for window checks. Defaults to the
	// system clock.
	Clock clock.Clock

	// IDs generates journal entry ids. Defaults to UUIDv7Generator.
	IDs IDGenerator

	// Logger receives one record per operation. Defaults to discard.
	Logger *slog.Logger
}

// Ledger executes poll operations against a store.Backend.
// A Ledger is safe for concurrent use; isolation comes from the backend.
type Ledger struct {
	backend store.Backend
	deriver address.Deriver
	tally   bool
	clock   clock.Clock
	ids     IDGenerator
	logger  *slog.Logger
}

// New creates a Ledger and checks that the backend's journal is readable.
// Journal seqs are assigned by the backend inside each operation's
// transaction, so any number of ledgers may share one database.
func New(ctx context.Context, backend store.Backend, deriver address.Deriver, opts Options) (*Ledger, error) {
	l := &Ledger{
		backend: backend,
		deriver: deriver,
		tally:   opts.Tally,
		clock:   opts.Clock,
		ids:     opts.IDs,
		logger:  opts.Logger,
	}
	if l.clock == nil {
		l.clock = clock.System{}
	}
	if l.ids == nil {
		l.ids = UUIDv7Generator{}
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	last, err := backend.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("read journal position: %w", err)
	}
	l.logger.Debug("ledger opened", "journal_seq", last, "tally", l.tally)
	return l, nil
}

// Tally reports whether aggregate counters are maintained.
func (l *Ledger) Tally() bool {
	return l.tally
}

// Deriver returns the address deriver records are located with.
func (l *Ledger) Deriver() address.Deriver {
	return l.deriver
}

// Journal returns up to limit recent journal entries, oldest first.
func (l *Ledger) Journal(ctx context.Context, limit int) ([]store.JournalEntry, error) {
	return l.backend.Journal(ctx, limit)
}

func (l *Ledger) now() int64 {
	return l.clock.Now().Unix()
}

// Now returns the ledger's current time.
func (l *Ledger) Now() time.Time {
	return l.clock.Now()
}

// execute runs fn in one transaction and journals the outcome.
//
// A successful operation journals inside its own transaction, so the
// entry commits with the records. A rejected one is rolled back first and
// then journaled in a separate transaction.
func (l *Ledger) execute(ctx context.Context, op string, args codec.Object, fn func(tx store.Tx) error) error {
	argsJSON, err := codec.Marshal(args)
	if err != nil {
		return fmt.Errorf("%s: marshal args: %w", op, err)
	}

	var seq int64
	err = l.backend.Update(ctx, func(tx store.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		var err error
		seq, err = tx.AppendJournal(ctx, store.JournalEntry{
			ID:      l.ids.Generate(),
			Op:      op,
			Args:    string(argsJSON),
			Outcome: OutcomeOK,
		})
		return err
	})
	if err == nil {
		l.logger.Debug("operation committed", "op", op, "seq", seq, "args", string(argsJSON))
		return nil
	}

	outcome, message := "", err.Error()
	var rejected *Error
	var invariant *InvariantError
	switch {
	case errors.As(err, &rejected):
		outcome = string(rejected.Code)
		message = rejected.Message
		l.logger.Info("operation rejected", "op", op, "code", rejected.Code, "reason", rejected.Message)
	case errors.As(err, &invariant):
		outcome = OutcomeInvariant
		l.logger.Error("invariant violated", "op", op, "invariant", invariant.Invariant, "args", string(argsJSON))
	default:
		l.logger.Error("operation failed", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	jerr := l.backend.Update(ctx, func(tx store.Tx) error {
		_, err := tx.AppendJournal(ctx, store.JournalEntry{
			ID:      l.ids.Generate(),
			Op:      op,
			Args:    string(argsJSON),
			Outcome: outcome,
			Message: message,
		})
		return err
	})
	if jerr != nil {
		l.logger.Error("failed to journal rejected operation", "op", op, "error", jerr)
	}
	return err
}

// view runs fn in a read-only transaction.
func (l *Ledger) view(ctx context.Context, fn func(tx store.Tx) error) error {
	return l.backend.View(ctx, fn)
}

// derive resolves seeds to an address. Seeds are validated by callers, so
// a failure here is a defect.
func (l *Ledger) derive(seeds [][]byte) (address.Address, uint8, error) {
	addr, bump, err := l.deriver.Derive(seeds...)
	if err != nil {
		return address.Address{}, 0, fmt.Errorf("derive address: %w", err)
	}
	return addr, bump, nil
}

// loadRecord fetches and decodes the record at addr into v.
// A missing record yields notFound; a body of the wrong kind or that does
// not decode is an invariant violation.
func loadRecord(ctx context.Context, tx store.Tx, addr address.Address, kind store.Kind, v any, notFound func() error) error {
	rec, err := tx.Get(ctx, addr)
	if errors.Is(err, store.ErrNotFound) {
		return notFound()
	}
	if err != nil {
		return err
	}
	if rec.Kind != kind {
		return &InvariantError{Invariant: fmt.Sprintf("record %s is %s, want %s", addr, rec.Kind, kind)}
	}
	if err := codec.Decode(rec.Data, v); err != nil {
		return &InvariantError{Invariant: fmt.Sprintf("%s record %s is corrupt", kind, addr), Err: err}
	}
	return nil
}

func encodeRecord(kind store.Kind, addr address.Address, bump uint8, pollID, ordinal uint64, body any) (store.Record, error) {
	data, err := codec.Encode(body)
	if err != nil {
		return store.Record{}, fmt.Errorf("encode %s: %w", kind, err)
	}
	return store.Record{
		Address: addr,
		Kind:    kind,
		PollID:  pollID,
		Ordinal: ordinal,
		Bump:    bump,
		Data:    data,
	}, nil
}
