package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/pollstore/internal/address"
)

// txn implements Tx on a database transaction.
type txn struct {
	tx       *sql.Tx
	store    *Store
	readOnly bool
}

// Create inserts rec unless its address is taken.
// Uses ON CONFLICT(address) DO NOTHING so an occupied address is detected
// from the affected row count rather than a prior lookup.
func (t *txn) Create(ctx context.Context, rec Record) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if err := validateRecord(rec); err != nil {
		return fmt.Errorf("create record: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, t.store.rebind(`
		INSERT INTO records
		(address, kind, poll_id, ordinal, bump, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`),
		rec.Address.String(),
		string(rec.Kind),
		encodeU64(rec.PollID),
		encodeU64(rec.Ordinal),
		int64(rec.Bump),
		string(rec.Data),
	)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create record: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("create record %s: %w", rec.Address, ErrOccupied)
	}
	return nil
}

// Put replaces the body of an existing record.
func (t *txn) Put(ctx context.Context, rec Record) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if err := validateRecord(rec); err != nil {
		return fmt.Errorf("put record: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, t.store.rebind(`
		UPDATE records
		SET kind = ?, poll_id = ?, ordinal = ?, bump = ?, data = ?
		WHERE address = ?
	`),
		string(rec.Kind),
		encodeU64(rec.PollID),
		encodeU64(rec.Ordinal),
		int64(rec.Bump),
		string(rec.Data),
		rec.Address.String(),
	)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return requireOneRow(result, "put record", rec.Address)
}

// Delete removes the record at addr.
func (t *txn) Delete(ctx context.Context, addr address.Address) error {
	if t.readOnly {
		return ErrReadOnly
	}
	result, err := t.tx.ExecContext(ctx, t.store.rebind(`
		DELETE FROM records WHERE address = ?
	`), addr.String())
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return requireOneRow(result, "delete record", addr)
}

// AppendJournal inserts a journal entry inside the transaction.
// The seq is read from the journal in the same transaction, so ledgers on
// separate handles to one database never hand out the same seq.
func (t *txn) AppendJournal(ctx context.Context, entry JournalEntry) (int64, error) {
	if t.readOnly {
		return 0, ErrReadOnly
	}
	var seq int64
	if err := t.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM journal`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("append journal: next seq: %w", err)
	}
	_, err := t.tx.ExecContext(ctx, t.store.rebind(`
		INSERT INTO journal
		(id, seq, op, args, outcome, message)
		VALUES (?, ?, ?, ?, ?, ?)
	`),
		entry.ID,
		seq,
		entry.Op,
		entry.Args,
		entry.Outcome,
		entry.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("append journal: %w", err)
	}
	return seq, nil
}

func requireOneRow(result sql.Result, op string, addr address.Address) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, addr, ErrNotFound)
	}
	return nil
}
