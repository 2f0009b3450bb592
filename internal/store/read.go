package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/pollstore/internal/address"
)

// Get returns the record at addr.
func (t *txn) Get(ctx context.Context, addr address.Address) (Record, error) {
	row := t.tx.QueryRowContext(ctx, t.store.rebind(`
		SELECT address, kind, poll_id, ordinal, bump, data
		FROM records
		WHERE address = ?
	`), addr.String())

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("get record %s: %w", addr, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record %s: %w", addr, err)
	}
	return rec, nil
}

// List returns records matching q.
// Ordering is deterministic: poll_id, ordinal, then address.
func (t *txn) List(ctx context.Context, q Query) ([]Record, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT address, kind, poll_id, ordinal, bump, data
		FROM records
		WHERE kind = ?`)
	args := []any{string(q.Kind)}
	if q.PollID != nil {
		b.WriteString(` AND poll_id = ?`)
		args = append(args, encodeU64(*q.PollID))
	}
	b.WriteString(`
		ORDER BY poll_id ASC, ordinal ASC, address ASC`)

	rows, err := t.tx.QueryContext(ctx, t.store.rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", q.Kind, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list %s records: %w", q.Kind, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s records: %w", q.Kind, err)
	}
	return records, nil
}

// Journal returns the most recent entries in ascending seq order.
func (s *Store) Journal(ctx context.Context, limit int) ([]JournalEntry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	query := `
		SELECT id, seq, op, args, outcome, message
		FROM journal
		ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.Seq, &e.Op, &e.Args, &e.Outcome, &e.Message); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}

	// Reverse into ascending order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// MaxSeq returns the highest journal seq.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM journal`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		addrHex, kind, pollID, ordinal, data string
		bump                                 int64
	)
	if err := row.Scan(&addrHex, &kind, &pollID, &ordinal, &bump, &data); err != nil {
		return Record{}, err
	}

	addr, err := address.Parse(addrHex)
	if err != nil {
		return Record{}, err
	}
	pid, err := decodeU64(pollID)
	if err != nil {
		return Record{}, err
	}
	ord, err := decodeU64(ordinal)
	if err != nil {
		return Record{}, err
	}
	if bump < 0 || bump > 255 {
		return Record{}, fmt.Errorf("bump %d out of range", bump)
	}

	return Record{
		Address: addr,
		Kind:    Kind(kind),
		PollID:  pid,
		Ordinal: ord,
		Bump:    uint8(bump),
		Data:    []byte(data),
	}, nil
}
