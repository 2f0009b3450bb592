package store

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/pollstore/internal/address"
)

// Memory is an in-process Backend.
//
// Writers hold an exclusive lock for the whole transaction and stage their
// changes in an overlay that is merged only when fn succeeds. Readers share
// a read lock.
type Memory struct {
	mu      sync.RWMutex
	records map[address.Address]Record
	journal []JournalEntry
	closed  bool
}

var _ Backend = (*Memory)(nil)

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{records: map[address.Address]Record{}}
}

// Update runs fn with exclusive access and applies its writes on success.
func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{base: m, staged: map[address.Address]*Record{}}
	if err := fn(tx); err != nil {
		return err
	}

	for addr, rec := range tx.staged {
		if rec == nil {
			delete(m.records, addr)
			continue
		}
		m.records[addr] = *rec
	}
	m.journal = append(m.journal, tx.journal...)
	return nil
}

// View runs fn against the committed state.
func (m *Memory) View(ctx context.Context, fn func(Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memTx{base: m, readOnly: true})
}

// Journal returns the most recent entries in ascending seq order.
func (m *Memory) Journal(ctx context.Context, limit int) ([]JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	entries := m.journal
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return append([]JournalEntry{}, entries...), nil
}

// MaxSeq returns the highest journal seq.
func (m *Memory) MaxSeq(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	var last int64
	for _, e := range m.journal {
		last = max(last, e.Seq)
	}
	return last, nil
}

// Close releases the backend. Further calls return ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memTx reads through its staged overlay to the committed records.
// A nil entry in staged marks a deletion.
type memTx struct {
	base     *Memory
	staged   map[address.Address]*Record
	journal  []JournalEntry
	readOnly bool
}

func (t *memTx) lookup(addr address.Address) (Record, bool) {
	if rec, ok := t.staged[addr]; ok {
		if rec == nil {
			return Record{}, false
		}
		return *rec, true
	}
	rec, ok := t.base.records[addr]
	return rec, ok
}

func (t *memTx) Get(_ context.Context, addr address.Address) (Record, error) {
	rec, ok := t.lookup(addr)
	if !ok {
		return Record{}, fmt.Errorf("get record %s: %w", addr, ErrNotFound)
	}
	return rec.clone(), nil
}

func (t *memTx) Create(_ context.Context, rec Record) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if err := validateRecord(rec); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	if _, ok := t.lookup(rec.Address); ok {
		return fmt.Errorf("create record %s: %w", rec.Address, ErrOccupied)
	}
	c := rec.clone()
	t.staged[rec.Address] = &c
	return nil
}

func (t *memTx) Put(_ context.Context, rec Record) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if err := validateRecord(rec); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	if _, ok := t.lookup(rec.Address); !ok {
		return fmt.Errorf("put record %s: %w", rec.Address, ErrNotFound)
	}
	c := rec.clone()
	t.staged[rec.Address] = &c
	return nil
}

func (t *memTx) Delete(_ context.Context, addr address.Address) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if _, ok := t.lookup(addr); !ok {
		return fmt.Errorf("delete record %s: %w", addr, ErrNotFound)
	}
	t.staged[addr] = nil
	return nil
}

func (t *memTx) List(_ context.Context, q Query) ([]Record, error) {
	seen := map[address.Address]bool{}
	out := []Record{}
	for addr, rec := range t.staged {
		seen[addr] = true
		if rec != nil && q.matches(*rec) {
			out = append(out, rec.clone())
		}
	}
	for addr, rec := range t.base.records {
		if seen[addr] {
			continue
		}
		if q.matches(rec) {
			out = append(out, rec.clone())
		}
	}
	slices.SortFunc(out, func(a, b Record) int {
		if c := cmp.Compare(a.PollID, b.PollID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Ordinal, b.Ordinal); c != 0 {
			return c
		}
		return bytes.Compare(a.Address[:], b.Address[:])
	})
	return out, nil
}

func (t *memTx) AppendJournal(_ context.Context, entry JournalEntry) (int64, error) {
	if t.readOnly {
		return 0, ErrReadOnly
	}
	var last int64
	for _, e := range slices.Concat(t.base.journal, t.journal) {
		if e.ID == entry.ID {
			return 0, fmt.Errorf("append journal: duplicate entry id=%s", entry.ID)
		}
		last = max(last, e.Seq)
	}
	entry.Seq = last + 1
	t.journal = append(t.journal, entry)
	return entry.Seq, nil
}
