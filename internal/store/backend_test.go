package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pollstore/internal/address"
)

func getRecord(t *testing.T, b Backend, addr address.Address) Record {
	t.Helper()
	var got Record
	err := b.View(context.Background(), func(tx Tx) error {
		var err error
		got, err = tx.Get(context.Background(), addr)
		return err
	})
	require.NoError(t, err)
	return got
}

func TestBackend_CreateAndGet(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t)
			rec := testRecord(t, KindPoll, 7, 7)
			mustCreate(t, b, rec)

			assert.Equal(t, rec, getRecord(t, b, rec.Address))
		})
	}
}

func TestBackend_CreateOccupied(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t)
			rec := testRecord(t, KindPoll, 42, 42)
			mustCreate(t, b, rec)

			dup := rec
			dup.Data = []byte(`{"other":true}`)
			err := b.Update(context.Background(), func(tx Tx) error {
				return tx.Create(context.Background(), dup)
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrOccupied))

			// Original body is untouched.
			assert.Equal(t, rec.Data, getRecord(t, b, rec.Address).Data)
		})
	}
}

func TestBackend_GetMissing(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t)
			rec := testRecord(t, KindPoll, 1, 1)
			err := b.View(context.Background(), func(tx Tx) error {
				_, err := tx.Get(context.Background(), rec.Address)
				return err
			})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBackend_PutAndDelete(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t)
			ctx := context.Background()
			rec := testRecord(t, KindCandidate, 3, 1)
			mustCreate(t, b, rec)

			rec.Data = []byte(`{"votes":1}`)
			require.NoError(t, b.Update(ctx, func(tx Tx) error {
				return tx.Put(ctx, rec)
			}))
			assert.Equal(t, rec.Data, getRecord(t, b, rec.Address).Data)

			require.NoError(t, b.Update(ctx, func(tx Tx) error {
				return tx.Delete(ctx, rec.Address)
			}))

			err := b.Update(ctx, func(tx Tx) error {
				return tx.Delete(ctx, rec.Address)
			})
			assert.ErrorIs(t, err, ErrNotFound)

			err = b.Update(ctx, func(tx Tx) error {
				return tx.Put(ctx, rec)
			})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBackend_RollbackOnError(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t)
			ctx := context.Background()
			existing := testRecord(t, KindPoll, 1, 1)
			mustCreate(t, b, existing)

			boom := errors.New("boom")
			err := b.Update(ctx, func(tx Tx) error {
				if err := tx.Create(ctx, testRecord(t, KindCandidate, 1, 1)); err != nil {
					return err
				}
				if err := tx.Delete(ctx, existing.Address); err != nil {
					return err
				}
				if _, err := tx.AppendJournal(ctx, JournalEntry{ID: "j1", Op: "x", Args: "{}", Outcome: "ok"}); err != nil {
					return err
				}
				return boom
			})
			require.ErrorIs(t, err, boom)

			assert.Equal(t, existing, getRecord(t, b, existing.Address))
			var candidates []Record
			require.NoError(t, b.View(ctx, func(tx Tx) error {
				var err error
				candidates, err = tx.List(ctx, Query{Kind: KindCandidate})
				return err
			}))
			assert.Empty(t, candidates)

			entries, err := b.Journal(ctx, 0)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestBackend_ReadYourWrites(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t)
			ctx := context.Background()
			rec := testRecord(t, KindPoll, 9, 9)

			err := b.Update(ctx, func(tx Tx) error {
				require.NoError(t, tx.Create(ctx, rec))
				got, err := tx.Get(ctx, rec.Address)
				require.NoError(t, err)
				assert.Equal(t, rec, got)

				list, err := tx.List(ctx, Query{Kind: KindPoll})
				require.NoError(t, err)
				assert.Len(t, list, 1)

				require.NoError(t, tx.Delete(ctx, rec.Address))
				_, err = tx.Get(ctx, rec.Address)
				assert.ErrorIs(t, err, ErrNotFound)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestBackend_ListOrderingAndFilter(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t)
			ctx := context.Background()
			mustCreate(t, b,
				testRecord(t, KindCandidate, 2, 10),
				testRecord(t, KindCandidate, 1, 3),
				testRecord(t, KindCandidate, 2, 2),
				testRecord(t, KindCandidate, 1, 1),
				testRecord(t, KindPoll, 1, 1),
			)

			var all, poll2 []Record
			require.NoError(t, b.View(ctx, func(tx Tx) error {
				var err error
				if all, err = tx.List(ctx, Query{Kind: KindCandidate}); err != nil {
					return err
				}
				poll2, err = tx.List(ctx, ForPoll(KindCandidate, 2))
				return err
			}))

			require.Len(t, all, 4)
			got := [][2]uint64{}
			for _, r := range all {
				got = append(got, [2]uint64{r.PollID, r.Ordinal})
			}
			assert.Equal(t, [][2]uint64{{1, 1}, {1, 3}, {2, 2}, {2, 10}}, got)

			require.Len(t, poll2, 2)
			assert.Equal(t, uint64(2), poll2[0].Ordinal)
			assert.Equal(t, uint64(10), poll2[1].Ordinal)
		})
	}
}

func TestBackend_ViewIsReadOnly(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t)
			ctx := context.Background()
			err := b.View(ctx, func(tx Tx) error {
				return tx.Create(ctx, testRecord(t, KindPoll, 1, 1))
			})
			assert.ErrorIs(t, err, ErrReadOnly)
		})
	}
}

func TestBackend_Journal(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t)
			ctx := context.Background()

			seq, err := b.MaxSeq(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), seq)

			for i := int64(1); i <= 3; i++ {
				// Caller-supplied seqs are ignored.
				entry := JournalEntry{ID: string(rune('a' + i)), Seq: 99, Op: "create_poll", Args: "{}", Outcome: "ok"}
				require.NoError(t, b.Update(ctx, func(tx Tx) error {
					got, err := tx.AppendJournal(ctx, entry)
					assert.Equal(t, i, got)
					return err
				}))
			}

			entries, err := b.Journal(ctx, 0)
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, int64(1), entries[0].Seq)
			assert.Equal(t, int64(3), entries[2].Seq)

			recent, err := b.Journal(ctx, 2)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, int64(2), recent[0].Seq)
			assert.Equal(t, int64(3), recent[1].Seq)

			seq, err = b.MaxSeq(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), seq)

			err = b.Update(ctx, func(tx Tx) error {
				_, err := tx.AppendJournal(ctx, JournalEntry{ID: "b", Op: "x", Args: "{}", Outcome: "ok"})
				return err
			})
			assert.Error(t, err, "duplicate id")

			// Seqs stay consecutive within one transaction.
			require.NoError(t, b.Update(ctx, func(tx Tx) error {
				first, err := tx.AppendJournal(ctx, JournalEntry{ID: "e", Op: "x", Args: "{}", Outcome: "ok"})
				if err != nil {
					return err
				}
				second, err := tx.AppendJournal(ctx, JournalEntry{ID: "f", Op: "x", Args: "{}", Outcome: "ok"})
				assert.Equal(t, int64(4), first)
				assert.Equal(t, int64(5), second)
				return err
			}))

			err = b.View(ctx, func(tx Tx) error {
				_, err := tx.AppendJournal(ctx, JournalEntry{ID: "g", Op: "x", Args: "{}", Outcome: "ok"})
				return err
			})
			assert.ErrorIs(t, err, ErrReadOnly)
		})
	}
}

func TestStore_JournalSeqSharedAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	a, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	b, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	appendVia := func(s *Store, id string) int64 {
		var seq int64
		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			var err error
			seq, err = tx.AppendJournal(ctx, JournalEntry{ID: id, Op: "x", Args: "{}", Outcome: "ok"})
			return err
		}))
		return seq
	}
	assert.Equal(t, int64(1), appendVia(a, "one"))
	assert.Equal(t, int64(2), appendVia(b, "two"))
	assert.Equal(t, int64(3), appendVia(a, "three"))

	entries, err := b.Journal(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
}

func TestBackend_ConcurrentCreateSingleWinner(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t)
			ctx := context.Background()
			rec := testRecord(t, KindPoll, 77, 77)

			const workers = 8
			var wg sync.WaitGroup
			results := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					results <- b.Update(ctx, func(tx Tx) error {
						return tx.Create(ctx, rec)
					})
				}()
			}
			wg.Wait()
			close(results)

			wins, occupied := 0, 0
			for err := range results {
				switch {
				case err == nil:
					wins++
				case errors.Is(err, ErrOccupied):
					occupied++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}
			assert.Equal(t, 1, wins)
			assert.Equal(t, workers-1, occupied)
		})
	}
}

func TestBackend_RejectsInvalidRecords(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t)
			ctx := context.Background()

			bad := testRecord(t, KindPoll, 1, 1)
			bad.Kind = "ballot"
			err := b.Update(ctx, func(tx Tx) error { return tx.Create(ctx, bad) })
			assert.Error(t, err)

			empty := testRecord(t, KindPoll, 1, 1)
			empty.Data = nil
			err = b.Update(ctx, func(tx Tx) error { return tx.Create(ctx, empty) })
			assert.Error(t, err)

			zero := testRecord(t, KindPoll, 1, 1)
			zero.Address = address.Address{}
			err = b.Update(ctx, func(tx Tx) error { return tx.Create(ctx, zero) })
			assert.Error(t, err)
		})
	}
}

func TestBackend_Closed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())
	err := m.Update(context.Background(), func(Tx) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}
