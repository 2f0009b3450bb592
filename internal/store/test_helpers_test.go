package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/pollstore/internal/address"
)

// createTestStore creates a new SQLite store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backends returns every Backend implementation under test. PostgreSQL is
// included only when POLLSTORE_TEST_POSTGRES holds a DSN.
func backends(t *testing.T) map[string]func(t *testing.T) Backend {
	t.Helper()
	out := map[string]func(t *testing.T) Backend{
		"memory": func(t *testing.T) Backend {
			m := NewMemory()
			t.Cleanup(func() { m.Close() })
			return m
		},
		"sqlite": func(t *testing.T) Backend {
			return createTestStore(t)
		},
	}
	if dsn := os.Getenv("POLLSTORE_TEST_POSTGRES"); dsn != "" {
		out["postgres"] = func(t *testing.T) Backend {
			s, err := Open(DriverPostgres, dsn)
			require.NoError(t, err)
			_, err = s.db.Exec(`DELETE FROM records; DELETE FROM journal;`)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}
	}
	return out
}

var testDeriver = address.NewDeriver(address.ProgramIDFromName("store-test"))

// testRecord creates a record at a derived candidate address.
func testRecord(t *testing.T, kind Kind, pollID, ordinal uint64) Record {
	t.Helper()
	addr, bump, err := testDeriver.Derive(address.CandidateSeeds(pollID, ordinal)...)
	require.NoError(t, err)
	if kind == KindPoll {
		addr, bump, err = testDeriver.Derive(address.PollSeeds(pollID)...)
		require.NoError(t, err)
	}
	return Record{
		Address: addr,
		Kind:    kind,
		PollID:  pollID,
		Ordinal: ordinal,
		Bump:    bump,
		Data:    []byte(fmt.Sprintf(`{"poll":%d,"n":%d}`, pollID, ordinal)),
	}
}

func mustCreate(t *testing.T, b Backend, recs ...Record) {
	t.Helper()
	err := b.Update(context.Background(), func(tx Tx) error {
		for _, r := range recs {
			if err := tx.Create(context.Background(), r); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}
