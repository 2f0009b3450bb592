package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, Config{
		Store:  StoreConfig{Driver: "sqlite3", DSN: "pollstore.db"},
		Ledger: LedgerConfig{Tally: true, Program: "pollstore"},
	}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestParse_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
store: dsn: "/var/lib/polls.db"
ledger: tally: false
`), "partial.cue")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/polls.db", cfg.Store.DSN)
	assert.False(t, cfg.Ledger.Tally)
	assert.Equal(t, "pollstore", cfg.Ledger.Program)
}

func TestParse_Postgres(t *testing.T) {
	cfg, err := Parse([]byte(`
store: {
	driver: "postgres"
	dsn:    "postgres://localhost/polls?sslmode=disable"
}
`), "pg.cue")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown driver", `store: driver: "mysql"`},
		{"empty dsn", `store: dsn: ""`},
		{"wrong type", `ledger: tally: "yes"`},
		{"unknown field", `ledger: fees: 10`},
		{"syntax", `store: {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.cue")
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pollstore.cue")
	require.NoError(t, os.WriteFile(path, []byte(`ledger: program: "staging"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Ledger.Program)

	_, err = Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{
		EnvDB:      "env.db",
		EnvTally:   "false",
		EnvProgram: "from-env",
	})))
	assert.Equal(t, "env.db", cfg.Store.DSN)
	assert.Equal(t, "sqlite3", cfg.Store.Driver)
	assert.False(t, cfg.Ledger.Tally)
	assert.Equal(t, "from-env", cfg.Ledger.Program)

	unchanged := Default()
	require.NoError(t, unchanged.ApplyEnv(noEnv))
	assert.Equal(t, Default(), unchanged)
}

func TestApplyEnv_Invalid(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.ApplyEnv(envMap(map[string]string{EnvTally: "maybe"})))

	cfg = Default()
	assert.Error(t, cfg.ApplyEnv(envMap(map[string]string{EnvDriver: "oracle"})))
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("POLLSTORE_PROGRAM=dotenv\nPOLLSTORE_DRIVER=postgres\n"), 0o644))

	// Already-set variables win over the file
	t.Setenv(EnvDriver, "sqlite3")
	t.Setenv(EnvProgram, "")
	require.NoError(t, os.Unsetenv(EnvProgram))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "dotenv", os.Getenv(EnvProgram))
	assert.Equal(t, "sqlite3", os.Getenv(EnvDriver))
}
