// Package config loads pollstore settings.
//
// Settings come from a CUE file checked against an embedded #Config
// schema, then environment variables (a .env file may supply them), then
// command-line flags. Each layer overrides the one before it.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
)

//go:embed schema.cue
var schemaCUE string

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "pollstore.cue"

// Environment variables.
const (
	EnvDB      = "POLLSTORE_DB"
	EnvDriver  = "POLLSTORE_DRIVER"
	EnvTally   = "POLLSTORE_TALLY"
	EnvProgram = "POLLSTORE_PROGRAM"
)

// Config is the resolved configuration.
type Config struct {
	Store  StoreConfig  `json:"store"`
	Ledger LedgerConfig `json:"ledger"`
}

// StoreConfig selects the database.
type StoreConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// LedgerConfig controls ledger behavior.
type LedgerConfig struct {
	Tally   bool   `json:"tally"`
	Program string `json:"program"`
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := decode(nil, "")
	if err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads the CUE file at path and applies schema defaults.
// An empty path loads DefaultFile if present, otherwise defaults only.
func Load(path string) (Config, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			return Default(), nil
		}
		path = DefaultFile
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return decode(src, path)
}

// Parse decodes CUE source. name is used in error positions.
func Parse(src []byte, name string) (Config, error) {
	return decode(src, name)
}

func decode(src []byte, name string) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if src != nil {
		file := ctx.CompileBytes(src, cue.Filename(name))
		if err := file.Err(); err != nil {
			return Config{}, fmt.Errorf("compile %s: %w", name, err)
		}
		v = v.Unify(file)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", name, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the process environment.
// Variables already set are kept. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from environment variables read with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvDriver); v != "" {
		c.Store.Driver = v
	}
	if v := getenv(EnvDB); v != "" {
		c.Store.DSN = v
	}
	if v := getenv(EnvProgram); v != "" {
		c.Ledger.Program = v
	}
	if v := getenv(EnvTally); v != "" {
		tally, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTally, v, err)
		}
		c.Ledger.Tally = tally
	}
	return c.Validate()
}

// Validate checks values set outside the schema, such as by env or flags.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported driver %q (want sqlite3 or postgres)", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return errors.New("store dsn is empty")
	}
	if c.Ledger.Program == "" {
		return errors.New("ledger program is empty")
	}
	return nil
}
