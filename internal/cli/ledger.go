package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pollstore/internal/address"
	"github.com/roach88/pollstore/internal/config"
	"github.com/roach88/pollstore/internal/store"
	"github.com/roach88/pollstore/internal/voting"
)

// resolveConfig layers the config file, the environment and global flags.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(opts.getenv); err != nil {
		return config.Config{}, err
	}
	if opts.Driver != "" {
		cfg.Store.Driver = opts.Driver
	}
	if opts.DB != "" {
		cfg.Store.DSN = opts.DB
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// deriverFor returns the address deriver for the configured program.
func deriverFor(cfg config.Config) address.Deriver {
	return address.NewDeriver(address.ProgramIDFromName(cfg.Ledger.Program))
}

// openLedger opens the configured store and a ledger over it. The caller
// must call the returned close function.
func openLedger(cmd *cobra.Command, opts *RootOptions) (*voting.Ledger, func(), error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger := opts.logger(cmd.ErrOrStderr())
	logger.Debug("opening store", "driver", cfg.Store.Driver, "dsn", cfg.Store.DSN)
	st, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	ledger, err := voting.New(cmd.Context(), st, deriverFor(cfg), voting.Options{
		Tally:  cfg.Ledger.Tally,
		Clock:  opts.Clock,
		IDs:    opts.IDs,
		Logger: logger,
	})
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	return ledger, func() { st.Close() }, nil
}

// ledgerFailure reports err and converts it to an exit code:
// rejections exit 1, invariant violations and infrastructure errors exit 2.
func ledgerFailure(f *OutputFormatter, op string, err error) error {
	var rejected *voting.Error
	switch {
	case errors.As(err, &rejected):
		_ = f.Error(string(rejected.Code), rejected.Message, rejected.Details)
		return WrapExitError(ExitFailure, op+" rejected", err)
	case voting.IsInvariant(err):
		_ = f.Error(voting.OutcomeInvariant, err.Error(), nil)
		return WrapExitError(ExitCommandError, op+" aborted", err)
	default:
		return WrapExitError(ExitCommandError, op+" failed", err)
	}
}

// parseID parses a decimal u64 id argument.
func parseID(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s %q", name, s), err)
	}
	return v, nil
}

// parseTime accepts unix seconds or an RFC 3339 timestamp.
func parseTime(name, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid %s %q: want unix seconds or RFC 3339", name, s))
	}
	return t.Unix(), nil
}

// requireIdentity rejects an empty --as before anything is written.
func requireIdentity(as string) (voting.Identity, error) {
	if as == "" {
		return "", NewExitError(ExitCommandError, "--as is required")
	}
	return voting.Identity(as), nil
}
