package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pollstore/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Limit int
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "results <poll-id>",
		Short: "Count the votes of a poll",
		Long: `Count a poll's vote records per candidate.

Votes for removed candidates are reported as orphaned. With tallying on,
each stored counter is shown next to the count and any disagreement is
reported as inconsistent.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID, err := parseID("poll id", args[0])
			if err != nil {
				return err
			}
			ledger, closeFn, err := openLedger(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer closeFn()

			formatter := rootOpts.formatter(cmd)
			res, err := ledger.Results(cmd.Context(), pollID)
			if err != nil {
				return ledgerFailure(formatter, "results", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(res)
			}

			w := formatter.Writer
			fmt.Fprintf(w, "Poll %d: %s (%s)\n", res.Poll.ID, res.Poll.Question,
				windowStatus(res.Poll, ledger.Now().Unix()))
			for _, c := range res.Candidates {
				if ledger.Tally() {
					fmt.Fprintf(w, "  %-4d %-24s %d (tallied %d)\n", c.CandidateID, c.Name, c.Votes, c.Tallied)
					continue
				}
				fmt.Fprintf(w, "  %-4d %-24s %d\n", c.CandidateID, c.Name, c.Votes)
			}
			fmt.Fprintf(w, "Counted: %d", res.Counted)
			if res.Orphaned > 0 {
				fmt.Fprintf(w, " (%d orphaned)", res.Orphaned)
			}
			fmt.Fprintln(w)
			if leader, ok := res.Leader(); ok {
				fmt.Fprintf(w, "Leading: %s\n", leader.Name)
			}
			if !res.Consistent {
				fmt.Fprintln(w, "✗ Stored counters disagree with vote records")
			}
			return nil
		},
	}
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent ledger operations",
		Long: `Show the most recent journal entries, oldest first.

Every mutating operation appends one entry, whether it was applied or
rejected.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Limit < 0 {
				return NewExitError(ExitCommandError, "--limit must not be negative")
			}
			ledger, closeFn, err := openLedger(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer closeFn()

			formatter := opts.formatter(cmd)
			entries, err := ledger.Journal(cmd.Context(), opts.Limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read journal", err)
			}
			if formatter.Format == "json" {
				if entries == nil {
					entries = []store.JournalEntry{}
				}
				return formatter.Success(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(formatter.Writer, "Journal is empty")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(formatter.Writer, "%6d  %-16s %-20s %s\n", e.Seq, e.Op, e.Outcome, e.Args)
				if e.Message != "" {
					formatter.VerboseLog("        %s", e.Message)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of entries (0 for all)")
	return cmd
}
