package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pollstore/internal/voting"
)

// VoteOptions holds flags for the vote subcommands.
type VoteOptions struct {
	*RootOptions
	As string
}

type voteView struct {
	voting.VoteRecord
	Voter   string `json:"voter"`
	Address string `json:"address"`
}

// NewVoteCommand creates the vote command group.
func NewVoteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Cast and inspect votes",
	}
	cmd.AddCommand(newVoteCastCommand(rootOpts))
	cmd.AddCommand(newVoteShowCommand(rootOpts))
	return cmd
}

func newVoteCastCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VoteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cast <poll-id> <candidate-id>",
		Short: "Cast a vote",
		Long: `Cast a vote for a candidate while the poll's window is open.
Each identity may vote once per poll.

Example:
  pollstore vote cast 1 2 --as bob`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID, err := parseID("poll id", args[0])
			if err != nil {
				return err
			}
			candidateID, err := parseID("candidate id", args[1])
			if err != nil {
				return err
			}
			voter, err := requireIdentity(opts.As)
			if err != nil {
				return err
			}
			ledger, closeFn, err := openLedger(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer closeFn()

			formatter := opts.formatter(cmd)
			v, err := ledger.CastVote(cmd.Context(), voting.CastVoteInput{
				PollID:      pollID,
				CandidateID: candidateID,
				Voter:       voter,
			})
			if err != nil {
				return ledgerFailure(formatter, "cast vote", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(voteView{VoteRecord: v, Voter: string(voter), Address: v.Address.String()})
			}
			fmt.Fprintf(formatter.Writer, "✓ %s voted for candidate %d in poll %d\n", voter, v.CandidateID, v.PollID)
			formatter.VerboseLog("vote record %s (bump %d)", v.Address, v.Bump)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.As, "as", "", "voter identity (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func newVoteShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <poll-id> <voter>",
		Short:         "Show a voter's vote record",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID, err := parseID("poll id", args[0])
			if err != nil {
				return err
			}
			voter := voting.Identity(args[1])
			ledger, closeFn, err := openLedger(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer closeFn()

			formatter := rootOpts.formatter(cmd)
			v, err := ledger.GetVote(cmd.Context(), pollID, voter)
			if err != nil {
				return ledgerFailure(formatter, "show vote", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(voteView{VoteRecord: v, Voter: string(voter), Address: v.Address.String()})
			}
			fmt.Fprintf(formatter.Writer, "%s voted for candidate %d in poll %d\n", voter, v.CandidateID, v.PollID)
			fmt.Fprintf(formatter.Writer, "  address: %s (bump %d)\n", v.Address, v.Bump)
			return nil
		},
	}
}
