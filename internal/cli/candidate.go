package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pollstore/internal/voting"
)

// CandidateOptions holds flags for the candidate subcommands.
type CandidateOptions struct {
	*RootOptions
	Name string
	As   string
}

type candidateView struct {
	voting.Candidate
	Address string `json:"address"`
}

// NewCandidateCommand creates the candidate command group.
func NewCandidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidate",
		Short: "Add, list and remove poll candidates",
	}
	cmd.AddCommand(newCandidateAddCommand(rootOpts))
	cmd.AddCommand(newCandidateListCommand(rootOpts))
	cmd.AddCommand(newCandidateDeleteCommand(rootOpts))
	return cmd
}

func newCandidateAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CandidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <poll-id> <candidate-id>",
		Short: "Add a candidate to a poll",
		Long: `Add a candidate to a poll. Only the poll creator may add candidates.

Example:
  pollstore candidate add 1 1 --name "Tacos" --as alice`,
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
			requester, err := requireIdentity(opts.As)
			if err != nil {
				return err
			}
			ledger, closeFn, err := openLedger(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer closeFn()

			formatter := opts.formatter(cmd)
			c, err := ledger.AddCandidate(cmd.Context(), voting.AddCandidateInput{
				PollID:      pollID,
				CandidateID: candidateID,
				Name:        opts.Name,
				Requester:   requester,
			})
			if err != nil {
				return ledgerFailure(formatter, "add candidate", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(candidateView{Candidate: c, Address: c.Address.String()})
			}
			fmt.Fprintf(formatter.Writer, "✓ Added candidate %d %q to poll %d\n", c.ID, c.Name, c.PollID)
			formatter.VerboseLog("address %s (bump %d)", c.Address, c.Bump)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "candidate name (required)")
	cmd.Flags().StringVar(&opts.As, "as", "", "requester identity (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func newCandidateListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <poll-id>",
		Short:         "List the candidates of a poll",
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
			candidates, err := ledger.ListCandidates(cmd.Context(), pollID)
			if err != nil {
				return ledgerFailure(formatter, "list candidates", err)
			}
			if formatter.Format == "json" {
				views := make([]candidateView, 0, len(candidates))
				for _, c := range candidates {
					views = append(views, candidateView{Candidate: c, Address: c.Address.String()})
				}
				return formatter.Success(views)
			}
			if len(candidates) == 0 {
				fmt.Fprintf(formatter.Writer, "Poll %d has no candidates\n", pollID)
				return nil
			}
			for _, c := range candidates {
				if ledger.Tally() {
					fmt.Fprintf(formatter.Writer, "%d\t%s\t%d vote(s)\n", c.ID, c.Name, c.Votes)
					continue
				}
				fmt.Fprintf(formatter.Writer, "%d\t%s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}

func newCandidateDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CandidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <poll-id> <candidate-id>",
		Short: "Remove a candidate from a poll",
		Long: `Remove a candidate. Only the poll creator may remove candidates.
Votes already cast for the candidate stay recorded.`,
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
			requester, err := requireIdentity(opts.As)
			if err != nil {
				return err
			}
			ledger, closeFn, err := openLedger(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer closeFn()

			formatter := opts.formatter(cmd)
			if err := ledger.DeleteCandidate(cmd.Context(), pollID, candidateID, requester); err != nil {
				return ledgerFailure(formatter, "delete candidate", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(map[string]uint64{"poll_id": pollID, "candidate_id": candidateID})
			}
			fmt.Fprintf(formatter.Writer, "✓ Removed candidate %d from poll %d\n", candidateID, pollID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.As, "as", "", "requester identity (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}
