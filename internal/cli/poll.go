package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/pollstore/internal/voting"
)

// PollOptions holds flags for the poll subcommands.
type PollOptions struct {
	*RootOptions
	Question string
	Start    string
	End      string
	As       string
}

// pollView is a Poll with its address rendered for output.
type pollView struct {
	voting.Poll
	Address string `json:"address"`
	Status  string `json:"status"`
}

func newPollView(p voting.Poll, now int64) pollView {
	return pollView{Poll: p, Address: p.Address.String(), Status: windowStatus(p, now)}
}

// NewPollCommand creates the poll command group.
func NewPollCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Create, inspect and delete polls",
	}
	cmd.AddCommand(newPollCreateCommand(rootOpts))
	cmd.AddCommand(newPollShowCommand(rootOpts))
	cmd.AddCommand(newPollListCommand(rootOpts))
	cmd.AddCommand(newPollDeleteCommand(rootOpts))
	return cmd
}

func newPollCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PollOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <poll-id>",
		Short: "Create a poll",
		Long: `Create a poll with a voting window.

Times accept unix seconds or RFC 3339. The window must end in the future.
--start defaults to now.

Example:
  pollstore poll create 1 --question "Lunch?" --end 2026-11-01T12:00:00Z --as alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createPoll(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Question, "question", "", "poll question (required)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "voting start (default now)")
	cmd.Flags().StringVar(&opts.End, "end", "", "voting end (required)")
	cmd.Flags().StringVar(&opts.As, "as", "", "creator identity (required)")
	_ = cmd.MarkFlagRequired("question")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func createPoll(opts *PollOptions, rawID string, cmd *cobra.Command) error {
	pollID, err := parseID("poll id", rawID)
	if err != nil {
		return err
	}
	creator, err := requireIdentity(opts.As)
	if err != nil {
		return err
	}
	end, err := parseTime("--end", opts.End)
	if err != nil {
		return err
	}

	ledger, closeFn, err := openLedger(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	start := ledger.Now().Unix()
	if opts.Start != "" {
		if start, err = parseTime("--start", opts.Start); err != nil {
			return err
		}
	}

	formatter := opts.formatter(cmd)
	p, err := ledger.CreatePoll(cmd.Context(), voting.CreatePollInput{
		PollID:      pollID,
		Question:    opts.Question,
		VotingStart: start,
		VotingEnd:   end,
		Creator:     creator,
	})
	if err != nil {
		return ledgerFailure(formatter, "create poll", err)
	}

	now := ledger.Now().Unix()
	if formatter.Format == "json" {
		return formatter.Success(newPollView(p, now))
	}
	fmt.Fprintf(formatter.Writer, "✓ Created poll %d\n", p.ID)
	writePoll(formatter.Writer, p, now)
	return nil
}

func newPollShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <poll-id>",
		Short:         "Show a poll",
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
			p, err := ledger.GetPoll(cmd.Context(), pollID)
			if err != nil {
				return ledgerFailure(formatter, "show poll", err)
			}
			now := ledger.Now().Unix()
			if formatter.Format == "json" {
				return formatter.Success(newPollView(p, now))
			}
			writePoll(formatter.Writer, p, now)
			return nil
		},
	}
}

func newPollListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List polls by id",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, closeFn, err := openLedger(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer closeFn()

			formatter := rootOpts.formatter(cmd)
			polls, err := ledger.ListPolls(cmd.Context())
			if err != nil {
				return ledgerFailure(formatter, "list polls", err)
			}
			now := ledger.Now().Unix()
			if formatter.Format == "json" {
				views := make([]pollView, 0, len(polls))
				for _, p := range polls {
					views = append(views, newPollView(p, now))
				}
				return formatter.Success(views)
			}
			if len(polls) == 0 {
				fmt.Fprintln(formatter.Writer, "No polls")
				return nil
			}
			for _, p := range polls {
				fmt.Fprintf(formatter.Writer, "%d\t%s\t%s\t%d candidate(s)\n",
					p.ID, windowStatus(p, now), p.Question, p.CandidateCount)
			}
			return nil
		},
	}
}

func newPollDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PollOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <poll-id>",
		Short: "Delete a poll with no candidates",
		Long: `Delete a poll. Only the creator may delete it, and only after every
candidate has been removed. Vote records cast in the poll are kept.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pollID, err := parseID("poll id", args[0])
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
			if err := ledger.DeletePoll(cmd.Context(), pollID, requester); err != nil {
				return ledgerFailure(formatter, "delete poll", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(map[string]uint64{"poll_id": pollID})
			}
			fmt.Fprintf(formatter.Writer, "✓ Deleted poll %d\n", pollID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.As, "as", "", "requester identity (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

// windowStatus names where now falls relative to the voting window.
func windowStatus(p voting.Poll, now int64) string {
	switch {
	case now < p.VotingStart:
		return "pending"
	case now > p.VotingEnd:
		return "closed"
	default:
		return "open"
	}
}

func writePoll(w io.Writer, p voting.Poll, now int64) {
	at := time.Unix(now, 0)
	fmt.Fprintf(w, "Poll %d: %s\n", p.ID, p.Question)
	fmt.Fprintf(w, "  creator:    %s\n", p.Creator)
	fmt.Fprintf(w, "  opens:      %s (%s)\n", formatUnix(p.VotingStart), relative(p.VotingStart, at))
	fmt.Fprintf(w, "  closes:     %s (%s)\n", formatUnix(p.VotingEnd), relative(p.VotingEnd, at))
	fmt.Fprintf(w, "  status:     %s\n", windowStatus(p, now))
	fmt.Fprintf(w, "  candidates: %d\n", p.CandidateCount)
	fmt.Fprintf(w, "  votes:      %d\n", p.TotalVotes)
	fmt.Fprintf(w, "  address:    %s (bump %d)\n", p.Address, p.Bump)
}

func formatUnix(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

// relative describes sec against now, e.g. "2 hours from now".
func relative(sec int64, now time.Time) string {
	return humanize.RelTime(time.Unix(sec, 0), now, "ago", "from now")
}
