package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/pollstore/internal/address"
	"github.com/roach88/pollstore/internal/store"
	"github.com/roach88/pollstore/internal/testutil"
	"github.com/roach88/pollstore/internal/voting"
)

// ExpectOK is the outcome of a step that succeeded.
const ExpectOK = voting.OutcomeOK

// Program names the address namespace scenarios run under.
const Program = "pollstore-harness"

// Harness is the test execution engine.
// It runs scenarios against a fresh ledger with a manual clock and
// sequential journal ids.
type Harness struct {
	ledger *voting.Ledger
	clock  *testutil.ManualClock
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory backend for isolation.
//
// Execution flow:
// 1. Create fresh backend, clock, and ledger
// 2. Execute setup steps (any failure aborts the run)
// 3. Execute flow steps, comparing each outcome with expect
// 4. Collect the journal trace and final results
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with step logging sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()
	backend := store.NewMemory()
	defer backend.Close()

	clock := testutil.NewManualClock(scenario.Clock)
	ledger, err := voting.New(ctx, backend,
		address.NewDeriver(address.ProgramIDFromName(Program)),
		voting.Options{
			Tally:  scenario.TallyEnabled(),
			Clock:  clock,
			IDs:    testutil.NewSequentialIDGenerator(scenario.Name),
			Logger: logger,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	h := &Harness{ledger: ledger, clock: clock, logger: logger}
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Ledger: ledger, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// executeSetup runs setup steps. Any step that does not succeed is an error.
func (h *Harness) executeSetup(ctx context.Context, setup []Step) error {
	for i, step := range setup {
		outcome, err := h.execute(ctx, step)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if outcome != ExpectOK {
			return fmt.Errorf("setup step %d (%s): got %s", i, step.Op, outcome)
		}
		h.logger.Info("setup step completed", "step", i, "op", step.Op)
	}
	return nil
}

// executeFlow runs flow steps and records outcome mismatches.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		outcome, err := h.execute(ctx, step)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		want := step.Expect
		if want == "" {
			want = ExpectOK
		}
		if step.Op != OpSetClock && outcome != want {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected %s, got %s", i, step.Op, want, outcome))
		}

		h.logger.Info("flow step completed",
			"step", i,
			"op", step.Op,
			"expected", want,
			"outcome", outcome,
		)
	}
	return nil
}

// execute runs one step and reports its outcome: "ok", an error code, or
// the invariant outcome. Only infrastructure failures return an error.
func (h *Harness) execute(ctx context.Context, step Step) (string, error) {
	var err error
	who := voting.Identity(step.As)

	switch step.Op {
	case OpCreatePoll:
		_, err = h.ledger.CreatePoll(ctx, voting.CreatePollInput{
			PollID:      step.PollID,
			Question:    step.Question,
			VotingStart: step.Start,
			VotingEnd:   step.End,
			Creator:     who,
		})
	case OpAddCandidate:
		_, err = h.ledger.AddCandidate(ctx, voting.AddCandidateInput{
			PollID:      step.PollID,
			CandidateID: step.CandidateID,
			Name:        step.Name,
			Requester:   who,
		})
	case OpDeleteCandidate:
		err = h.ledger.DeleteCandidate(ctx, step.PollID, step.CandidateID, who)
	case OpDeletePoll:
		err = h.ledger.DeletePoll(ctx, step.PollID, who)
	case OpCastVote:
		_, err = h.ledger.CastVote(ctx, voting.CastVoteInput{
			PollID:      step.PollID,
			CandidateID: step.CandidateID,
			Voter:       who,
		})
	case OpSetClock:
		h.clock.Set(step.At)
		return ExpectOK, nil
	default:
		return "", fmt.Errorf("unknown op %q", step.Op)
	}
	return outcomeOf(err)
}

func outcomeOf(err error) (string, error) {
	if err == nil {
		return ExpectOK, nil
	}
	if code, ok := voting.CodeOf(err); ok {
		return string(code), nil
	}
	var inv *voting.InvariantError
	if errors.As(err, &inv) {
		return voting.OutcomeInvariant, nil
	}
	return "", err
}

// collect fills the trace from the journal and the state from the
// remaining polls.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	entries, err := h.ledger.Journal(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	for _, e := range entries {
		result.Trace = append(result.Trace, TraceEvent{
			Seq:     e.Seq,
			Op:      e.Op,
			Args:    e.Args,
			Outcome: e.Outcome,
		})
	}

	polls, err := h.ledger.ListPolls(ctx)
	if err != nil {
		return fmt.Errorf("failed to list polls: %w", err)
	}
	for _, p := range polls {
		res, err := h.ledger.Results(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("failed to count poll %d: %w", p.ID, err)
		}
		result.State = append(result.State, res)
	}
	return nil
}
