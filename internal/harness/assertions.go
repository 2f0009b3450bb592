package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/pollstore/internal/codec"
	"github.com/roach88/pollstore/internal/voting"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", event.Seq, event.Op, event.Args, event.Outcome)
		}
	}

	return buf.String()
}

func (a Assertion) matchesEvent(event TraceEvent) bool {
	return event.Op == a.Op && (a.Outcome == "" || event.Outcome == a.Outcome)
}

func (a Assertion) describeEvent() string {
	if a.Outcome == "" {
		return a.Op
	}
	return a.Op + " -> " + a.Outcome
}

// assertTraceContains checks if the trace contains a matching entry.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if assertion.matchesEvent(event) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: assertion.describeEvent(),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if ops appear in the specified order.
// Ops don't need to be consecutive (intervening entries are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.Ops) && event.Op == assertion.Ops[next] {
			next++
		}
	}
	if next == len(assertion.Ops) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("ops in order: %v", assertion.Ops),
		Actual:   fmt.Sprintf("matched %d of %d, stopped before %s", next, len(assertion.Ops), assertion.Ops[next]),
		Trace:    trace,
	}
}

// assertTraceCount checks if matching entries appear exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if assertion.matchesEvent(event) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.describeEvent()),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState loads one record through the ledger and validates
// expected values using subset semantics.
func assertFinalState(ctx context.Context, ledger *voting.Ledger, assertion Assertion) error {
	var (
		record any
		err    error
		desc   string
	)
	switch assertion.Kind {
	case "poll":
		desc = fmt.Sprintf("poll %d", assertion.PollID)
		record, err = ledger.GetPoll(ctx, assertion.PollID)
	case "candidate":
		desc = fmt.Sprintf("candidate %d of poll %d", assertion.CandidateID, assertion.PollID)
		record, err = ledger.GetCandidate(ctx, assertion.PollID, assertion.CandidateID)
	case "vote":
		desc = fmt.Sprintf("vote of %s in poll %d", assertion.Voter, assertion.PollID)
		record, err = ledger.GetVote(ctx, assertion.PollID, voting.Identity(assertion.Voter))
	default:
		return fmt.Errorf("final_state: unknown kind %q", assertion.Kind)
	}

	missing := voting.IsCode(err, voting.CodeNotFound)
	if err != nil && !missing {
		return fmt.Errorf("final_state: load %s: %w", desc, err)
	}

	switch {
	case assertion.Absent && !missing:
		return &AssertionError{Type: AssertFinalState, Expected: desc + " absent", Actual: "record exists"}
	case assertion.Absent:
		return nil
	case missing:
		return &AssertionError{Type: AssertFinalState, Expected: desc + " to exist", Actual: "record not found"}
	}

	return matchFields(AssertFinalState, desc, record, assertion.Expect)
}

// assertResults checks the counted results of a poll.
func assertResults(ctx context.Context, ledger *voting.Ledger, assertion Assertion) error {
	res, err := ledger.Results(ctx, assertion.PollID)
	if err != nil {
		return &AssertionError{
			Type:     AssertResults,
			Expected: fmt.Sprintf("results for poll %d", assertion.PollID),
			Actual:   err.Error(),
		}
	}

	expect := map[string]any{}
	votes := map[string]any{}
	for k, v := range assertion.Expect {
		if k == "votes" {
			// yaml.v3 decodes integer keys into map[any]any
			switch m := v.(type) {
			case map[string]any:
				votes = m
			case map[any]any:
				for id, n := range m {
					votes[fmt.Sprint(id)] = n
				}
			default:
				return fmt.Errorf("results: votes must map candidate ids to counts")
			}
			continue
		}
		expect[k] = v
	}

	desc := fmt.Sprintf("results of poll %d", assertion.PollID)
	if err := matchFields(AssertResults, desc, res, expect); err != nil {
		return err
	}

	counted := map[string]uint64{}
	for _, c := range res.Candidates {
		counted[fmt.Sprint(c.CandidateID)] = c.Votes
	}
	for _, id := range sortedKeys(votes) {
		got, ok := counted[id]
		if !ok {
			return &AssertionError{Type: AssertResults, Expected: "candidate " + id + " in " + desc, Actual: "candidate not found"}
		}
		if fmt.Sprint(votes[id]) != fmt.Sprint(got) {
			return &AssertionError{
				Type:     AssertResults,
				Expected: fmt.Sprintf("candidate %s has %v votes", id, votes[id]),
				Actual:   fmt.Sprintf("%d votes", got),
			}
		}
	}
	return nil
}

// matchFields compares expected values against the canonical JSON fields
// of record. Values compare by their printed form, so YAML integers match
// JSON numbers of any width.
func matchFields(kind, desc string, record any, expect map[string]any) error {
	data, err := codec.Encode(record)
	if err != nil {
		return fmt.Errorf("%s: encode %s: %w", kind, desc, err)
	}
	actual, err := codec.DecodeObject(data)
	if err != nil {
		return fmt.Errorf("%s: decode %s: %w", kind, desc, err)
	}

	for _, key := range sortedKeys(expect) {
		want := expect[key]
		got, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("%s field %q to exist", desc, key),
				Actual:   fmt.Sprintf("fields: %v", sortedKeys(actual)),
			}
		}
		if fmt.Sprint(want) != fmt.Sprint(got) {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("%s field %q = %v", desc, key, want),
				Actual:   fmt.Sprintf("%s field %q = %v", desc, key, got),
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides ledger access for state assertions.
type AssertionContext struct {
	Ledger *voting.Ledger
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState, AssertResults:
			if actx == nil || actx.Ledger == nil {
				err = fmt.Errorf("assertion[%d]: %s requires ledger context", i, assertion.Type)
			} else if assertion.Type == AssertFinalState {
				err = assertFinalState(actx.Ctx, actx.Ledger, assertion)
			} else {
				err = assertResults(actx.Ctx, actx.Ledger, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
