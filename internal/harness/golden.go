package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as the plain-text trace stored in golden
// files. Addresses are left out so the text does not depend on the
// program id.
//
// Format:
//
//	scenario: <name>
//	journal:
//	  <seq> <op> <outcome> <canonical args>
//	state:
//	  poll <id> candidates=<n> total_votes=<n> counted=<n> orphaned=<n> consistent=<bool>
//	    candidate <id> "<name>" votes=<counted> tallied=<stored>
func Snapshot(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)

	b.WriteString("journal:\n")
	for _, e := range result.Trace {
		fmt.Fprintf(&b, "  %d %s %s %s\n", e.Seq, e.Op, e.Outcome, e.Args)
	}

	b.WriteString("state:\n")
	for _, res := range result.State {
		fmt.Fprintf(&b, "  poll %d candidates=%d total_votes=%d counted=%d orphaned=%d consistent=%t\n",
			res.Poll.ID, res.Poll.CandidateCount, res.Poll.TotalVotes, res.Counted, res.Orphaned, res.Consistent)
		for _, c := range res.Candidates {
			fmt.Fprintf(&b, "    candidate %d %q votes=%d tallied=%d\n", c.CandidateID, c.Name, c.Votes, c.Tallied)
		}
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
