package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clock is the unix time the scenario starts at.
	Clock int64 `yaml:"clock"`

	// Tally selects whether counters are maintained. Defaults to true.
	Tally *bool `yaml:"tally,omitempty"`

	// Setup establishes initial state. Every setup step must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the operations under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one ledger operation or clock change.
type Step struct {
	Op          string `yaml:"op"`
	PollID      uint64 `yaml:"poll_id,omitempty"`
	CandidateID uint64 `yaml:"candidate_id,omitempty"`
	Question    string `yaml:"question,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Start       int64  `yaml:"start,omitempty"`
	End         int64  `yaml:"end,omitempty"`

	// As is the acting identity: creator, requester, or voter.
	As string `yaml:"as,omitempty"`

	// At is the new clock value for set_clock.
	At int64 `yaml:"at,omitempty"`

	// Expect is "ok" or an error code. Empty means "ok".
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check op appears in trace, with outcome if given
	// - "trace_order": Check ops appear in order
	// - "trace_count": Check op (and outcome) appears exactly Count times
	// - "final_state": Check a record's fields, or that it is absent
	// - "results": Check a poll's counted results
	Type string `yaml:"type"`

	// Op and Outcome select journal entries (trace assertions).
	Op      string `yaml:"op,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Ops is the expected op order (used by trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Kind is poll, candidate, or vote (used by final_state).
	Kind        string `yaml:"kind,omitempty"`
	PollID      uint64 `yaml:"poll_id,omitempty"`
	CandidateID uint64 `yaml:"candidate_id,omitempty"`
	Voter       string `yaml:"voter,omitempty"`

	// Absent asserts that the record does not exist.
	Absent bool `yaml:"absent,omitempty"`

	// Expect contains expected field values.
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertResults       = "results"
)

// Step operations.
const (
	OpCreatePoll      = "create_poll"
	OpAddCandidate    = "add_candidate"
	OpDeleteCandidate = "delete_candidate"
	OpDeletePoll      = "delete_poll"
	OpCastVote        = "cast_vote"
	OpSetClock        = "set_clock"
)

var validOps = []string{OpCreatePoll, OpAddCandidate, OpDeleteCandidate, OpDeletePoll, OpCastVote, OpSetClock}

var validKinds = []string{"poll", "candidate", "vote"}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// TallyEnabled reports the scenario's tally setting.
func (s *Scenario) TallyEnabled() bool {
	return s.Tally == nil || *s.Tally
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != "" && step.Expect != ExpectOK {
			return fmt.Errorf("setup[%d]: setup steps must succeed, got expect %q", i, step.Expect)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(step Step) error {
	if step.Op == "" {
		return fmt.Errorf("op is required")
	}
	if !slices.Contains(validOps, step.Op) {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if step.Op == OpSetClock && step.Expect != "" {
		return fmt.Errorf("set_clock takes no expect")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceContains, AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("%s requires op", a.Type)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("trace_order requires ops")
		}
	case AssertFinalState:
		if !slices.Contains(validKinds, a.Kind) {
			return fmt.Errorf("final_state kind must be one of %v, got %q", validKinds, a.Kind)
		}
	case AssertResults:
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
