// Package harness runs poll ledger conformance scenarios.
//
// A scenario drives a fresh ledger through a list of operations, checks
// each outcome, then evaluates assertions against the journal trace and
// the final records.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	clock: 1000          # starting unix time
//	tally: true          # optional, default true
//	setup:
//	  - op: create_poll
//	    poll_id: 1
//	    question: "Lunch?"
//	    start: 1000
//	    end: 2000
//	    as: alice
//	flow:
//	  - op: cast_vote
//	    poll_id: 1
//	    candidate_id: 1
//	    as: bob
//	    expect: AlreadyVoted
//	  - op: set_clock
//	    at: 2500
//	assertions:
//	  - type: trace_count
//	    op: cast_vote
//	    outcome: ok
//	    count: 1
//	  - type: final_state
//	    kind: poll
//	    poll_id: 1
//	    expect: { total_votes: 1 }
//
// # Operations
//
//   - create_poll: poll_id, question, start, end, as (creator)
//   - add_candidate: poll_id, candidate_id, name, as (requester)
//   - delete_candidate: poll_id, candidate_id, as
//   - delete_poll: poll_id, as
//   - cast_vote: poll_id, candidate_id, as (voter)
//   - set_clock: at
//
// Setup steps must succeed. Flow steps are compared against expect, which
// defaults to "ok" and otherwise names an error code.
//
// # Assertion Types
//
//   - trace_contains: an operation appears in the journal, optionally with an outcome
//   - trace_order: operations appear in the given order
//   - trace_count: an operation (and outcome) appears exactly N times
//   - final_state: a poll, candidate, or vote record exists with the expected fields, or is absent
//   - results: counted results of a poll match the expected fields
//
// # Deterministic Testing
//
// Every scenario runs against a new in-memory backend with a manual clock
// and sequential journal ids, so the same scenario always produces the
// same trace. Traces are compared against golden files with goldie.
package harness
