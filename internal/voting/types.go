package voting

import (
	"github.com/roach88/pollstore/internal/address"
)

// Field limits in bytes.
const (
	MaxQuestionLength = 200
	MaxNameLength     = 100
	MaxIdentityLength = address.MaxSeedLength
)

// Identity names an account. Its bytes seed vote record addresses, so it
// is bounded by the seed length limit.
type Identity string

// Poll is a question with a voting window.
type Poll struct {
	ID             uint64   `json:"poll_id"`
	Question       string   `json:"question"`
	VotingStart    int64    `json:"voting_start"`
	VotingEnd      int64    `json:"voting_end"`
	Creator        Identity `json:"creator"`
	CandidateCount uint64   `json:"candidate_count"`
	TotalVotes     uint64   `json:"total_votes"`
	Bump           uint8    `json:"bump"`

	Address address.Address `json:"-"`
}

// Candidate is one option within a poll.
type Candidate struct {
	ID     uint64 `json:"candidate_id"`
	PollID uint64 `json:"poll_id"`
	Name   string `json:"name"`
	Votes  uint64 `json:"votes"`
	Bump   uint8  `json:"bump"`

	Address address.Address `json:"-"`
}

// VoteRecord witnesses that a voter has voted in a poll. It is created
// once and never changes or goes away.
type VoteRecord struct {
	HasVoted    bool   `json:"has_voted"`
	CandidateID uint64 `json:"candidate_id"`
	PollID      uint64 `json:"poll_id"`
	Bump        uint8  `json:"bump"`

	Address address.Address `json:"-"`
}

// CreatePollInput holds CreatePoll arguments.
type CreatePollInput struct {
	PollID      uint64
	Question    string
	VotingStart int64
	VotingEnd   int64
	Creator     Identity
}

// AddCandidateInput holds AddCandidate arguments.
type AddCandidateInput struct {
	PollID      uint64
	CandidateID uint64
	Name        string
	Requester   Identity
}

// CastVoteInput holds CastVote arguments.
type CastVoteInput struct {
	PollID      uint64
	CandidateID uint64
	Voter       Identity
}

// CandidateResult is one row of Results.
type CandidateResult struct {
	CandidateID uint64 `json:"candidate_id"`
	Name        string `json:"name"`

	// Votes is counted from vote records.
	Votes uint64 `json:"votes"`

	// Tallied is the stored counter; zero when tallying is off.
	Tallied uint64 `json:"tallied"`
}

// Results summarizes the votes of one poll.
type Results struct {
	Poll       Poll              `json:"poll"`
	Candidates []CandidateResult `json:"candidates"`

	// Counted is the number of vote records for the poll.
	Counted uint64 `json:"counted"`

	// Orphaned counts votes for candidates that no longer exist.
	Orphaned uint64 `json:"orphaned"`

	// Consistent is false when tallying is on and a stored counter
	// disagrees with the vote records.
	Consistent bool `json:"consistent"`
}

// Leader returns the candidate with the most counted votes. Ties go to
// the lower candidate id. ok is false when no candidate has a vote.
func (r Results) Leader() (CandidateResult, bool) {
	var best CandidateResult
	found := false
	for _, c := range r.Candidates {
		if c.Votes == 0 {
			continue
		}
		if !found || c.Votes > best.Votes || (c.Votes == best.Votes && c.CandidateID < best.CandidateID) {
			best = c
			found = true
		}
	}
	return best, found
}
