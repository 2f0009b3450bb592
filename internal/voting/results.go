package voting

import (
	"context"

	"github.com/roach88/pollstore/internal/codec"
	"github.com/roach88/pollstore/internal/store"
)

// Results counts the vote records of a poll per candidate.
//
// Counting scans vote records, so it works with tallying off. With
// tallying on, each stored counter is reported next to its count and any
// disagreement clears Consistent. Vote records outlive deleted candidates
// and deleted polls, so a re-created poll can start with votes already
// counted.
func (l *Ledger) Results(ctx context.Context, pollID uint64) (Results, error) {
	var res Results
	err := l.view(ctx, func(tx store.Tx) error {
		p, err := l.loadPoll(ctx, tx, pollID)
		if err != nil {
			return err
		}
		candidates, err := listCandidates(ctx, tx, pollID)
		if err != nil {
			return err
		}
		votes, err := tx.List(ctx, store.ForPoll(store.KindVote, pollID))
		if err != nil {
			return err
		}

		counts := make(map[uint64]uint64, len(candidates))
		for _, rec := range votes {
			var v VoteRecord
			if err := codec.Decode(rec.Data, &v); err != nil {
				return &InvariantError{Invariant: "vote record " + rec.Address.String() + " is corrupt", Err: err}
			}
			counts[v.CandidateID]++
		}

		res = Results{
			Poll:       p,
			Candidates: make([]CandidateResult, 0, len(candidates)),
			Counted:    uint64(len(votes)),
			Consistent: true,
		}
		var attributed uint64
		for _, c := range candidates {
			n := counts[c.ID]
			attributed += n
			res.Candidates = append(res.Candidates, CandidateResult{
				CandidateID: c.ID,
				Name:        c.Name,
				Votes:       n,
				Tallied:     c.Votes,
			})
			if l.tally && c.Votes != n {
				res.Consistent = false
			}
		}
		res.Orphaned = res.Counted - attributed
		if l.tally && p.TotalVotes != res.Counted {
			res.Consistent = false
		}
		return nil
	})
	if err != nil {
		return Results{}, err
	}
	return res, nil
}
