package voting

import (
	"context"
	"errors"

	"github.com/roach88/pollstore/internal/address"
	"github.com/roach88/pollstore/internal/codec"
	"github.com/roach88/pollstore/internal/store"
)

// CastVote records voter's single vote for a candidate of an open poll.
func (l *Ledger) CastVote(ctx context.Context, in CastVoteInput) (VoteRecord, error) {
	args := codec.Object{
		"poll_id":      in.PollID,
		"candidate_id": in.CandidateID,
		"voter":        string(in.Voter),
	}

	var cast VoteRecord
	err := l.execute(ctx, "cast_vote", args, func(tx store.Tx) error {
		if err := boundedIdentity("voter", in.Voter); err != nil {
			return err
		}

		p, err := l.loadPoll(ctx, tx, in.PollID)
		if err != nil {
			return err
		}

		c, err := l.loadCandidate(ctx, tx, in.PollID, in.CandidateID)
		if IsCode(err, CodeNotFound) {
			return newError(CodeInvalidCandidate,
				map[string]string{"poll_id": fmtID(in.PollID), "candidate_id": fmtID(in.CandidateID)},
				"candidate %d is not part of poll %d", in.CandidateID, in.PollID)
		}
		if err != nil {
			return err
		}
		if c.PollID != in.PollID {
			return newError(CodeInvalidCandidate,
				map[string]string{"poll_id": fmtID(in.PollID), "candidate_id": fmtID(in.CandidateID)},
				"candidate %d belongs to poll %d, not %d", in.CandidateID, c.PollID, in.PollID)
		}

		if err := requireOpen(p, l.now()); err != nil {
			return err
		}

		addr, bump, err := l.derive(address.VoteSeeds(in.PollID, []byte(in.Voter)))
		if err != nil {
			return err
		}
		v := VoteRecord{
			HasVoted:    true,
			CandidateID: in.CandidateID,
			PollID:      in.PollID,
			Bump:        bump,
			Address:     addr,
		}
		rec, err := encodeRecord(store.KindVote, addr, bump, in.PollID, 0, v)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, rec); err != nil {
			if errors.Is(err, store.ErrOccupied) {
				return newError(CodeAlreadyVoted,
					map[string]string{"poll_id": fmtID(in.PollID), "voter": string(in.Voter)},
					"%s has already voted in poll %d", in.Voter, in.PollID)
			}
			return err
		}

		if l.tally {
			if c.Votes, err = increment("candidate.votes", c.Votes); err != nil {
				return err
			}
			if p.TotalVotes, err = increment("poll.total_votes", p.TotalVotes); err != nil {
				return err
			}
			if err := l.saveCandidate(ctx, tx, c); err != nil {
				return err
			}
			if err := l.savePoll(ctx, tx, p); err != nil {
				return err
			}
		}
		cast = v
		return nil
	})
	if err != nil {
		return VoteRecord{}, err
	}
	return cast, nil
}

// GetVote returns voter's vote record in a poll. The record outlives the
// poll, so this works after the poll is deleted.
func (l *Ledger) GetVote(ctx context.Context, pollID uint64, voter Identity) (VoteRecord, error) {
	if err := boundedIdentity("voter", voter); err != nil {
		return VoteRecord{}, err
	}
	addr, _, err := l.derive(address.VoteSeeds(pollID, []byte(voter)))
	if err != nil {
		return VoteRecord{}, err
	}
	var v VoteRecord
	err = l.view(ctx, func(tx store.Tx) error {
		return loadRecord(ctx, tx, addr, store.KindVote, &v, func() error {
			return newError(CodeNotFound,
				map[string]string{"poll_id": fmtID(pollID), "voter": string(voter)},
				"%s has not voted in poll %d", voter, pollID)
		})
	})
	if err != nil {
		return VoteRecord{}, err
	}
	v.Address = addr
	return v, nil
}
