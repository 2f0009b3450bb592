package voting

import (
	"context"
	"errors"

	"github.com/roach88/pollstore/internal/address"
	"github.com/roach88/pollstore/internal/codec"
	"github.com/roach88/pollstore/internal/store"
)

// CreatePoll persists a new poll with no candidates.
func (l *Ledger) CreatePoll(ctx context.Context, in CreatePollInput) (Poll, error) {
	args := codec.Object{
		"poll_id":      in.PollID,
		"question":     in.Question,
		"voting_start": in.VotingStart,
		"voting_end":   in.VotingEnd,
		"creator":      string(in.Creator),
	}

	var created Poll
	err := l.execute(ctx, "create_poll", args, func(tx store.Tx) error {
		if err := validateWindow(in.VotingStart, in.VotingEnd, l.now()); err != nil {
			return err
		}
		question, err := boundedText("question", in.Question, MaxQuestionLength)
		if err != nil {
			return err
		}
		if err := boundedIdentity("creator", in.Creator); err != nil {
			return err
		}

		addr, bump, err := l.derive(address.PollSeeds(in.PollID))
		if err != nil {
			return err
		}
		p := Poll{
			ID:          in.PollID,
			Question:    question,
			VotingStart: in.VotingStart,
			VotingEnd:   in.VotingEnd,
			Creator:     in.Creator,
			Bump:        bump,
			Address:     addr,
		}
		rec, err := pollRecord(p)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, rec); err != nil {
			if errors.Is(err, store.ErrOccupied) {
				return newError(CodeDuplicatePoll,
					map[string]string{"poll_id": fmtID(in.PollID)},
					"poll %d already exists", in.PollID)
			}
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return Poll{}, err
	}
	return created, nil
}

// DeletePoll removes a poll with no remaining candidates. Vote records of
// the poll are kept.
func (l *Ledger) DeletePoll(ctx context.Context, pollID uint64, requester Identity) error {
	args := codec.Object{
		"poll_id":   pollID,
		"requester": string(requester),
	}
	return l.execute(ctx, "delete_poll", args, func(tx store.Tx) error {
		p, err := l.loadPoll(ctx, tx, pollID)
		if err != nil {
			return err
		}
		if err := requireCreator(p, requester); err != nil {
			return err
		}
		if p.CandidateCount > 0 {
			return newError(CodeCandidatesExist,
				map[string]string{"poll_id": fmtID(pollID), "candidate_count": fmtID(p.CandidateCount)},
				"poll %d still has %d candidates; remove them before deleting the poll",
				pollID, p.CandidateCount)
		}
		return tx.Delete(ctx, p.Address)
	})
}

// GetPoll returns the poll with pollID.
func (l *Ledger) GetPoll(ctx context.Context, pollID uint64) (Poll, error) {
	var p Poll
	err := l.view(ctx, func(tx store.Tx) error {
		var err error
		p, err = l.loadPoll(ctx, tx, pollID)
		return err
	})
	if err != nil {
		return Poll{}, err
	}
	return p, nil
}

// ListPolls returns every poll ordered by id.
func (l *Ledger) ListPolls(ctx context.Context) ([]Poll, error) {
	polls := []Poll{}
	err := l.view(ctx, func(tx store.Tx) error {
		recs, err := tx.List(ctx, store.Query{Kind: store.KindPoll})
		if err != nil {
			return err
		}
		for _, rec := range recs {
			var p Poll
			if err := codec.Decode(rec.Data, &p); err != nil {
				return &InvariantError{Invariant: "poll record " + rec.Address.String() + " is corrupt", Err: err}
			}
			p.Address = rec.Address
			polls = append(polls, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return polls, nil
}

func (l *Ledger) loadPoll(ctx context.Context, tx store.Tx, pollID uint64) (Poll, error) {
	addr, _, err := l.derive(address.PollSeeds(pollID))
	if err != nil {
		return Poll{}, err
	}
	var p Poll
	err = loadRecord(ctx, tx, addr, store.KindPoll, &p, func() error {
		return newError(CodeNotFound,
			map[string]string{"poll_id": fmtID(pollID)},
			"poll %d not found", pollID)
	})
	if err != nil {
		return Poll{}, err
	}
	if p.ID != pollID {
		return Poll{}, &InvariantError{Invariant: "poll " + fmtID(pollID) + " stored under id " + fmtID(p.ID)}
	}
	p.Address = addr
	return p, nil
}

func pollRecord(p Poll) (store.Record, error) {
	return encodeRecord(store.KindPoll, p.Address, p.Bump, p.ID, p.ID, p)
}
