package voting

import (
	"context"
	"errors"

	"github.com/roach88/pollstore/internal/address"
	"github.com/roach88/pollstore/internal/codec"
	"github.com/roach88/pollstore/internal/store"
)

// AddCandidate adds a candidate to a poll the requester created.
func (l *Ledger) AddCandidate(ctx context.Context, in AddCandidateInput) (Candidate, error) {
	args := codec.Object{
		"poll_id":      in.PollID,
		"candidate_id": in.CandidateID,
		"name":         in.Name,
		"requester":    string(in.Requester),
	}

	var added Candidate
	err := l.execute(ctx, "add_candidate", args, func(tx store.Tx) error {
		name, err := boundedText("name", in.Name, MaxNameLength)
		if err != nil {
			return err
		}
		if err := boundedIdentity("requester", in.Requester); err != nil {
			return err
		}

		p, err := l.loadPoll(ctx, tx, in.PollID)
		if err != nil {
			return err
		}
		if err := requireCreator(p, in.Requester); err != nil {
			return err
		}

		addr, bump, err := l.derive(address.CandidateSeeds(in.PollID, in.CandidateID))
		if err != nil {
			return err
		}
		c := Candidate{
			ID:      in.CandidateID,
			PollID:  in.PollID,
			Name:    name,
			Bump:    bump,
			Address: addr,
		}
		rec, err := candidateRecord(c)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, rec); err != nil {
			if errors.Is(err, store.ErrOccupied) {
				return newError(CodeDuplicateCandidate,
					map[string]string{"poll_id": fmtID(in.PollID), "candidate_id": fmtID(in.CandidateID)},
					"candidate %d already exists in poll %d", in.CandidateID, in.PollID)
			}
			return err
		}

		if p.CandidateCount, err = increment("candidate_count", p.CandidateCount); err != nil {
			return err
		}
		if err := l.savePoll(ctx, tx, p); err != nil {
			return err
		}
		added = c
		return nil
	})
	if err != nil {
		return Candidate{}, err
	}
	return added, nil
}

// DeleteCandidate removes a candidate from a poll the requester created.
// Votes already cast for it are kept.
func (l *Ledger) DeleteCandidate(ctx context.Context, pollID, candidateID uint64, requester Identity) error {
	args := codec.Object{
		"poll_id":      pollID,
		"candidate_id": candidateID,
		"requester":    string(requester),
	}
	return l.execute(ctx, "delete_candidate", args, func(tx store.Tx) error {
		p, err := l.loadPoll(ctx, tx, pollID)
		if err != nil {
			return err
		}
		if err := requireCreator(p, requester); err != nil {
			return err
		}
		c, err := l.loadCandidate(ctx, tx, pollID, candidateID)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, c.Address); err != nil {
			return err
		}
		if p.CandidateCount, err = decrement("candidate_count", p.CandidateCount); err != nil {
			return err
		}
		return l.savePoll(ctx, tx, p)
	})
}

// GetCandidate returns one candidate of a poll.
func (l *Ledger) GetCandidate(ctx context.Context, pollID, candidateID uint64) (Candidate, error) {
	var c Candidate
	err := l.view(ctx, func(tx store.Tx) error {
		var err error
		c, err = l.loadCandidate(ctx, tx, pollID, candidateID)
		return err
	})
	if err != nil {
		return Candidate{}, err
	}
	return c, nil
}

// ListCandidates returns the candidates of a poll ordered by id.
func (l *Ledger) ListCandidates(ctx context.Context, pollID uint64) ([]Candidate, error) {
	var out []Candidate
	err := l.view(ctx, func(tx store.Tx) error {
		if _, err := l.loadPoll(ctx, tx, pollID); err != nil {
			return err
		}
		var err error
		out, err = listCandidates(ctx, tx, pollID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func listCandidates(ctx context.Context, tx store.Tx, pollID uint64) ([]Candidate, error) {
	recs, err := tx.List(ctx, store.ForPoll(store.KindCandidate, pollID))
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(recs))
	for _, rec := range recs {
		var c Candidate
		if err := codec.Decode(rec.Data, &c); err != nil {
			return nil, &InvariantError{Invariant: "candidate record " + rec.Address.String() + " is corrupt", Err: err}
		}
		c.Address = rec.Address
		out = append(out, c)
	}
	return out, nil
}

// loadCandidate reports a missing candidate as NotFound.
func (l *Ledger) loadCandidate(ctx context.Context, tx store.Tx, pollID, candidateID uint64) (Candidate, error) {
	addr, _, err := l.derive(address.CandidateSeeds(pollID, candidateID))
	if err != nil {
		return Candidate{}, err
	}
	var c Candidate
	err = loadRecord(ctx, tx, addr, store.KindCandidate, &c, func() error {
		return newError(CodeNotFound,
			map[string]string{"poll_id": fmtID(pollID), "candidate_id": fmtID(candidateID)},
			"candidate %d not found in poll %d", candidateID, pollID)
	})
	if err != nil {
		return Candidate{}, err
	}
	c.Address = addr
	return c, nil
}

func (l *Ledger) savePoll(ctx context.Context, tx store.Tx, p Poll) error {
	rec, err := pollRecord(p)
	if err != nil {
		return err
	}
	return tx.Put(ctx, rec)
}

func (l *Ledger) saveCandidate(ctx context.Context, tx store.Tx, c Candidate) error {
	rec, err := candidateRecord(c)
	if err != nil {
		return err
	}
	return tx.Put(ctx, rec)
}

func candidateRecord(c Candidate) (store.Record, error) {
	return encodeRecord(store.KindCandidate, c.Address, c.Bump, c.PollID, c.ID, c)
}
