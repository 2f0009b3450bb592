package voting

import (
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// requireCreator is the authorization guard: only the identity recorded
// at creation may mutate a poll or its candidates.
func requireCreator(p Poll, requester Identity) error {
	if requester != p.Creator {
		return newError(CodeUnauthorized,
			map[string]string{"poll_id": fmtID(p.ID), "requester": string(requester)},
			"only the poll creator can modify poll %d", p.ID)
	}
	return nil
}

// requireOpen is the time window guard. Both ends are inclusive.
func requireOpen(p Poll, now int64) error {
	if now < p.VotingStart || now > p.VotingEnd {
		return newError(CodeVotingClosed,
			map[string]string{
				"poll_id": fmtID(p.ID),
				"now":     strconv.FormatInt(now, 10),
				"start":   strconv.FormatInt(p.VotingStart, 10),
				"end":     strconv.FormatInt(p.VotingEnd, 10),
			},
			"voting for poll %d is closed", p.ID)
	}
	return nil
}

// validateWindow checks a new poll's window against the current time.
func validateWindow(start, end, now int64) error {
	if start >= end {
		return newError(CodeInvalidWindow, nil,
			"poll start time %d must be before end time %d", start, end)
	}
	if end <= now {
		return newError(CodeWindowAlreadyClosed, nil,
			"poll end time %d is not after current time %d", end, now)
	}
	return nil
}

// boundedText NFC-normalizes s and checks the result against max bytes.
// The normalized form is what gets stored, so it is what gets measured.
func boundedText(field, s string, max int) (string, error) {
	n := norm.NFC.String(s)
	if len(n) > max {
		return "", newError(CodeFieldTooLong,
			map[string]string{"field": field},
			"%s is %d bytes, max %d", field, len(n), max)
	}
	return n, nil
}

// boundedIdentity rejects identities that cannot seed an address.
func boundedIdentity(field string, id Identity) error {
	if len(id) > MaxIdentityLength {
		return newError(CodeFieldTooLong,
			map[string]string{"field": field},
			"%s is %d bytes, max %d", field, len(id), MaxIdentityLength)
	}
	return nil
}

// decrement lowers a non-negative counter. Reaching below zero means the
// counter and the records it counts have diverged.
func decrement(name string, v uint64) (uint64, error) {
	if v == 0 {
		return 0, &InvariantError{Invariant: fmt.Sprintf("%s decremented below zero", name)}
	}
	return v - 1, nil
}

// increment raises a counter, refusing to wrap.
func increment(name string, v uint64) (uint64, error) {
	if v == ^uint64(0) {
		return 0, &InvariantError{Invariant: fmt.Sprintf("%s overflowed", name)}
	}
	return v + 1, nil
}

func fmtID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
