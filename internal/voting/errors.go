package voting

import (
	"errors"
	"fmt"
)

// Code categorizes a rejected operation.
type Code string

const (
	// CodeInvalidWindow indicates voting_start is not before voting_end.
	CodeInvalidWindow Code = "InvalidWindow"

	// CodeWindowAlreadyClosed indicates voting_end is not in the future.
	CodeWindowAlreadyClosed Code = "WindowAlreadyClosed"

	// CodeVotingClosed indicates a vote outside [voting_start, voting_end].
	CodeVotingClosed Code = "VotingClosed"

	// CodeAlreadyVoted indicates the voter already has a vote record.
	CodeAlreadyVoted Code = "AlreadyVoted"

	// CodeInvalidCandidate indicates the candidate is missing or belongs
	// to another poll.
	CodeInvalidCandidate Code = "InvalidCandidate"

	// CodeNotFound indicates a poll or candidate does not exist.
	CodeNotFound Code = "NotFound"

	// CodeDuplicatePoll indicates the poll id is taken.
	CodeDuplicatePoll Code = "DuplicatePoll"

	// CodeDuplicateCandidate indicates the candidate id is taken in the poll.
	CodeDuplicateCandidate Code = "DuplicateCandidate"

	// CodeUnauthorized indicates the requester is not the poll creator.
	CodeUnauthorized Code = "Unauthorized"

	// CodeCandidatesExist indicates a poll still has candidates.
	CodeCandidatesExist Code = "CandidatesExist"

	// CodeFieldTooLong indicates a bounded field exceeds its limit.
	CodeFieldTooLong Code = "FieldTooLong"
)

// Codes lists every rejection code.
var Codes = []Code{
	CodeInvalidWindow,
	CodeWindowAlreadyClosed,
	CodeVotingClosed,
	CodeAlreadyVoted,
	CodeInvalidCandidate,
	CodeNotFound,
	CodeDuplicatePoll,
	CodeDuplicateCandidate,
	CodeUnauthorized,
	CodeCandidatesExist,
	CodeFieldTooLong,
}

// Error is a rejected operation. Every Error is deterministic given the
// same inputs and record state, so retrying unchanged is pointless.
type Error struct {
	Code    Code
	Message string

	// Details carries the ids involved, for diagnostics.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so the sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidWindow       = &Error{Code: CodeInvalidWindow}
	ErrWindowAlreadyClosed = &Error{Code: CodeWindowAlreadyClosed}
	ErrVotingClosed        = &Error{Code: CodeVotingClosed}
	ErrAlreadyVoted        = &Error{Code: CodeAlreadyVoted}
	ErrInvalidCandidate    = &Error{Code: CodeInvalidCandidate}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrDuplicatePoll       = &Error{Code: CodeDuplicatePoll}
	ErrDuplicateCandidate  = &Error{Code: CodeDuplicateCandidate}
	ErrUnauthorized        = &Error{Code: CodeUnauthorized}
	ErrCandidatesExist     = &Error{Code: CodeCandidatesExist}
	ErrFieldTooLong        = &Error{Code: CodeFieldTooLong}
)

func newError(code Code, details map[string]string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: details,
	}
}

// CodeOf extracts the code of a rejected operation.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// IsCode reports whether err is a rejection with code.
func IsCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// InvariantError reports ledger state that can only arise from a defect,
// such as a counter about to drop below zero or a record body that does
// not decode. It is never a caller mistake and must not be retried.
type InvariantError struct {
	Invariant string
	Err       error
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invariant violated: %s: %v", e.Invariant, e.Err)
	}
	return fmt.Sprintf("invariant violated: %s", e.Invariant)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

// IsInvariant reports whether err is an invariant violation.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
