package voting

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := newError(CodeAlreadyVoted, map[string]string{"voter": "v"}, "v has already voted")
	wrapped := fmt.Errorf("cast: %w", err)

	assert.ErrorIs(t, wrapped, ErrAlreadyVoted)
	assert.NotErrorIs(t, wrapped, ErrVotingClosed)
	assert.Equal(t, "AlreadyVoted: v has already voted", err.Error())

	code, ok := CodeOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeAlreadyVoted, code)
	assert.True(t, IsCode(wrapped, CodeAlreadyVoted))
}

func TestError_CodesAreDistinct(t *testing.T) {
	seen := map[Code]bool{}
	for _, c := range Codes {
		assert.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, 11)
}

func TestCodeOf_NonRejection(t *testing.T) {
	_, ok := CodeOf(errors.New("disk full"))
	assert.False(t, ok)
	assert.False(t, IsCode(nil, CodeNotFound))
}

func TestInvariantError(t *testing.T) {
	cause := errors.New("bad json")
	err := fmt.Errorf("load: %w", &InvariantError{Invariant: "poll record is corrupt", Err: cause})

	assert.True(t, IsInvariant(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "invariant violated: poll record is corrupt: bad json")
	assert.False(t, IsInvariant(ErrNotFound))
}
