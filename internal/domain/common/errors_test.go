package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := E(KindAlreadyVoted, "voter %s already voted", "v1")
	wrapped := fmt.Errorf("cast vote: %w", err)

	assert.ErrorIs(t, wrapped, ErrAlreadyVoted)
	assert.NotErrorIs(t, wrapped, ErrInvalidList)
	assert.Equal(t, KindAlreadyVoted, KindOf(wrapped))
	assert.Equal(t, "voter v1 already voted", err.PublicMessage())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestInternalErrorsHideDetails(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Wrap(KindInternal, cause, "failed to insert ballot")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal error", err.PublicMessage())
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDefaultMessage(t *testing.T) {
	assert.Equal(t, "election is not open for voting", ErrElectionNotOpen.Error())
	assert.Equal(t, "election_not_open", KindElectionNotOpen.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
