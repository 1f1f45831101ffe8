package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"", RoleVoter},
		{"voter", RoleVoter},
		{"Student", RoleVoter},
		{"committee", RoleCommittee},
		{" ADMIN ", RoleAdmin},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseRole("superuser")
	assert.Error(t, err)
}

func TestSessionPredicates(t *testing.T) {
	assert.False(t, Anonymous().Authenticated())
	assert.False(t, Anonymous().IsStaff())

	voter := Session{UserID: uuid.New(), Role: RoleVoter}
	assert.True(t, voter.Authenticated())
	assert.False(t, voter.IsAdmin())
	assert.False(t, voter.IsStaff())

	committee := Session{UserID: uuid.New(), Role: RoleCommittee}
	assert.True(t, committee.IsStaff())
	assert.False(t, committee.IsAdmin())

	admin := Session{UserID: uuid.New(), Role: RoleAdmin}
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.IsStaff())

	noRole := Session{UserID: uuid.New()}
	assert.False(t, noRole.Authenticated())
}
