package validation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/gravadigital/urna-api/internal/domain/common"
)

func TestLengthMessagesUseDecimalNumbers(t *testing.T) {
	err := ValidateMinLength("a", 3, "title")
	assert.EqualError(t, err, "title must be at least 3 characters long")

	err = ValidateMaxLength("abcdef", 5, "name")
	assert.EqualError(t, err, "name must be at most 5 characters long")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestParseUUID(t *testing.T) {
	id := uuid.New()
	got, err := ParseUUID(" "+id.String()+" ", "election_id")
	assert.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUID("not-a-uuid", "election_id")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = ParseUUID(uuid.Nil.String(), "election_id")
	assert.Error(t, err)
}

func TestValidateDateRange(t *testing.T) {
	now := time.Now()
	assert.NoError(t, ValidateDateRange(now, now.Add(time.Hour)))
	assert.Error(t, ValidateDateRange(now, now.Add(-time.Hour)))
	assert.Error(t, ValidateDateRange(time.Time{}, now))

	assert.NoError(t, ValidateNotInPast(now))
	assert.Error(t, ValidateNotInPast(now.Add(-48*time.Hour)))
}

func TestEntityValidations(t *testing.T) {
	assert.NoError(t, ElectionValidation{}.ValidateTitle("Centro de Estudiantes 2026"))
	assert.Error(t, ElectionValidation{}.ValidateTitle("  "))
	assert.Error(t, ElectionValidation{}.ValidateEligibleVoters(-1))

	assert.NoError(t, ListValidation{}.ValidateColor(""))
	assert.NoError(t, ListValidation{}.ValidateColor("#1a2B3c"))
	assert.Error(t, ListValidation{}.ValidateColor("azul"))
	assert.Error(t, ListValidation{}.ValidateName("A"))

	assert.NoError(t, CandidateValidation{}.ValidateEmail(""))
	assert.NoError(t, CandidateValidation{}.ValidateEmail("ana@uni.edu"))
	assert.Error(t, CandidateValidation{}.ValidateEmail("ana"))
	assert.Error(t, CandidateValidation{}.ValidateFullName(""))
}
