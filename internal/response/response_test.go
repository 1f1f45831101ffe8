package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/urna-api/internal/domain/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func render(err error) (*httptest.ResponseRecorder, ErrorResponse) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Error(c, err)

	var body ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		kind    string
		message string
	}{
		{common.E(common.KindAlreadyVoted, "voter has already cast a ballot"), http.StatusConflict, "already_voted", "you already voted"},
		{common.E(common.KindInvalidList, "list belongs elsewhere"), http.StatusUnprocessableEntity, "invalid_list", "invalid selection, reload"},
		{common.E(common.KindElectionNotOpen, "closed"), http.StatusConflict, "election_not_open", "voting is not currently open"},
		{common.E(common.KindNotAuthenticated, ""), http.StatusUnauthorized, "not_authenticated", "authentication required"},
		{common.E(common.KindUnauthorized, "bulk_tally tally is not permitted"), http.StatusForbidden, "unauthorized", "operation not permitted"},
		{common.E(common.KindInvalidTransition, "cannot move election from draft to voting_open"), http.StatusConflict, "invalid_transition", "cannot move election from draft to voting_open"},
		{common.E(common.KindElectionLocked, "results were already published"), http.StatusConflict, "election_locked", "results were already published"},
		{common.E(common.KindNotFound, "election not found"), http.StatusNotFound, "not_found", "election not found"},
		{common.E(common.KindValidation, "title is required"), http.StatusBadRequest, "validation", "title is required"},
		{common.E(common.KindResultsUnavailable, "results are not available"), http.StatusConflict, "results_unavailable", "results are not available"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			w, body := render(tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, body.Success)
			assert.Equal(t, tt.status, body.Code)
			assert.Equal(t, tt.kind, body.Kind)
			assert.Equal(t, tt.message, body.Error)
		})
	}
}

func TestWrappedErrorsKeepTheirKind(t *testing.T) {
	err := fmt.Errorf("cast vote: %w", common.E(common.KindAlreadyVoted, "dup"))
	w, body := render(err)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_voted", body.Kind)
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	w, body := render(errors.New("pq: connection refused to 10.0.0.7"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", body.Error)
	assert.Equal(t, "internal", body.Kind)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(common.KindInvalidList))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(common.Kind(200)))
}
