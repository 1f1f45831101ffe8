package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/urna-api/internal/logger"
	"github.com/gravadigital/urna-api/internal/middleware/identity"
	"github.com/gravadigital/urna-api/internal/response"
	"github.com/gravadigital/urna-api/internal/services"
	"github.com/gravadigital/urna-api/internal/validation"
)

type VoteHandler struct {
	voting *services.VotingService
	log    *log.Logger
}

func NewVoteHandler(svc *services.Services) *VoteHandler {
	return &VoteHandler{
		voting: svc.Voting,
		log:    logger.Handler("vote_handler"),
	}
}

type CastVoteRequest struct {
	ListID string `json:"list_id" binding:"required"`
}

// CastVote handles POST /api/elections/:id/votes
func (h *VoteHandler) CastVote(c *gin.Context) {
	electionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CastVoteRequest
	if !bindJSON(c, &req) {
		return
	}
	listID, err := validation.ParseUUID(req.ListID, "list_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.voting.CastVote(c.Request.Context(), identity.FromContext(c), electionID, listID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.log.Debug("Ballot recorded", "request_id", c.GetString("request_id"), "election_id", electionID)
	response.SuccessResponse(c, http.StatusCreated, "vote recorded", res)
}

// GetMyBallot handles GET /api/elections/:id/my-ballot
func (h *VoteHandler) GetMyBallot(c *gin.Context) {
	electionID, ok := pathID(c, "id")
	if !ok {
		return
	}

	b, err := h.voting.GetMyBallot(c.Request.Context(), identity.FromContext(c), electionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", b)
}

// HasVoted handles GET /api/elections/:id/has-voted
func (h *VoteHandler) HasVoted(c *gin.Context) {
	electionID, ok := pathID(c, "id")
	if !ok {
		return
	}

	voted, err := h.voting.HasVoted(c.Request.Context(), identity.FromContext(c), electionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", gin.H{"election_id": electionID, "has_voted": voted})
}

// VerifyReceipt handles GET /api/receipts/:receipt. It is public.
func (h *VoteHandler) VerifyReceipt(c *gin.Context) {
	v, err := h.voting.VerifyReceipt(c.Request.Context(), c.Param("receipt"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", v)
}
