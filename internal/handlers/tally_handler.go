package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/urna-api/internal/logger"
	"github.com/gravadigital/urna-api/internal/middleware/identity"
	"github.com/gravadigital/urna-api/internal/response"
	"github.com/gravadigital/urna-api/internal/services"
	"github.com/gravadigital/urna-api/internal/validation"
)

// TallyHandler exposes the audit and the bulk tally operations
type TallyHandler struct {
	voting *services.VotingService
	log    *log.Logger
}

func NewTallyHandler(svc *services.Services) *TallyHandler {
	return &TallyHandler{
		voting: svc.Voting,
		log:    logger.Handler("tally_handler"),
	}
}

// Audit handles GET /api/admin/elections/:id/audit
func (h *TallyHandler) Audit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	report, err := h.voting.AuditTally(c.Request.Context(), identity.FromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", report)
}

type SimulateRequest struct {
	// list id -> votes to add
	Distribution map[string]int64 `json:"distribution" binding:"required"`
}

// Simulate handles POST /api/admin/elections/:id/simulate
func (h *TallyHandler) Simulate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req SimulateRequest
	if !bindJSON(c, &req) {
		return
	}

	distribution := make(map[uuid.UUID]int64, len(req.Distribution))
	for key, votes := range req.Distribution {
		listID, err := validation.ParseUUID(key, "distribution")
		if err != nil {
			response.Error(c, err)
			return
		}
		distribution[listID] = votes
	}

	res, err := h.voting.ApplySimulatedDistribution(c.Request.Context(), identity.FromContext(c), id, distribution)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.log.Info("Simulated distribution applied", "request_id", c.GetString("request_id"), "election_id", id, "votes_added", res.VotesAdded)
	response.SuccessResponse(c, http.StatusOK, "simulated votes added", res)
}

// Reset handles POST /api/admin/elections/:id/reset
func (h *TallyHandler) Reset(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, err := h.voting.ResetElectionVotes(c.Request.Context(), identity.FromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.log.Info("Election votes reset", "request_id", c.GetString("request_id"), "election_id", id, "ballots_removed", res.BallotsRemoved)
	response.SuccessResponse(c, http.StatusOK, "votes reset", res)
}
