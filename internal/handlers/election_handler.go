package handlers

import (
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/urna-api/internal/domain/common"
	"github.com/gravadigital/urna-api/internal/domain/election"
	"github.com/gravadigital/urna-api/internal/logger"
	"github.com/gravadigital/urna-api/internal/middleware/identity"
	"github.com/gravadigital/urna-api/internal/response"
	"github.com/gravadigital/urna-api/internal/services"
	"github.com/gravadigital/urna-api/internal/storage/repository"
)

type ElectionHandler struct {
	voting    *services.VotingService
	elections *services.ElectionService
	log       *log.Logger
}

func NewElectionHandler(svc *services.Services) *ElectionHandler {
	return &ElectionHandler{
		voting:    svc.Voting,
		elections: svc.Elections,
		log:       logger.Handler("election_handler"),
	}
}

// ListElections handles GET /api/elections
func (h *ElectionHandler) ListElections(c *gin.Context) {
	params := repository.PaginationParams{}
	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequestError(c, "page must be a number")
			return
		}
		params.Page = page
	}
	if v := c.Query("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequestError(c, "page_size must be a number")
			return
		}
		params.PageSize = size
	}
	if v := c.Query("status"); v != "" {
		status, ok := election.StatusFromString(v)
		if !ok {
			response.BadRequestError(c, "unknown status: "+v)
			return
		}
		params.Status = &status
	}

	page, err := h.voting.ListElections(c.Request.Context(), identity.FromContext(c), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", page)
}

// GetElection handles GET /api/elections/:id
func (h *ElectionHandler) GetElection(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	e, err := h.voting.GetElection(c.Request.Context(), identity.FromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", e)
}

// GetResults handles GET /api/elections/:id/results
func (h *ElectionHandler) GetResults(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, err := h.voting.GetElectionResults(c.Request.Context(), identity.FromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", res)
}

// CreateElection handles POST /api/admin/elections
func (h *ElectionHandler) CreateElection(c *gin.Context) {
	var req services.CreateElectionRequest
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.elections.CreateElection(c.Request.Context(), identity.FromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusCreated, "election created", e)
}

// UpdateElection handles PATCH /api/admin/elections/:id
func (h *ElectionHandler) UpdateElection(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateElectionRequest
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.elections.UpdateElection(c.Request.Context(), identity.FromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "election updated", e)
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ChangeStatus handles POST /api/admin/elections/:id/status
func (h *ElectionHandler) ChangeStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ChangeStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	to, known := election.StatusFromString(req.Status)
	if !known {
		h.log.Debug("Unknown status requested", "election_id", id, "status", req.Status)
		response.Error(c, common.E(common.KindValidation, "unknown status: %s", req.Status))
		return
	}

	e, err := h.voting.ChangeElectionStatus(c.Request.Context(), identity.FromContext(c), id, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "status changed", e)
}

// CreateList handles POST /api/admin/elections/:id/lists
func (h *ElectionHandler) CreateList(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.ListRequest
	if !bindJSON(c, &req) {
		return
	}

	l, err := h.elections.CreateList(c.Request.Context(), identity.FromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusCreated, "list created", l)
}

// UpdateList handles PATCH /api/admin/lists/:id
func (h *ElectionHandler) UpdateList(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateListRequest
	if !bindJSON(c, &req) {
		return
	}

	l, err := h.elections.UpdateList(c.Request.Context(), identity.FromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "list updated", l)
}

// DeleteList handles DELETE /api/admin/lists/:id
func (h *ElectionHandler) DeleteList(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.elections.DeleteList(c.Request.Context(), identity.FromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateCandidate handles POST /api/admin/lists/:id/candidates
func (h *ElectionHandler) CreateCandidate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.CandidateRequest
	if !bindJSON(c, &req) {
		return
	}

	cand, err := h.elections.CreateCandidate(c.Request.Context(), identity.FromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusCreated, "candidate created", cand)
}

// UpdateCandidate handles PATCH /api/admin/candidates/:id
func (h *ElectionHandler) UpdateCandidate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateCandidateRequest
	if !bindJSON(c, &req) {
		return
	}

	cand, err := h.elections.UpdateCandidate(c.Request.Context(), identity.FromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "candidate updated", cand)
}

// DeleteCandidate handles DELETE /api/admin/candidates/:id
func (h *ElectionHandler) DeleteCandidate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.elections.DeleteCandidate(c.Request.Context(), identity.FromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
