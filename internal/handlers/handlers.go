package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/urna-api/internal/response"
	"github.com/gravadigital/urna-api/internal/validation"
)

// pathID parses a UUID path parameter, writing the 400 itself on failure
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := validation.ParseUUID(c.Param(name), name)
	if err != nil {
		response.Error(c, err)
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the body, writing the 400 itself on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequestError(c, "invalid request payload: "+err.Error())
		return false
	}
	return true
}
