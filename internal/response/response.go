package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/urna-api/internal/domain/common"
	"github.com/gravadigital/urna-api/internal/logger"
)

// Response representa la estructura estándar de respuesta de la API
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse representa una respuesta de error
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
}

type mapping struct {
	status  int
	message string // empty keeps the error's own message
}

var kindMappings = map[common.Kind]mapping{
	common.KindAlreadyVoted:       {http.StatusConflict, "you already voted"},
	common.KindInvalidList:        {http.StatusUnprocessableEntity, "invalid selection, reload"},
	common.KindElectionNotOpen:    {http.StatusConflict, "voting is not currently open"},
	common.KindNotAuthenticated:   {http.StatusUnauthorized, "authentication required"},
	common.KindUnauthorized:       {http.StatusForbidden, "operation not permitted"},
	common.KindInvalidTransition:  {http.StatusConflict, ""},
	common.KindElectionLocked:     {http.StatusConflict, ""},
	common.KindNotFound:           {http.StatusNotFound, ""},
	common.KindValidation:         {http.StatusBadRequest, ""},
	common.KindResultsUnavailable: {http.StatusConflict, ""},
	common.KindInternal:           {http.StatusInternalServerError, "internal error"},
}

// StatusFor returns the HTTP status used for an error kind
func StatusFor(kind common.Kind) int {
	if m, ok := kindMappings[kind]; ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// SuccessResponse envía una respuesta exitosa
func SuccessResponse(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error traduce un error del dominio a su respuesta HTTP. Internal errors
// never leak their message to the client.
func Error(c *gin.Context, err error) {
	kind := common.KindOf(err)
	m, ok := kindMappings[kind]
	if !ok {
		m = kindMappings[common.KindInternal]
		kind = common.KindInternal
	}

	message := m.message
	if message == "" {
		var domainErr *common.Error
		if errors.As(err, &domainErr) {
			message = domainErr.PublicMessage()
		}
	}

	if kind == common.KindInternal {
		logger.HTTP().Error("Request failed",
			"request_id", c.GetString("request_id"),
			"path", c.Request.URL.Path,
			"error", err,
		)
	}

	c.AbortWithStatusJSON(m.status, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    m.status,
		Kind:    kind.String(),
	})
}

// BadRequestError envía un error 400
func BadRequestError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    http.StatusBadRequest,
		Kind:    common.KindValidation.String(),
	})
}

// UnauthorizedError envía un error 401
func UnauthorizedError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    http.StatusUnauthorized,
		Kind:    common.KindNotAuthenticated.String(),
	})
}
