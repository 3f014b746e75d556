package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
	"github.com/hades874/Super-CMS-sub001/internal/services"
	"github.com/hades874/Super-CMS-sub001/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	return utils.GetLoggerFromContext(c, h.logger)
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	h.log(c).Info(message, additionalFields...)
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	resp := ErrorResponse{Message: message}
	if len(details) > 0 {
		resp.Details = details[0]
	}

	switch {
	case statusCode >= http.StatusInternalServerError:
		h.log(c).LogError(err, message, "status_code", statusCode)
	case err != nil:
		h.log(c).Warn(message, "status_code", statusCode, "error", err)
	}

	c.AbortWithStatusJSON(statusCode, resp)
}

// RespondWithSuccess sends a consistent success response
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, SuccessResponse{Message: message, Data: data})
}

// bindJSON decodes the body and answers 400 on failure.
func (h *BaseHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return false
	}
	return true
}

// handleServiceError maps the service error taxonomy onto status codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors apperrors.ValidationErrors
	var validationError *apperrors.ValidationError

	switch {
	case errors.As(err, &validationErrors):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
	case len(apperrors.ToValidationErrors(err)) > 0:
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, apperrors.ToValidationErrors(err))
	case errors.As(err, &validationError):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, apperrors.ValidationErrors{*validationError})
	case errors.Is(err, services.ErrMalformedBackup):
		h.RespondWithError(c, http.StatusBadRequest, "Malformed backup payload", err, err.Error())
	case errors.Is(err, services.ErrImportFileEmpty):
		h.RespondWithError(c, http.StatusBadRequest, "Import file has no question rows", err)
	case errors.Is(err, services.ErrInvalidQuestionIndex):
		h.RespondWithError(c, http.StatusBadRequest, "Invalid question number", err)
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request", err, err.Error())
	case errors.Is(err, services.ErrSessionNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Session not found", err)
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "Resource not found", err)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, "Operation conflicts with current state", err, err.Error())
	case errors.Is(err, services.ErrGenerationFailed):
		h.RespondWithError(c, http.StatusBadGateway, "Question generation failed", err, err.Error())
	case errors.Is(err, services.ErrStorageUnavailable):
		h.RespondWithError(c, http.StatusServiceUnavailable, "Storage unavailable", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
