package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/services"
	"github.com/hades874/Super-CMS-sub001/internal/utils"
)

// AnswerRequest carries one answer slot value: a string, a list of strings
// or null to clear the slot.
type AnswerRequest struct {
	Value models.Answer `json:"value"`
}

type SessionHandler struct {
	BaseHandler
	attempts services.AttemptService
}

func NewSessionHandler(attempts services.AttemptService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		attempts:    attempts,
	}
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	view, err := h.attempts.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SetAnswer writes the answer for one question number
// @Summary Set answer
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param number path int true "Question number, starting at 1"
// @Param answer body AnswerRequest true "Answer value"
// @Success 200 {object} services.SessionView
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Session is not in progress"
// @Router /sessions/{id}/answers/{number} [put]
func (h *SessionHandler) SetAnswer(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	number := ParseQuestionNumber(c, "number")
	if number == 0 {
		return
	}

	var req AnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	view, err := h.attempts.SetAnswer(c.Request.Context(), id, number, req.Value)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) ToggleReview(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	number := ParseQuestionNumber(c, "number")
	if number == 0 {
		return
	}

	view, err := h.attempts.ToggleReview(c.Request.Context(), id, number)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitSession finalizes the session and returns the recorded attempt.
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.LogRequest(c, "Submitting exam session", "session_id", id)

	attempt, err := h.attempts.Submit(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *SessionHandler) DiscardSession(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.LogRequest(c, "Discarding exam session", "session_id", id)

	if err := h.attempts.Discard(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
