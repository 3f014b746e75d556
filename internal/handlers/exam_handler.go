package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hades874/Super-CMS-sub001/internal/repositories"
	"github.com/hades874/Super-CMS-sub001/internal/services"
	"github.com/hades874/Super-CMS-sub001/internal/utils"
)

type ExamHandler struct {
	BaseHandler
	catalog  services.ExamCatalogService
	attempts services.AttemptService
}

func NewExamHandler(catalog services.ExamCatalogService, attempts services.AttemptService, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler: NewBaseHandler(logger),
		catalog:     catalog,
		attempts:    attempts,
	}
}

// CreateExam creates a draft exam
// @Summary Create exam
// @Tags exams
// @Accept json
// @Produce json
// @Param exam body services.ExamRequest true "Exam definition"
// @Success 201 {object} models.ExamConfiguration
// @Failure 400 {object} ErrorResponse
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req services.ExamRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Creating exam", "title", req.Title)

	exam, err := h.catalog.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exam)
}

// ListExams lists exams, optionally filtered by status, category and title
// @Summary List exams
// @Tags exams
// @Produce json
// @Param status query string false "draft or published"
// @Param category query string false "Academic or General"
// @Param search query string false "Title search"
// @Success 200 {array} models.ExamConfiguration
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	var filters repositories.ExamFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", err, err.Error())
		return
	}

	exams, err := h.catalog.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exams)
}

func (h *ExamHandler) GetExam(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	exam, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exam)
}

// UpdateExam replaces the editable fields of a draft exam
// @Summary Update exam
// @Tags exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param exam body services.ExamRequest true "Exam definition"
// @Success 200 {object} models.ExamConfiguration
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Exam already published"
// @Router /exams/{id} [put]
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.ExamRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Updating exam", "exam_id", id)

	exam, err := h.catalog.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exam)
}

func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.LogRequest(c, "Deleting exam", "exam_id", id)

	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PublishExam moves a draft exam to published. Publishing is one-way.
// @Summary Publish exam
// @Tags exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} models.ExamConfiguration
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Exam already published"
// @Router /exams/{id}/publish [post]
func (h *ExamHandler) PublishExam(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.LogRequest(c, "Publishing exam", "exam_id", id)

	exam, err := h.catalog.Publish(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exam)
}

// TakeExam starts a timed session for a published exam. Missing and
// unpublished exams get the same answer.
// @Summary Take exam
// @Tags exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 201 {object} services.SessionView
// @Failure 404 {object} ErrorResponse "Exam not found or not available"
// @Router /exams/{id}/take [post]
func (h *ExamHandler) TakeExam(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.LogRequest(c, "Starting exam session", "exam_id", id)

	view, err := h.attempts.Start(c.Request.Context(), id)
	if err != nil {
		if services.IsUnavailable(err) {
			h.RespondWithError(c, http.StatusNotFound, "Exam not found or not available", err)
			return
		}
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ListExamAttempts returns the finished attempts recorded for an exam.
func (h *ExamHandler) ListExamAttempts(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	attempts, err := h.attempts.ListAttempts(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}
