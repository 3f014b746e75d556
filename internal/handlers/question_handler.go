package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/repositories"
	"github.com/hades874/Super-CMS-sub001/internal/services"
	"github.com/hades874/Super-CMS-sub001/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// QuestionBatchRequest carries a batch of questions to create or update.
type QuestionBatchRequest struct {
	Questions []models.Question `json:"questions" binding:"required"`
}

// DeleteQuestionsRequest names the questions to delete.
type DeleteQuestionsRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

type QuestionHandler struct {
	BaseHandler
	questions services.QuestionService
	generator services.GenerationService
	sheets    services.ImportExportService
}

func NewQuestionHandler(
	questions services.QuestionService,
	generator services.GenerationService,
	sheets services.ImportExportService,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler: NewBaseHandler(logger),
		questions:   questions,
		generator:   generator,
		sheets:      sheets,
	}
}

// CreateQuestionsBatch creates questions in one batch
// @Summary Create questions
// @Description Validates every question first. Nothing is stored when one is invalid.
// @Tags questions
// @Accept json
// @Produce json
// @Param questions body QuestionBatchRequest true "Questions"
// @Success 201 {array} models.Question
// @Failure 400 {object} ErrorResponse
// @Router /questions/batch [post]
func (h *QuestionHandler) CreateQuestionsBatch(c *gin.Context) {
	var req QuestionBatchRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Creating questions", "count", len(req.Questions))

	created, err := h.questions.CreateBatch(c.Request.Context(), req.Questions)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *QuestionHandler) UpdateQuestionsBatch(c *gin.Context) {
	var req QuestionBatchRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Updating questions", "count", len(req.Questions))

	updated, err := h.questions.UpdateBatch(c.Request.Context(), req.Questions)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Questions updated", gin.H{"updated": updated})
}

func (h *QuestionHandler) DeleteQuestionsBatch(c *gin.Context) {
	var req DeleteQuestionsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Deleting questions", "count", len(req.IDs))

	removed, err := h.questions.DeleteBatch(c.Request.Context(), req.IDs)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Questions deleted", gin.H{"deleted": removed})
}

// ListQuestions lists questions matching the classification filters
// @Summary List questions
// @Tags questions
// @Produce json
// @Param type query string false "Question type"
// @Param subject query string false "Subject"
// @Param topic query string false "Topic"
// @Param class query string false "Class"
// @Param difficulty query string false "Difficulty"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} services.QuestionListResponse
// @Router /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	var filters repositories.QuestionFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", err, err.Error())
		return
	}

	resp, err := h.questions.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	question, err := h.questions.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// GenerateQuestions asks the generator for questions and stores the valid ones
// @Summary Generate questions
// @Tags questions
// @Accept json
// @Produce json
// @Param input body services.GenerationInput true "Generation input"
// @Success 201 {object} services.GenerationResult
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse "Generator returned nothing usable"
// @Router /questions/generate [post]
func (h *QuestionHandler) GenerateQuestions(c *gin.Context) {
	var input services.GenerationInput
	if !h.bindJSON(c, &input) {
		return
	}
	h.LogRequest(c, "Generating questions", "topic", input.Topic, "type", input.Type, "count", input.Count)

	created, err := h.generator.GenerateAndStore(c.Request.Context(), input)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, services.GenerationResult{GeneratedQuestions: created})
}

// ExportQuestions downloads the matching questions as a spreadsheet.
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", err, err.Error())
		return
	}

	data, err := h.sheets.ExportQuestionsToExcel(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("questions-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ImportQuestions reads questions from an uploaded spreadsheet. Rows that
// fail validation are reported in the summary and do not stop the import.
// @Summary Import questions
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx file"
// @Success 200 {object} models.ImportSummary
// @Failure 400 {object} ErrorResponse
// @Router /questions/import [post]
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Missing upload file", err, "multipart field \"file\" is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Unreadable upload file", err)
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing questions", "filename", header.Filename, "size", header.Size)

	summary, err := h.sheets.ImportQuestionsFromExcel(c.Request.Context(), file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
