package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/services"
	"github.com/hades874/Super-CMS-sub001/internal/utils"
)

// AssignmentQuery selects assignments either by content item or by
// organizational target.
type AssignmentQuery struct {
	ContentID   string                `form:"content_id"`
	ContentType models.ContentType    `form:"content_type"`
	TargetType  models.AssignmentType `form:"target_type"`
	TargetID    string                `form:"target_id"`
}

type AssignmentHandler struct {
	BaseHandler
	assignments services.AssignmentService
}

func NewAssignmentHandler(assignments services.AssignmentService, logger utils.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler: NewBaseHandler(logger),
		assignments: assignments,
	}
}

// ListAssignments returns the bindings of one content item, or every
// binding pointing at one target.
// @Summary List assignments
// @Tags assignments
// @Produce json
// @Param content_id query string false "Content ID"
// @Param content_type query string false "Content type"
// @Param target_type query string false "program, course or chapter"
// @Param target_id query string false "Target ID"
// @Success 200 {array} models.ContentAssignment
// @Failure 400 {object} ErrorResponse
// @Router /assignments [get]
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	var q AssignmentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", err, err.Error())
		return
	}

	var (
		result []models.ContentAssignment
		err    error
	)
	switch {
	case q.ContentID != "" || q.ContentType != "":
		result, err = h.assignments.AssignmentsFor(c.Request.Context(), models.ContentRef{ID: q.ContentID, Type: q.ContentType})
	case q.TargetID != "" || q.TargetType != "":
		result, err = h.assignments.AssignmentsForTarget(c.Request.Context(), models.Binding{Type: q.TargetType, TargetID: q.TargetID})
	default:
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", nil,
			"either content_id and content_type or target_type and target_id are required")
		return
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReassignContent replaces the bindings of the given items.
// @Summary Reassign content
// @Tags assignments
// @Accept json
// @Produce json
// @Param request body services.ReassignRequest true "Items and their new bindings"
// @Success 200 {array} models.ContentAssignment
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assignments [put]
func (h *AssignmentHandler) ReassignContent(c *gin.Context) {
	var req services.ReassignRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.LogRequest(c, "Reassigning content", "items", len(req.Items), "bindings", len(req.Bindings))

	created, err := h.assignments.Reassign(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

// PruneAssignments drops bindings whose content no longer exists.
func (h *AssignmentHandler) PruneAssignments(c *gin.Context) {
	removed, err := h.assignments.Prune(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Orphaned assignments removed", gin.H{"removed": removed})
}
