package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hades874/Super-CMS-sub001/internal/services"
	"github.com/hades874/Super-CMS-sub001/internal/utils"
)

// maxBackupSize bounds the body accepted by ImportBackup.
const maxBackupSize = 64 << 20

type BackupHandler struct {
	BaseHandler
	backup services.BackupService
}

func NewBackupHandler(backup services.BackupService, logger utils.Logger) *BackupHandler {
	return &BackupHandler{
		BaseHandler: NewBaseHandler(logger),
		backup:      backup,
	}
}

// ExportBackup downloads every content collection as one JSON document.
func (h *BackupHandler) ExportBackup(c *gin.Context) {
	data, err := h.backup.Export(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("exam-content-backup-%s.json", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json", data)
}

// ImportBackup replaces the content collections with the uploaded snapshot.
// A malformed snapshot leaves the stored content untouched.
// @Summary Import backup
// @Tags backup
// @Accept json
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "Malformed backup payload"
// @Router /backup [post]
func (h *BackupHandler) ImportBackup(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBackupSize))
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Unreadable request body", err)
		return
	}
	h.LogRequest(c, "Importing backup", "bytes", len(raw))

	if err := h.backup.Import(c.Request.Context(), raw); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Backup imported", nil)
}

func (h *BackupHandler) ClearContent(c *gin.Context) {
	h.LogRequest(c, "Clearing all content")

	if err := h.backup.Clear(c.Request.Context()); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
