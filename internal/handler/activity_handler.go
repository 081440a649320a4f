package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	"github.com/noah-isme/ems-docs-api/pkg/response"
)

type activityService interface {
	AddComment(ctx context.Context, documentID string, req dto.CreateCommentRequest, actor *models.JWTClaims) (*models.DocumentComment, error)
	ListComments(ctx context.Context, documentID string, page dto.PageQuery, actor *models.JWTClaims) ([]models.DocumentComment, *models.Pagination, error)
	ListLogs(ctx context.Context, documentID string, page dto.PageQuery, actor *models.JWTClaims) ([]models.DocumentLog, *models.Pagination, error)
	ExportLogs(ctx context.Context, documentID string, format dto.ExportFormat, actor *models.JWTClaims) (*dto.ExportFile, error)
}

// ActivityHandler exposes comments and the document history.
type ActivityHandler struct {
	service activityService
}

// NewActivityHandler builds a new handler.
func NewActivityHandler(service activityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// AddComment godoc
// @Summary Comment on a document
// @Tags Activity
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.CreateCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Router /documents/{id}/comments [post]
func (h *ActivityHandler) AddComment(c *gin.Context) {
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid comment payload"))
		return
	}
	comment, err := h.service.AddComment(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "comment added", comment)
}

// ListComments godoc
// @Summary List comments newest first
// @Tags Activity
// @Produce json
// @Param id path string true "Document ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/comments [get]
func (h *ActivityHandler) ListComments(c *gin.Context) {
	var page dto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	comments, pagination, err := h.service.ListComments(c.Request.Context(), c.Param("id"), page, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "comments loaded", comments, pagination)
}

// ListLogs godoc
// @Summary Document history newest first
// @Tags Activity
// @Produce json
// @Param id path string true "Document ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/logs [get]
func (h *ActivityHandler) ListLogs(c *gin.Context) {
	var page dto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	logs, pagination, err := h.service.ListLogs(c.Request.Context(), c.Param("id"), page, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "history loaded", logs, pagination)
}

// ExportLogs godoc
// @Summary Export document history
// @Tags Activity
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Document ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /documents/{id}/logs/export [get]
func (h *ActivityHandler) ExportLogs(c *gin.Context) {
	format := dto.ExportFormat(c.DefaultQuery("format", string(dto.ExportFormatCSV)))
	file, err := h.service.ExportLogs(c.Request.Context(), c.Param("id"), format, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
