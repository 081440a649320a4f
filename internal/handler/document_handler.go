package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	"github.com/noah-isme/ems-docs-api/pkg/response"
)

type documentService interface {
	Create(ctx context.Context, req dto.CreateDocumentRequest, actor *models.JWTClaims) (*models.DocumentDetail, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.DocumentDetail, error)
	List(ctx context.Context, query dto.DocumentListQuery, actor *models.JWTClaims) ([]dto.DocumentListItem, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateDocumentRequest, actor *models.JWTClaims) (*models.DocumentDetail, error)
	Archive(ctx context.Context, id string, actor *models.JWTClaims) (*models.DocumentDetail, error)
	Restore(ctx context.Context, id string, actor *models.JWTClaims) (*models.DocumentDetail, error)
	Publish(ctx context.Context, id string, actor *models.JWTClaims) (*models.DocumentDetail, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

type accessResolver interface {
	Resolve(ctx context.Context, documentID string, actor *models.JWTClaims) (*models.Document, models.AccessSummary, error)
}

// DocumentHandler exposes the document registry and lifecycle endpoints.
type DocumentHandler struct {
	service documentService
	access  accessResolver
}

// NewDocumentHandler builds a new handler.
func NewDocumentHandler(service documentService, access accessResolver) *DocumentHandler {
	return &DocumentHandler{service: service, access: access}
}

// Create godoc
// @Summary Register a document with its first version
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.CreateDocumentRequest true "Document payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid document payload"))
		return
	}
	detail, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "document created", detail)
}

// List godoc
// @Summary List documents visible to the caller
// @Tags Documents
// @Produce json
// @Param folderId query string false "Folder ID"
// @Param unfiled query bool false "Only documents without folder"
// @Param status query string false "active, archived or draft"
// @Param tag query string false "Tag filter"
// @Param q query string false "Search in title and description"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	var query dto.DocumentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "documents loaded", items, pagination)
}

// Get godoc
// @Summary Get a document with its current version and the caller's access
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "document loaded", detail)
}

// Update godoc
// @Summary Update document metadata
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.UpdateDocumentRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [patch]
func (h *DocumentHandler) Update(c *gin.Context) {
	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid document payload"))
		return
	}
	detail, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "document updated", detail)
}

// Archive godoc
// @Summary Archive an active document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id}/archive [post]
func (h *DocumentHandler) Archive(c *gin.Context) {
	h.lifecycle(c, h.service.Archive, "document archived")
}

// Restore godoc
// @Summary Restore an archived document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/restore [post]
func (h *DocumentHandler) Restore(c *gin.Context) {
	h.lifecycle(c, h.service.Restore, "document restored")
}

// Publish godoc
// @Summary Publish a draft document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/publish [post]
func (h *DocumentHandler) Publish(c *gin.Context) {
	h.lifecycle(c, h.service.Publish, "document published")
}

// Delete godoc
// @Summary Permanently delete a document and its versions
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "document deleted", nil)
}

// Access godoc
// @Summary Effective access of the caller on a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/access [get]
func (h *DocumentHandler) Access(c *gin.Context) {
	_, summary, err := h.access.Resolve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "access resolved", summary)
}

type lifecycleFunc func(ctx context.Context, id string, actor *models.JWTClaims) (*models.DocumentDetail, error)

func (h *DocumentHandler) lifecycle(c *gin.Context, fn lifecycleFunc, reason string) {
	detail, err := fn(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reason, detail)
}
