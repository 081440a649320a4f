package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	"github.com/noah-isme/ems-docs-api/pkg/response"
)

type versionService interface {
	Upload(ctx context.Context, documentID string, req dto.UploadVersionRequest, actor *models.JWTClaims) (*models.DocumentVersion, error)
	List(ctx context.Context, documentID string, actor *models.JWTClaims) ([]models.VersionListItem, error)
	Delete(ctx context.Context, documentID, versionID string, actor *models.JWTClaims) error
	DownloadURL(ctx context.Context, versionID string, actor *models.JWTClaims) (*dto.DownloadURLResponse, error)
}

// VersionHandler exposes document version endpoints.
type VersionHandler struct {
	service versionService
}

// NewVersionHandler builds a new handler.
func NewVersionHandler(service versionService) *VersionHandler {
	return &VersionHandler{service: service}
}

// Upload godoc
// @Summary Add a new version from an uploaded file
// @Tags Versions
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.UploadVersionRequest true "Uploaded file"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents/{id}/versions [post]
func (h *VersionHandler) Upload(c *gin.Context) {
	var req dto.UploadVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid version payload"))
		return
	}
	version, err := h.service.Upload(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "version uploaded", version)
}

// List godoc
// @Summary List versions newest first
// @Tags Versions
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/versions [get]
func (h *VersionHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "versions loaded", items)
}

// Delete godoc
// @Summary Delete a non-current version
// @Tags Versions
// @Produce json
// @Param id path string true "Document ID"
// @Param versionId path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id}/versions/{versionId} [delete]
func (h *VersionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Param("versionId"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "version deleted", nil)
}

// DownloadURL godoc
// @Summary Signed download URL for a version
// @Tags Versions
// @Produce json
// @Param id path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Router /versions/{id}/download-url [get]
func (h *VersionHandler) DownloadURL(c *gin.Context) {
	result, err := h.service.DownloadURL(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "download url issued", result)
}
