package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	"github.com/noah-isme/ems-docs-api/pkg/response"
)

type sharedLinkService interface {
	Create(ctx context.Context, documentID string, req dto.CreateSharedLinkRequest, actor *models.JWTClaims) (*models.DocumentSharedLink, error)
	List(ctx context.Context, documentID string, actor *models.JWTClaims) ([]models.DocumentSharedLink, error)
	Revoke(ctx context.Context, documentID, linkID string, actor *models.JWTClaims) error
	Resolve(ctx context.Context, token string) (*dto.SharedDocumentResponse, error)
}

// SharedLinkHandler manages token links and serves them to anonymous holders.
type SharedLinkHandler struct {
	service sharedLinkService
}

// NewSharedLinkHandler builds a new handler.
func NewSharedLinkHandler(service sharedLinkService) *SharedLinkHandler {
	return &SharedLinkHandler{service: service}
}

// Create godoc
// @Summary Create a shared link
// @Tags SharedLinks
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.CreateSharedLinkRequest false "Link options"
// @Success 201 {object} response.Envelope
// @Router /documents/{id}/links [post]
func (h *SharedLinkHandler) Create(c *gin.Context) {
	var req dto.CreateSharedLinkRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "invalid link payload"))
			return
		}
	}
	link, err := h.service.Create(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "link created", link)
}

// List godoc
// @Summary List shared links of a document
// @Tags SharedLinks
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/links [get]
func (h *SharedLinkHandler) List(c *gin.Context) {
	links, err := h.service.List(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "links loaded", links)
}

// Revoke godoc
// @Summary Revoke a shared link
// @Tags SharedLinks
// @Produce json
// @Param id path string true "Document ID"
// @Param linkId path string true "Link ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/links/{linkId} [delete]
func (h *SharedLinkHandler) Revoke(c *gin.Context) {
	if err := h.service.Revoke(c.Request.Context(), c.Param("id"), c.Param("linkId"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "link revoked", nil)
}

// Resolve godoc
// @Summary Open a shared link without signing in
// @Tags SharedLinks
// @Produce json
// @Param token path string true "Link token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /shared/{token} [get]
func (h *SharedLinkHandler) Resolve(c *gin.Context) {
	shared, err := h.service.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "shared document", shared)
}
