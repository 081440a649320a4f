package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	"github.com/noah-isme/ems-docs-api/internal/service"
	"github.com/noah-isme/ems-docs-api/pkg/response"
)

type uploadService interface {
	Presign(ctx context.Context, req dto.PresignRequest, actor *models.JWTClaims) (*dto.PresignResponse, error)
	Put(ctx context.Context, token string, body io.Reader, contentType string) (*dto.UploadResult, error)
	Open(ctx context.Context, key, token string) (*service.BlobDownload, error)
}

// UploadHandler exposes the presigned upload flow and signed file downloads.
type UploadHandler struct {
	service uploadService
}

// NewUploadHandler builds a new handler.
func NewUploadHandler(service uploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

// Presign godoc
// @Summary Request a presigned upload URL
// @Tags Uploads
// @Accept json
// @Produce json
// @Param payload body dto.PresignRequest true "Intended upload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /uploads/presign [post]
func (h *UploadHandler) Presign(c *gin.Context) {
	var req dto.PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid upload request"))
		return
	}
	result, err := h.service.Presign(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "upload url issued", result)
}

// Put godoc
// @Summary Upload file bytes to a presigned URL
// @Tags Uploads
// @Accept application/octet-stream
// @Produce json
// @Param token path string true "Upload token"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /uploads/{token} [put]
func (h *UploadHandler) Put(c *gin.Context) {
	result, err := h.service.Put(c.Request.Context(), c.Param("token"), c.Request.Body, c.ContentType())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "file stored", result)
}

// Download godoc
// @Summary Stream a stored file
// @Tags Uploads
// @Produce octet-stream
// @Param key path string true "Object key"
// @Param token query string true "Download token"
// @Success 200 {file} file
// @Router /files/{key} [get]
func (h *UploadHandler) Download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	blob, err := h.service.Open(c.Request.Context(), key, c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer blob.Reader.Close()
	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", blob.Filename),
		"Cache-Control":       "private, max-age=60",
	}
	c.DataFromReader(http.StatusOK, blob.Size, blob.ContentType, blob.Reader, headers)
}
