package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	"github.com/noah-isme/ems-docs-api/pkg/response"
)

type folderService interface {
	Create(ctx context.Context, req dto.CreateFolderRequest, actor *models.JWTClaims) (*models.FolderDetail, error)
	EnsureSystemFolders(ctx context.Context, actor *models.JWTClaims) ([]models.Folder, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.FolderDetail, error)
	List(ctx context.Context, query dto.FolderListQuery, actor *models.JWTClaims) ([]models.FolderDetail, error)
	Update(ctx context.Context, id string, req dto.UpdateFolderRequest, actor *models.JWTClaims) (*models.FolderDetail, error)
	Archive(ctx context.Context, id string, actor *models.JWTClaims) (*models.FolderDetail, error)
	Restore(ctx context.Context, id string, actor *models.JWTClaims) (*models.FolderDetail, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// FolderHandler exposes folder hierarchy endpoints.
type FolderHandler struct {
	service folderService
}

// NewFolderHandler builds a new handler.
func NewFolderHandler(service folderService) *FolderHandler {
	return &FolderHandler{service: service}
}

// Create godoc
// @Summary Create a folder
// @Tags Folders
// @Accept json
// @Produce json
// @Param payload body dto.CreateFolderRequest true "Folder payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /folders [post]
func (h *FolderHandler) Create(c *gin.Context) {
	var req dto.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid folder payload"))
		return
	}
	folder, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "folder created", folder)
}

// EnsureSystem godoc
// @Summary Create the caller's personal and department folders when missing
// @Tags Folders
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /folders/system [post]
func (h *FolderHandler) EnsureSystem(c *gin.Context) {
	folders, err := h.service.EnsureSystemFolders(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "system folders ready", folders)
}

// List godoc
// @Summary List folders under a parent, or root folders
// @Tags Folders
// @Produce json
// @Param parentId query string false "Parent folder"
// @Param status query string false "active or archived"
// @Success 200 {object} response.Envelope
// @Router /folders [get]
func (h *FolderHandler) List(c *gin.Context) {
	var query dto.FolderListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	folders, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "folders loaded", folders)
}

// Get godoc
// @Summary Get a folder with its effective public flag
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Router /folders/{id} [get]
func (h *FolderHandler) Get(c *gin.Context) {
	folder, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "folder loaded", folder)
}

// Update godoc
// @Summary Rename a folder or toggle its flags
// @Tags Folders
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Param payload body dto.UpdateFolderRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /folders/{id} [patch]
func (h *FolderHandler) Update(c *gin.Context) {
	var req dto.UpdateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid folder payload"))
		return
	}
	folder, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "folder updated", folder)
}

// Archive godoc
// @Summary Archive a folder
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Router /folders/{id}/archive [post]
func (h *FolderHandler) Archive(c *gin.Context) {
	folder, err := h.service.Archive(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "folder archived", folder)
}

// Restore godoc
// @Summary Restore an archived folder
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Router /folders/{id}/restore [post]
func (h *FolderHandler) Restore(c *gin.Context) {
	folder, err := h.service.Restore(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "folder restored", folder)
}

// Delete godoc
// @Summary Delete a folder; documents inside are unfiled
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Router /folders/{id} [delete]
func (h *FolderHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "folder deleted", nil)
}
