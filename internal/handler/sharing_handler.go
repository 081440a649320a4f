package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	"github.com/noah-isme/ems-docs-api/pkg/response"
)

type sharingService interface {
	State(ctx context.Context, documentID string, actor *models.JWTClaims) (*dto.SharingState, error)
	AddShare(ctx context.Context, documentID string, req dto.AddShareRequest, actor *models.JWTClaims) (*models.DocumentAccess, error)
	RemoveShare(ctx context.Context, documentID, userID string, actor *models.JWTClaims) error
	TogglePublic(ctx context.Context, documentID string, req dto.TogglePublicRequest, actor *models.JWTClaims) (*dto.SharingState, error)
	UpdateDepartmentAccess(ctx context.Context, documentID string, req dto.DepartmentAccessRequest, actor *models.JWTClaims) (*dto.SharingState, error)
	SearchEmployees(ctx context.Context, query string, actor *models.JWTClaims) (*dto.EmployeeSearchResponse, error)
}

// SharingHandler exposes the permissions tab of a document.
type SharingHandler struct {
	service sharingService
}

// NewSharingHandler builds a new handler.
func NewSharingHandler(service sharingService) *SharingHandler {
	return &SharingHandler{service: service}
}

// State godoc
// @Summary Sharing state: flags, department level and user shares
// @Tags Sharing
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/sharing [get]
func (h *SharingHandler) State(c *gin.Context) {
	state, err := h.service.State(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "sharing loaded", state)
}

// AddShare godoc
// @Summary Share a document with an employee
// @Tags Sharing
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.AddShareRequest true "Share payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/shares [post]
func (h *SharingHandler) AddShare(c *gin.Context) {
	var req dto.AddShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid share payload"))
		return
	}
	row, err := h.service.AddShare(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "share saved", row)
}

// RemoveShare godoc
// @Summary Remove a user share
// @Tags Sharing
// @Produce json
// @Param id path string true "Document ID"
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/shares/{userId} [delete]
func (h *SharingHandler) RemoveShare(c *gin.Context) {
	if err := h.service.RemoveShare(c.Request.Context(), c.Param("id"), c.Param("userId"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "share removed", nil)
}

// TogglePublic godoc
// @Summary Set the public flag
// @Tags Sharing
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.TogglePublicRequest true "Public flag"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/public [put]
func (h *SharingHandler) TogglePublic(c *gin.Context) {
	var req dto.TogglePublicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid public payload"))
		return
	}
	state, err := h.service.TogglePublic(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "public flag updated", state)
}

// UpdateDepartmentAccess godoc
// @Summary Enable or disable departmental access
// @Tags Sharing
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.DepartmentAccessRequest true "Department access"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id}/department-access [put]
func (h *SharingHandler) UpdateDepartmentAccess(c *gin.Context) {
	var req dto.DepartmentAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid department access payload"))
		return
	}
	state, err := h.service.UpdateDepartmentAccess(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "department access updated", state)
}

// SearchEmployees godoc
// @Summary Find employees to share with
// @Tags Sharing
// @Produce json
// @Param q query string true "Name or email fragment"
// @Success 200 {object} response.Envelope
// @Router /employees/search [get]
func (h *SharingHandler) SearchEmployees(c *gin.Context) {
	result, err := h.service.SearchEmployees(c.Request.Context(), c.Query("q"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "employees found", result)
}
