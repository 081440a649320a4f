package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ems-docs-api/internal/models"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
)

// Success is the payload of a successful action.
type Success struct {
	Reason     string             `json:"reason"`
	Data       interface{}        `json:"data,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

// Envelope is the tagged result contract: exactly one of Success or Error is set.
type Envelope struct {
	Success *Success               `json:"success,omitempty"`
	Error   *appErrors.Error       `json:"error,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, reason string, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	envelope := Envelope{Success: &Success{Reason: reason, Data: data, Pagination: pagination}}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, reason string, data interface{}) {
	JSON(c, http.StatusOK, reason, data, nil)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, reason string, data interface{}) {
	JSON(c, http.StatusCreated, reason, data, nil)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, Envelope{Error: appErr})
}
