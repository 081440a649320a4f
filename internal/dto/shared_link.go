package dto

import (
	"time"

	"github.com/noah-isme/ems-docs-api/internal/models"
)

// CreateSharedLinkRequest creates a token link. Zero ExpiresInHours uses the configured default.
type CreateSharedLinkRequest struct {
	ExpiresInHours int    `json:"expiresInHours" validate:"gte=0,lte=8760"`
	Level          string `json:"level" validate:"omitempty,oneof=view edit"`
}

// SharedDocumentResponse is what an unauthenticated link holder receives.
type SharedDocumentResponse struct {
	Document    models.Document        `json:"document"`
	Version     models.DocumentVersion `json:"version"`
	Level       models.AccessLevel     `json:"level"`
	DownloadURL string                 `json:"downloadUrl"`
	ExpiresAt   time.Time              `json:"downloadExpiresAt"`
}
