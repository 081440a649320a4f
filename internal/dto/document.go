package dto

import (
	"time"

	"github.com/noah-isme/ems-docs-api/internal/models"
)

// FileRequest describes a blob already uploaded through the presign flow.
type FileRequest struct {
	FilePath string `json:"filePath" validate:"required,max=1024"`
	FileSize int64  `json:"fileSize" validate:"gte=0"`
	MimeType string `json:"mimeType" validate:"required,max=255"`
}

// CreateDocumentRequest registers a document together with its first version.
type CreateDocumentRequest struct {
	Title        string      `json:"title" validate:"required,max=255"`
	Description  string      `json:"description" validate:"max=2000"`
	Department   string      `json:"department" validate:"max=120"`
	FolderID     *string     `json:"folderId" validate:"omitempty,min=1"`
	Tags         []string    `json:"tags" validate:"max=20,dive,required,max=50"`
	Public       bool        `json:"public"`
	Departmental bool        `json:"departmental"`
	Draft        bool        `json:"draft"`
	File         FileRequest `json:"file" validate:"required"`
}

// UpdateDocumentRequest changes document metadata; omitted fields are kept.
type UpdateDocumentRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	Department  *string   `json:"department" validate:"omitempty,max=120"`
	FolderID    *string   `json:"folderId" validate:"omitempty,min=1"`
	Unfile      bool      `json:"unfile"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
}

// DocumentListQuery captures list filters from the query string.
type DocumentListQuery struct {
	FolderID string                `form:"folderId"`
	Unfiled  bool                  `form:"unfiled"`
	Status   models.DocumentStatus `form:"status" validate:"omitempty,oneof=active archived draft"`
	Tag      string                `form:"tag"`
	Search   string                `form:"q"`
	Page     int                   `form:"page" validate:"gte=0"`
	PageSize int                   `form:"pageSize" validate:"gte=0,lte=100"`
}

// DocumentListItem is a document annotated with the caller's effective access.
type DocumentListItem struct {
	models.Document
	Access models.AccessLevel `json:"access"`
}

// UploadVersionRequest adds a new version from an uploaded blob.
type UploadVersionRequest struct {
	File FileRequest `json:"file" validate:"required"`
}

// DownloadURLResponse carries a short lived signed download URL.
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
