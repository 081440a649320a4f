package dto

import "time"

// PresignRequest asks for a direct upload URL.
type PresignRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,max=255"`
	Size        int64  `json:"size" validate:"required,gt=0"`
}

// PresignResponse tells the client where to PUT the bytes and how to reference them afterwards.
type PresignResponse struct {
	PresignedURL string    `json:"presignedUrl"`
	Key          string    `json:"key"`
	PublicURL    string    `json:"publicUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// UploadResult is returned once the bytes are stored.
type UploadResult struct {
	Key       string `json:"key"`
	PublicURL string `json:"publicUrl"`
	Size      int64  `json:"size"`
}
