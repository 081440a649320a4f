package models

import "time"

// DocumentStatus tracks document lifecycle.
type DocumentStatus string

const (
	DocumentStatusActive   DocumentStatus = "active"
	DocumentStatusArchived DocumentStatus = "archived"
	DocumentStatusDraft    DocumentStatus = "draft"
)

// Document is the registry row; CurrentVersionID always points at one of its versions.
type Document struct {
	ID               string         `db:"id" json:"id"`
	Title            string         `db:"title" json:"title"`
	Description      string         `db:"description" json:"description"`
	Department       string         `db:"department" json:"department"`
	Departmental     bool           `db:"departmental" json:"departmental"`
	FolderID         *string        `db:"folder_id" json:"folderId,omitempty"`
	CurrentVersion   int            `db:"current_version" json:"currentVersion"`
	CurrentVersionID *string        `db:"current_version_id" json:"currentVersionId,omitempty"`
	Public           bool           `db:"public" json:"public"`
	UploadedBy       string         `db:"uploaded_by" json:"uploadedBy"`
	Status           DocumentStatus `db:"status" json:"status"`
	Tags             []string       `db:"-" json:"tags"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updatedAt"`
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	FolderID *string
	Unfiled  bool
	Status   DocumentStatus
	Tag      string
	Search   string
	Limit    int
	Offset   int
}

// DocumentDetail is a document with its current version and the caller's access.
type DocumentDetail struct {
	Document
	Current *DocumentVersion `json:"currentVersionDetail,omitempty"`
	Access  AccessSummary    `json:"access"`
}
