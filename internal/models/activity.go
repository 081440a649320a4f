package models

import "time"

// Document log actions.
const (
	LogActionCreated                 = "created"
	LogActionUpdated                 = "updated"
	LogActionVersionUploaded         = "version_uploaded"
	LogActionVersionDeleted          = "version_deleted"
	LogActionShareAdded              = "share_added"
	LogActionShareRemoved            = "share_removed"
	LogActionPublicToggled           = "public_toggled"
	LogActionDepartmentAccessUpdated = "department_access_updated"
	LogActionArchived                = "archived"
	LogActionRestored                = "restored"
	LogActionPublished               = "published"
	LogActionCommented               = "commented"
	LogActionLinkCreated             = "shared_link_created"
	LogActionLinkRevoked             = "shared_link_revoked"
)

// DocumentComment is an append-only remark on a document.
type DocumentComment struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"documentId"`
	UserID     string    `db:"user_id" json:"userId"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// DocumentLog is an append-only history entry.
type DocumentLog struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"documentId"`
	UserID     string    `db:"user_id" json:"userId"`
	Action     string    `db:"action" json:"action"`
	Details    string    `db:"details" json:"details"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
