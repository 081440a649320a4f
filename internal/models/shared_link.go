package models

import "time"

// DocumentSharedLink grants token based access without a session.
type DocumentSharedLink struct {
	ID          string       `db:"id" json:"id"`
	DocumentID  string       `db:"document_id" json:"documentId"`
	Token       string       `db:"token" json:"token"`
	ExpiresAt   *time.Time   `db:"expires_at" json:"expiresAt,omitempty"`
	AccessLevel *AccessLevel `db:"access_level" json:"accessLevel,omitempty"`
	CreatedBy   string       `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
}

// Expired reports whether the link is no longer usable at now.
func (l DocumentSharedLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// Level returns the link's level, defaulting to view.
func (l DocumentSharedLink) Level() AccessLevel {
	if l.AccessLevel == nil || !l.AccessLevel.Grantable() {
		return AccessView
	}
	return *l.AccessLevel
}
