package models

import (
	"fmt"
	"strings"
	"time"
)

// AccessLevel is the effective permission a caller holds on a document.
type AccessLevel string

const (
	AccessNone   AccessLevel = "none"
	AccessView   AccessLevel = "view"
	AccessEdit   AccessLevel = "edit"
	AccessManage AccessLevel = "manage"
)

// Rank orders levels so that none < view < edit < manage. Unknown values rank as none.
func (l AccessLevel) Rank() int {
	switch l {
	case AccessView:
		return 1
	case AccessEdit:
		return 2
	case AccessManage:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether l grants everything min grants.
func (l AccessLevel) AtLeast(min AccessLevel) bool {
	return l.Rank() >= min.Rank()
}

// Grantable reports whether the level can be stored on a share row.
func (l AccessLevel) Grantable() bool {
	return l == AccessView || l == AccessEdit || l == AccessManage
}

// MaxAccess returns the most permissive of the provided levels.
func MaxAccess(levels ...AccessLevel) AccessLevel {
	best := AccessNone
	for _, level := range levels {
		if level.Rank() > best.Rank() {
			best = level
		}
	}
	return best
}

// ParseAccessLevel normalises user input into a grantable level.
func ParseAccessLevel(raw string) (AccessLevel, error) {
	level := AccessLevel(strings.ToLower(strings.TrimSpace(raw)))
	if !level.Grantable() {
		return AccessNone, fmt.Errorf("unknown access level %q", raw)
	}
	return level, nil
}

// DocumentAccess is either a per-user share or a per-department grant; exactly one of UserID and Department is set.
type DocumentAccess struct {
	ID          string      `db:"id" json:"id"`
	DocumentID  string      `db:"document_id" json:"documentId"`
	UserID      *string     `db:"user_id" json:"userId,omitempty"`
	Department  *string     `db:"department" json:"department,omitempty"`
	AccessLevel AccessLevel `db:"access_level" json:"accessLevel"`
	GrantedBy   string      `db:"granted_by" json:"grantedBy"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

// ShareEntry is a user share joined with the employee it targets.
type ShareEntry struct {
	DocumentAccess
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"fullName"`
}

// AccessSummary describes what the caller may do with a document.
type AccessSummary struct {
	DocumentID        string      `json:"documentId"`
	Level             AccessLevel `json:"level"`
	IsOwner           bool        `json:"isOwner"`
	IsAdminDepartment bool        `json:"isAdminDepartment"`
	CanView           bool        `json:"canView"`
	CanEdit           bool        `json:"canEdit"`
	CanManage         bool        `json:"canManage"`
}
