package models

import "time"

// FolderKind classifies a folder at creation time.
type FolderKind string

const (
	FolderKindRoot       FolderKind = "root"
	FolderKindDepartment FolderKind = "department"
	FolderKindPersonal   FolderKind = "personal"
	FolderKindUser       FolderKind = "user"
)

// FolderStatus tracks folder lifecycle.
type FolderStatus string

const (
	FolderStatusActive   FolderStatus = "active"
	FolderStatusArchived FolderStatus = "archived"
)

// PersonalFolderName is the reserved name of every employee's personal root.
const PersonalFolderName = "personal"

// Folder is a node of the document hierarchy.
type Folder struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	ParentID     *string      `db:"parent_id" json:"parentId,omitempty"`
	Department   string       `db:"department" json:"department"`
	Public       bool         `db:"public" json:"public"`
	Departmental bool         `db:"departmental" json:"departmental"`
	Status       FolderStatus `db:"status" json:"status"`
	OwnerID      string       `db:"owner_id" json:"ownerId"`
	Kind         FolderKind   `db:"kind" json:"kind"`
	Protected    bool         `db:"protected" json:"protected"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

// FolderFilter narrows folder listings.
type FolderFilter struct {
	ParentID   *string
	RootsOnly  bool
	Status     FolderStatus
	Department string
}

// FolderDetail decorates a folder with derived visibility.
type FolderDetail struct {
	Folder
	EffectivePublic bool `json:"effectivePublic"`
}
