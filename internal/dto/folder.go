package dto

// CreateFolderRequest creates a folder under an optional parent.
type CreateFolderRequest struct {
	Name         string  `json:"name" validate:"required,max=120"`
	ParentID     *string `json:"parentId" validate:"omitempty,min=1"`
	Department   string  `json:"department" validate:"max=120"`
	Public       bool    `json:"public"`
	Departmental bool    `json:"departmental"`
}

// UpdateFolderRequest renames or toggles folder flags.
type UpdateFolderRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=120"`
	Public       *bool   `json:"public"`
	Departmental *bool   `json:"departmental"`
}

// FolderListQuery captures folder list filters.
type FolderListQuery struct {
	ParentID string `form:"parentId"`
	Status   string `form:"status" validate:"omitempty,oneof=active archived"`
}
