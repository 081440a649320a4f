package dto

import "github.com/noah-isme/ems-docs-api/internal/models"

// AddShareRequest shares a document with an employee identified by email.
type AddShareRequest struct {
	Email string `json:"email" validate:"required,email"`
	Level string `json:"level" validate:"required,oneof=view edit manage"`
}

// TogglePublicRequest sets the public flag.
type TogglePublicRequest struct {
	Public *bool `json:"public" validate:"required"`
}

// DepartmentAccessRequest enables or disables departmental access.
type DepartmentAccessRequest struct {
	Enabled *bool  `json:"enabled" validate:"required"`
	Level   string `json:"level" validate:"omitempty,oneof=view edit manage"`
}

// EmployeeSearchResponse echoes the query so clients can discard stale responses.
type EmployeeSearchResponse struct {
	Query   string                     `json:"query"`
	Results []models.EmployeeCandidate `json:"results"`
}

// SharingState summarises the permissions tab of a document.
type SharingState struct {
	DocumentID      string              `json:"documentId"`
	Public          bool                `json:"public"`
	Departmental    bool                `json:"departmental"`
	Department      string              `json:"department"`
	DepartmentLevel *models.AccessLevel `json:"departmentLevel,omitempty"`
	Shares          []models.ShareEntry `json:"shares"`
}
