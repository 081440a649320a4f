package models

import "time"

// Employee is a person that documents can be shared with.
type Employee struct {
	ID         string    `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	FullName   string    `db:"full_name" json:"fullName"`
	Department string    `db:"department" json:"department"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// EmployeeCandidate is a trimmed employee row returned by the share picker.
type EmployeeCandidate struct {
	ID         string `db:"id" json:"id"`
	Email      string `db:"email" json:"email"`
	FullName   string `db:"full_name" json:"fullName"`
	Department string `db:"department" json:"department"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}
