package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ems-docs-api/internal/models"
)

const folderColumns = `id, name, parent_id, department, public, departmental, status, owner_id, kind, protected, created_at, updated_at`

// FolderRepository persists the document folder hierarchy.
type FolderRepository struct {
	db *sqlx.DB
}

// NewFolderRepository constructs the repository.
func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

// Create inserts a folder row.
func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = now
	}
	folder.UpdatedAt = now
	if folder.Status == "" {
		folder.Status = models.FolderStatusActive
	}
	const query = `INSERT INTO document_folders (` + folderColumns + `)
	VALUES (:id, :name, :parent_id, :department, :public, :departmental, :status, :owner_id, :kind, :protected, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, folder); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

// GetByID retrieves a folder.
func (r *FolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	const query = `SELECT ` + folderColumns + ` FROM document_folders WHERE id = $1`
	var folder models.Folder
	if err := r.db.GetContext(ctx, &folder, query, id); err != nil {
		return nil, err
	}
	return &folder, nil
}

// FindSystem returns the personal folder of an owner or the folder of a department.
func (r *FolderRepository) FindSystem(ctx context.Context, kind models.FolderKind, ownerID, department string) (*models.Folder, error) {
	var (
		query string
		arg   string
	)
	switch kind {
	case models.FolderKindPersonal:
		query = `SELECT ` + folderColumns + ` FROM document_folders WHERE kind = 'personal' AND owner_id = $1 LIMIT 1`
		arg = ownerID
	case models.FolderKindDepartment:
		query = `SELECT ` + folderColumns + ` FROM document_folders WHERE kind = 'department' AND department = $1 LIMIT 1`
		arg = department
	default:
		return nil, fmt.Errorf("folder kind %s is not a system folder", kind)
	}
	var folder models.Folder
	if err := r.db.GetContext(ctx, &folder, query, arg); err != nil {
		return nil, err
	}
	return &folder, nil
}

// List returns folders matching the filter ordered by name.
func (r *FolderRepository) List(ctx context.Context, filter models.FolderFilter) ([]models.Folder, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + folderColumns + ` FROM document_folders`)
	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 3)

	switch {
	case filter.ParentID != nil:
		args = append(args, *filter.ParentID)
		conditions = append(conditions, fmt.Sprintf("parent_id = $%d", len(args)))
	case filter.RootsOnly:
		conditions = append(conditions, "parent_id IS NULL")
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY name ASC")

	folders := make([]models.Folder, 0)
	if err := r.db.SelectContext(ctx, &folders, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

// Update persists mutable folder attributes.
func (r *FolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	folder.UpdatedAt = time.Now().UTC()
	const query = `UPDATE document_folders SET name = :name, public = :public, departmental = :departmental,
	status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, folder)
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}
	return requireAffected(res, "update folder")
}

// Delete removes a folder. Child folders cascade and contained documents become unfiled.
func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM document_folders WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	return requireAffected(res, "delete folder")
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
