package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/ems-docs-api/internal/models"
)

const accessColumns = `id, document_id, user_id, department, access_level, granted_by, created_at, updated_at`

// AccessRepository persists per-user shares and per-department grants.
type AccessRepository struct {
	db *sqlx.DB
}

// NewAccessRepository constructs the repository.
func NewAccessRepository(db *sqlx.DB) *AccessRepository {
	return &AccessRepository{db: db}
}

// ListByDocument returns every access row of a document.
func (r *AccessRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentAccess, error) {
	const query = `SELECT ` + accessColumns + ` FROM document_access WHERE document_id = $1 ORDER BY created_at ASC`
	rows := make([]models.DocumentAccess, 0)
	if err := r.db.SelectContext(ctx, &rows, query, documentID); err != nil {
		return nil, fmt.Errorf("list document access: %w", err)
	}
	return rows, nil
}

// ListByDocuments returns the access rows of several documents keyed by document id.
func (r *AccessRepository) ListByDocuments(ctx context.Context, documentIDs []string) (map[string][]models.DocumentAccess, error) {
	result := make(map[string][]models.DocumentAccess, len(documentIDs))
	if len(documentIDs) == 0 {
		return result, nil
	}
	const query = `SELECT ` + accessColumns + ` FROM document_access WHERE document_id = ANY($1)`
	rows := make([]models.DocumentAccess, 0)
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(documentIDs)); err != nil {
		return nil, fmt.Errorf("list access for documents: %w", err)
	}
	for _, row := range rows {
		result[row.DocumentID] = append(result[row.DocumentID], row)
	}
	return result, nil
}

// ListShares returns user shares joined with the target employee.
func (r *AccessRepository) ListShares(ctx context.Context, documentID string) ([]models.ShareEntry, error) {
	const query = `SELECT a.id, a.document_id, a.user_id, a.department, a.access_level, a.granted_by, a.created_at, a.updated_at,
       e.email, e.full_name
	FROM document_access a JOIN employees e ON e.id = a.user_id
	WHERE a.document_id = $1 AND a.user_id IS NOT NULL
	ORDER BY e.full_name ASC`
	entries := make([]models.ShareEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, documentID); err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return entries, nil
}

// UpsertUser inserts a user share or overwrites the level of the existing one.
func (r *AccessRepository) UpsertUser(ctx context.Context, access *models.DocumentAccess) error {
	if access.UserID == nil {
		return fmt.Errorf("upsert user share: user id required")
	}
	access.Department = nil
	const query = `INSERT INTO document_access (` + accessColumns + `)
	VALUES ($1, $2, $3, NULL, $4, $5, $6, $6)
	ON CONFLICT (document_id, user_id) WHERE user_id IS NOT NULL
	DO UPDATE SET access_level = EXCLUDED.access_level, granted_by = EXCLUDED.granted_by, updated_at = EXCLUDED.updated_at
	RETURNING id, created_at, updated_at`
	return r.upsert(ctx, query, access, *access.UserID)
}

// UpsertDepartment inserts a department grant or overwrites the level of the existing one.
func (r *AccessRepository) UpsertDepartment(ctx context.Context, access *models.DocumentAccess) error {
	if access.Department == nil {
		return fmt.Errorf("upsert department access: department required")
	}
	access.UserID = nil
	const query = `INSERT INTO document_access (` + accessColumns + `)
	VALUES ($1, $2, NULL, $3, $4, $5, $6, $6)
	ON CONFLICT (document_id, department) WHERE department IS NOT NULL
	DO UPDATE SET access_level = EXCLUDED.access_level, granted_by = EXCLUDED.granted_by, updated_at = EXCLUDED.updated_at
	RETURNING id, created_at, updated_at`
	return r.upsert(ctx, query, access, *access.Department)
}

func (r *AccessRepository) upsert(ctx context.Context, query string, access *models.DocumentAccess, principal string) error {
	if access.ID == "" {
		access.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	row := r.db.QueryRowxContext(ctx, query, access.ID, access.DocumentID, principal, access.AccessLevel, access.GrantedBy, now)
	if err := row.Scan(&access.ID, &access.CreatedAt, &access.UpdatedAt); err != nil {
		return fmt.Errorf("upsert document access: %w", err)
	}
	return nil
}

// DeleteUser removes a user share and reports whether a row existed.
func (r *AccessRepository) DeleteUser(ctx context.Context, documentID, userID string) (bool, error) {
	const query = `DELETE FROM document_access WHERE document_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, documentID, userID)
	if err != nil {
		return false, fmt.Errorf("delete user share: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete user share rows: %w", err)
	}
	return affected > 0, nil
}
