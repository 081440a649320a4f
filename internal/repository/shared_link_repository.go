package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ems-docs-api/internal/models"
)

const sharedLinkColumns = `id, document_id, token, expires_at, access_level, created_by, created_at`

// SharedLinkRepository persists token based document links.
type SharedLinkRepository struct {
	db *sqlx.DB
}

// NewSharedLinkRepository constructs the repository.
func NewSharedLinkRepository(db *sqlx.DB) *SharedLinkRepository {
	return &SharedLinkRepository{db: db}
}

// Create stores a new link.
func (r *SharedLinkRepository) Create(ctx context.Context, link *models.DocumentSharedLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO document_shared_link (` + sharedLinkColumns + `)
	VALUES (:id, :document_id, :token, :expires_at, :access_level, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("create shared link: %w", err)
	}
	return nil
}

// GetByToken resolves a link by its token.
func (r *SharedLinkRepository) GetByToken(ctx context.Context, token string) (*models.DocumentSharedLink, error) {
	const query = `SELECT ` + sharedLinkColumns + ` FROM document_shared_link WHERE token = $1`
	var link models.DocumentSharedLink
	if err := r.db.GetContext(ctx, &link, query, token); err != nil {
		return nil, err
	}
	return &link, nil
}

// ListByDocument returns the links of a document newest first.
func (r *SharedLinkRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentSharedLink, error) {
	const query = `SELECT ` + sharedLinkColumns + ` FROM document_shared_link WHERE document_id = $1 ORDER BY created_at DESC`
	links := make([]models.DocumentSharedLink, 0)
	if err := r.db.SelectContext(ctx, &links, query, documentID); err != nil {
		return nil, fmt.Errorf("list shared links: %w", err)
	}
	return links, nil
}

// Delete revokes a link scoped to its document; missing links are not an error.
func (r *SharedLinkRepository) Delete(ctx context.Context, documentID, id string) error {
	const query = `DELETE FROM document_shared_link WHERE document_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, documentID, id); err != nil {
		return fmt.Errorf("delete shared link: %w", err)
	}
	return nil
}
