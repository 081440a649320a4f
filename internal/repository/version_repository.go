package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ems-docs-api/internal/models"
)

// ErrVersionIsCurrent is returned when a delete targets the version a document points at.
var ErrVersionIsCurrent = errors.New("version is the current version of its document")

const versionColumns = `id, document_id, version_number, file_path, file_size, mime_type, uploaded_by, created_at, updated_at`

const insertVersionQuery = `INSERT INTO document_versions (` + versionColumns + `)
	VALUES (:id, :document_id, :version_number, :file_path, :file_size, :mime_type, :uploaded_by, :created_at, :updated_at)`

// VersionRepository persists document version history.
type VersionRepository struct {
	db *sqlx.DB
}

// NewVersionRepository constructs the repository.
func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Create appends a version numbered current+1 and promotes it to current in one transaction.
// The document row is locked so concurrent uploads serialise instead of colliding on the number.
func (r *VersionRepository) Create(ctx context.Context, version *models.DocumentVersion) (err error) {
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	version.CreatedAt, version.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin version transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current int
	const lockQuery = `SELECT current_version FROM documents WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, version.DocumentID); err != nil {
		return err
	}
	version.VersionNumber = current + 1

	if _, err = tx.NamedExecContext(ctx, insertVersionQuery, version); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	const promoteQuery = `UPDATE documents SET current_version = $2, current_version_id = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, promoteQuery, version.DocumentID, version.VersionNumber, version.ID, now); err != nil {
		return fmt.Errorf("promote version: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit version: %w", err)
	}
	return nil
}

// GetByID retrieves one version.
func (r *VersionRepository) GetByID(ctx context.Context, id string) (*models.DocumentVersion, error) {
	const query = `SELECT ` + versionColumns + ` FROM document_versions WHERE id = $1`
	var version models.DocumentVersion
	if err := r.db.GetContext(ctx, &version, query, id); err != nil {
		return nil, err
	}
	return &version, nil
}

// ListByDocument returns every version of a document, newest first.
func (r *VersionRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	const query = `SELECT ` + versionColumns + ` FROM document_versions WHERE document_id = $1 ORDER BY version_number DESC`
	versions := make([]models.DocumentVersion, 0)
	if err := r.db.SelectContext(ctx, &versions, query, documentID); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// Delete removes a non-current version. The guard is evaluated in the same statement as the delete.
// A missing version yields sql.ErrNoRows.
func (r *VersionRepository) Delete(ctx context.Context, id string) error {
	const query = `WITH target AS (
		SELECT v.id, EXISTS (SELECT 1 FROM documents d WHERE d.current_version_id = v.id) AS is_current
		FROM document_versions v WHERE v.id = $1
	), removed AS (
		DELETE FROM document_versions v USING target t
		WHERE v.id = t.id AND NOT t.is_current
		RETURNING v.id
	)
	SELECT t.is_current FROM target t`
	var isCurrent bool
	if err := r.db.QueryRowxContext(ctx, query, id).Scan(&isCurrent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("delete version: %w", err)
	}
	if isCurrent {
		return ErrVersionIsCurrent
	}
	return nil
}
