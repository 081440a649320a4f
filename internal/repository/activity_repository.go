package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ems-docs-api/internal/models"
)

// ActivityRepository persists append-only comments and history logs.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// CreateComment appends a comment.
func (r *ActivityRepository) CreateComment(ctx context.Context, comment *models.DocumentComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO document_comments (id, document_id, user_id, content, created_at)
	VALUES (:id, :document_id, :user_id, :content, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListComments returns comments newest first.
func (r *ActivityRepository) ListComments(ctx context.Context, documentID string, limit, offset int) ([]models.DocumentComment, error) {
	limit, offset = clampPage(limit, offset, 200)
	const query = `SELECT id, document_id, user_id, content, created_at FROM document_comments
	WHERE document_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	comments := make([]models.DocumentComment, 0)
	if err := r.db.SelectContext(ctx, &comments, query, documentID, limit, offset); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// CreateLog appends a history entry.
func (r *ActivityRepository) CreateLog(ctx context.Context, entry *models.DocumentLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO document_logs (id, document_id, user_id, action, details, created_at)
	VALUES (:id, :document_id, :user_id, :action, :details, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create document log: %w", err)
	}
	return nil
}

// ListLogs returns history entries newest first together with the total count.
func (r *ActivityRepository) ListLogs(ctx context.Context, documentID string, limit, offset int) ([]models.DocumentLog, int, error) {
	limit, offset = clampPage(limit, offset, 1000)
	const query = `SELECT id, document_id, user_id, action, details, created_at FROM document_logs
	WHERE document_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	logs := make([]models.DocumentLog, 0)
	if err := r.db.SelectContext(ctx, &logs, query, documentID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list document logs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM document_logs WHERE document_id = $1`, documentID); err != nil {
		return nil, 0, fmt.Errorf("count document logs: %w", err)
	}
	return logs, total, nil
}

func clampPage(limit, offset, max int) (int, int) {
	if limit <= 0 || limit > max {
		limit = 50
		if max < limit {
			limit = max
		}
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
