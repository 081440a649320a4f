package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/ems-docs-api/internal/models"
)

const documentColumns = `id, title, description, department, departmental, folder_id, current_version, current_version_id,
       public, uploaded_by, status, created_at, updated_at`

// DocumentVisibility limits listings to documents a caller can at least view.
type DocumentVisibility struct {
	UserID     string
	Department string
	All        bool
}

// DocumentRepository persists documents and their tags.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create stores a document together with its first version and points the document at it.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document, version *models.DocumentVersion) (err error) {
	now := time.Now().UTC()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if doc.Status == "" {
		doc.Status = models.DocumentStatusActive
	}
	doc.CreatedAt, doc.UpdatedAt = now, now
	doc.CurrentVersion = 1
	doc.CurrentVersionID = &version.ID
	version.DocumentID = doc.ID
	version.VersionNumber = 1
	version.CreatedAt, version.UpdatedAt = now, now
	if version.UploadedBy == "" {
		version.UploadedBy = doc.UploadedBy
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertDocument = `INSERT INTO documents (id, title, description, department, departmental, folder_id, current_version,
	current_version_id, public, uploaded_by, status, created_at, updated_at)
	VALUES (:id, :title, :description, :department, :departmental, :folder_id, :current_version,
	:current_version_id, :public, :uploaded_by, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertDocument, doc); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx, insertVersionQuery, version); err != nil {
		return fmt.Errorf("insert initial version: %w", err)
	}
	if err = replaceTags(ctx, tx, doc.ID, doc.Tags, false); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit document: %w", err)
	}
	return nil
}

// GetByID loads a document and its tags.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	tags, err := r.TagsFor(ctx, []string{doc.ID})
	if err != nil {
		return nil, err
	}
	doc.Tags = tags[doc.ID]
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	return &doc, nil
}

// List returns documents matching the filter and the total count before paging.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter, visibility DocumentVisibility) ([]models.Document, int, error) {
	args := make([]interface{}, 0, 8)
	conditions := make([]string, 0, 6)

	switch {
	case filter.FolderID != nil:
		args = append(args, *filter.FolderID)
		conditions = append(conditions, fmt.Sprintf("folder_id = $%d", len(args)))
	case filter.Unfiled:
		conditions = append(conditions, "folder_id IS NULL")
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, strings.ToLower(filter.Tag))
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM document_tags t WHERE t.document_id = documents.id AND t.tag = $%d)", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if !visibility.All {
		args = append(args, visibility.UserID)
		userArg := len(args)
		args = append(args, visibility.Department)
		deptArg := len(args)
		conditions = append(conditions, fmt.Sprintf(`(uploaded_by = $%[1]d OR public = TRUE
	OR (departmental = TRUE AND department = $%[2]d AND department <> '')
	OR EXISTS (SELECT 1 FROM document_access a WHERE a.document_id = documents.id AND a.user_id = $%[1]d))`, userArg, deptArg))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	listQuery := fmt.Sprintf("SELECT %s FROM documents%s ORDER BY updated_at DESC LIMIT %d OFFSET %d", documentColumns, where, limit, offset)
	docs := make([]models.Document, 0)
	if err := r.db.SelectContext(ctx, &docs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM documents"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	if len(docs) == 0 {
		return docs, total, nil
	}
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}
	tags, err := r.TagsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range docs {
		docs[i].Tags = tags[docs[i].ID]
		if docs[i].Tags == nil {
			docs[i].Tags = []string{}
		}
	}
	return docs, total, nil
}

// TagsFor returns the tags of each requested document.
func (r *DocumentRepository) TagsFor(ctx context.Context, documentIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(documentIDs))
	if len(documentIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		DocumentID string `db:"document_id"`
		Tag        string `db:"tag"`
	}
	const query = `SELECT document_id, tag FROM document_tags WHERE document_id = ANY($1) ORDER BY tag ASC`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(documentIDs)); err != nil {
		return nil, fmt.Errorf("load document tags: %w", err)
	}
	for _, row := range rows {
		result[row.DocumentID] = append(result[row.DocumentID], row.Tag)
	}
	return result, nil
}

// Update persists metadata changes and optionally replaces the tag set.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document, withTags bool) (err error) {
	doc.UpdatedAt = time.Now().UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE documents SET title = :title, description = :description, department = :department,
	folder_id = :folder_id, updated_at = :updated_at WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, doc)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if err = requireAffected(res, "update document"); err != nil {
		return err
	}
	if doc.Department != "" {
		// the department grant follows the document to its new department
		const moveGrant = `UPDATE document_access SET department = $2, updated_at = $3
		WHERE document_id = $1 AND department IS NOT NULL AND department <> $2`
		if _, err = tx.ExecContext(ctx, moveGrant, doc.ID, doc.Department, doc.UpdatedAt); err != nil {
			return fmt.Errorf("move department access: %w", err)
		}
	}
	if withTags {
		if err = replaceTags(ctx, tx, doc.ID, doc.Tags, true); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit document update: %w", err)
	}
	return nil
}

// SetPublic flips the public flag.
func (r *DocumentRepository) SetPublic(ctx context.Context, id string, public bool) error {
	const query = `UPDATE documents SET public = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, public, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set document public: %w", err)
	}
	return requireAffected(res, "set document public")
}

// SetDepartmental flips the departmental flag.
func (r *DocumentRepository) SetDepartmental(ctx context.Context, id string, departmental bool) error {
	const query = `UPDATE documents SET departmental = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, departmental, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set document departmental: %w", err)
	}
	return requireAffected(res, "set document departmental")
}

// UpdateStatus moves a document to a new lifecycle status.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	const query = `UPDATE documents SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireAffected(res, "update document status")
}

// Delete removes a document and every child row, returning the blob paths that were referenced.
func (r *DocumentRepository) Delete(ctx context.Context, id string) (paths []string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin document delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	paths = make([]string, 0)
	if err = tx.SelectContext(ctx, &paths, `SELECT file_path FROM document_versions WHERE document_id = $1`, id); err != nil {
		return nil, fmt.Errorf("collect version paths: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete document: %w", err)
	}
	if err = requireAffected(res, "delete document"); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit document delete: %w", err)
	}
	return paths, nil
}

func replaceTags(ctx context.Context, tx *sqlx.Tx, documentID string, tags []string, clear bool) error {
	if clear {
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = $1`, documentID); err != nil {
			return fmt.Errorf("clear document tags: %w", err)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	const query = `INSERT INTO document_tags (document_id, tag) SELECT $1, UNNEST($2::text[]) ON CONFLICT DO NOTHING`
	if _, err := tx.ExecContext(ctx, query, documentID, pq.Array(tags)); err != nil {
		return fmt.Errorf("insert document tags: %w", err)
	}
	return nil
}
