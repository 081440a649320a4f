package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	"github.com/noah-isme/ems-docs-api/internal/repository"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
)

type documentStore interface {
	Create(ctx context.Context, doc *models.Document, version *models.DocumentVersion) error
	List(ctx context.Context, filter models.DocumentFilter, visibility repository.DocumentVisibility) ([]models.Document, int, error)
	Update(ctx context.Context, doc *models.Document, withTags bool) error
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error
	Delete(ctx context.Context, id string) ([]string, error)
}

type versionReader interface {
	GetByID(ctx context.Context, id string) (*models.DocumentVersion, error)
}

type folderReader interface {
	GetByID(ctx context.Context, id string) (*models.Folder, error)
}

type documentAccessResolver interface {
	documentAccessGuard
	Caller(actor *models.JWTClaims) models.Caller
	LevelsFor(ctx context.Context, docs []models.Document, actor *models.JWTClaims) (map[string]models.AccessLevel, error)
}

// DocumentServiceDeps groups collaborators of the document service.
type DocumentServiceDeps struct {
	Documents documentStore
	Versions  versionReader
	Folders   folderReader
	Access    documentAccessResolver
	Files     fileResolver
	Cleanup   blobScheduler
	Activity  activityRecorder
}

// DocumentService implements the document registry and its lifecycle.
type DocumentService struct {
	docs      documentStore
	versions  versionReader
	folders   folderReader
	access    documentAccessResolver
	files     fileResolver
	cleanup   blobScheduler
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDocumentService constructs the service.
func NewDocumentService(deps DocumentServiceDeps, validate *validator.Validate, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DocumentService{
		docs:      deps.Documents,
		versions:  deps.Versions,
		folders:   deps.Folders,
		access:    deps.Access,
		files:     deps.Files,
		cleanup:   deps.Cleanup,
		activity:  deps.Activity,
		validator: validate,
		logger:    logger,
	}
}

// Create registers a document with its first version. The caller becomes the owner.
func (s *DocumentService) Create(ctx context.Context, req dto.CreateDocumentRequest, actor *models.JWTClaims) (*models.DocumentDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Department = strings.TrimSpace(req.Department)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid document payload")
	}
	caller := s.access.Caller(actor)
	department := req.Department
	if department == "" {
		department = caller.Department
	}
	if req.Departmental && department == "" {
		return nil, appErrors.WithFields("invalid document payload", map[string]string{"department": "required when departmental access is enabled"})
	}
	if req.FolderID != nil {
		if err := s.checkFolder(ctx, *req.FolderID); err != nil {
			return nil, err
		}
	}
	meta, err := s.files.ResolveFile(ctx, req.File)
	if err != nil {
		return nil, err
	}

	status := models.DocumentStatusActive
	if req.Draft {
		status = models.DocumentStatusDraft
	}
	doc := &models.Document{
		Title:        req.Title,
		Description:  strings.TrimSpace(req.Description),
		Department:   department,
		Departmental: req.Departmental,
		FolderID:     req.FolderID,
		Public:       req.Public,
		UploadedBy:   caller.UserID,
		Status:       status,
		Tags:         normalizeTags(req.Tags),
	}
	version := &models.DocumentVersion{
		FilePath:   meta.FilePath,
		FileSize:   meta.SizeMB(),
		MimeType:   meta.MimeType,
		UploadedBy: caller.UserID,
	}
	if err := s.docs.Create(ctx, doc, version); err != nil {
		return nil, appErrors.Internal(err, "failed to create document")
	}
	s.record(ctx, doc.ID, caller.UserID, models.LogActionCreated, doc.Title)

	return &models.DocumentDetail{
		Document: *doc,
		Current:  version,
		Access: models.AccessSummary{
			DocumentID:        doc.ID,
			Level:             models.AccessManage,
			IsOwner:           true,
			IsAdminDepartment: caller.IsAdminDepartment,
			CanView:           true,
			CanEdit:           true,
			CanManage:         true,
		},
	}, nil
}

// Get returns a document, its current version and the caller's access. Requires view.
func (s *DocumentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.DocumentDetail, error) {
	doc, summary, err := s.access.Require(ctx, id, actor, models.AccessView)
	if err != nil {
		return nil, err
	}
	detail := &models.DocumentDetail{Document: *doc, Access: summary}
	if doc.CurrentVersionID != nil {
		current, err := s.versions.GetByID(ctx, *doc.CurrentVersionID)
		switch {
		case err == nil:
			detail.Current = current
		case errors.Is(err, sql.ErrNoRows):
			s.logger.Warn("current version missing", zap.String("document_id", doc.ID), zap.String("version_id", *doc.CurrentVersionID))
		default:
			return nil, appErrors.Internal(err, "failed to load current version")
		}
	}
	return detail, nil
}

// List returns the page of documents the caller can view, each annotated with its access level.
func (s *DocumentService) List(ctx context.Context, query dto.DocumentListQuery, actor *models.JWTClaims) ([]dto.DocumentListItem, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid document query")
	}
	caller := s.access.Caller(actor)
	limit, offset, page := pageBounds(query.Page, query.PageSize, 20)
	filter := models.DocumentFilter{
		Unfiled: query.Unfiled,
		Status:  query.Status,
		Tag:     strings.TrimSpace(query.Tag),
		Search:  query.Search,
		Limit:   limit,
		Offset:  offset,
	}
	if folderID := strings.TrimSpace(query.FolderID); folderID != "" {
		filter.FolderID = &folderID
	}
	visibility := repository.DocumentVisibility{
		UserID:     caller.UserID,
		Department: caller.Department,
		All:        caller.IsAdminDepartment,
	}

	docs, total, err := s.docs.List(ctx, filter, visibility)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list documents")
	}
	levels, err := s.access.LevelsFor(ctx, docs, actor)
	if err != nil {
		return nil, nil, err
	}
	items := make([]dto.DocumentListItem, 0, len(docs))
	for _, doc := range docs {
		level := levels[doc.ID]
		if !level.AtLeast(models.AccessView) {
			continue
		}
		items = append(items, dto.DocumentListItem{Document: doc, Access: level})
	}
	return items, &models.Pagination{Page: page, PageSize: limit, TotalCount: total}, nil
}

// Update changes document metadata. Requires edit.
func (s *DocumentService) Update(ctx context.Context, id string, req dto.UpdateDocumentRequest, actor *models.JWTClaims) (*models.DocumentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid document payload")
	}
	doc, _, err := s.access.Require(ctx, id, actor, models.AccessEdit)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0, 5)
	if req.Title != nil {
		doc.Title = strings.TrimSpace(*req.Title)
		changed = append(changed, "title")
	}
	if req.Description != nil {
		doc.Description = strings.TrimSpace(*req.Description)
		changed = append(changed, "description")
	}
	if req.Department != nil {
		doc.Department = strings.TrimSpace(*req.Department)
		changed = append(changed, "department")
	}
	switch {
	case req.Unfile:
		doc.FolderID = nil
		changed = append(changed, "folder")
	case req.FolderID != nil:
		if err := s.checkFolder(ctx, *req.FolderID); err != nil {
			return nil, err
		}
		folderID := *req.FolderID
		doc.FolderID = &folderID
		changed = append(changed, "folder")
	}
	if req.Tags != nil {
		doc.Tags = normalizeTags(*req.Tags)
		changed = append(changed, "tags")
	}
	if len(changed) == 0 {
		return s.Get(ctx, id, actor)
	}

	if err := s.docs.Update(ctx, doc, req.Tags != nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Internal(err, "failed to update document")
	}
	s.record(ctx, doc.ID, actor.UserID, models.LogActionUpdated, strings.Join(changed, ","))
	return s.Get(ctx, id, actor)
}

// Archive moves an active document to archived. Requires manage.
func (s *DocumentService) Archive(ctx context.Context, id string, actor *models.JWTClaims) (*models.DocumentDetail, error) {
	return s.transition(ctx, id, actor, models.DocumentStatusActive, models.DocumentStatusArchived, models.LogActionArchived)
}

// Restore moves an archived document back to active. Requires manage.
func (s *DocumentService) Restore(ctx context.Context, id string, actor *models.JWTClaims) (*models.DocumentDetail, error) {
	return s.transition(ctx, id, actor, models.DocumentStatusArchived, models.DocumentStatusActive, models.LogActionRestored)
}

// Publish moves a draft to active. Requires manage.
func (s *DocumentService) Publish(ctx context.Context, id string, actor *models.JWTClaims) (*models.DocumentDetail, error) {
	return s.transition(ctx, id, actor, models.DocumentStatusDraft, models.DocumentStatusActive, models.LogActionPublished)
}

// Delete hard-deletes a document with its versions, access rows, comments and logs,
// then schedules its blobs for cleanup. Requires manage.
func (s *DocumentService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	doc, _, err := s.access.Require(ctx, id, actor, models.AccessManage)
	if err != nil {
		return err
	}
	paths, err := s.docs.Delete(ctx, doc.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Internal(err, "failed to delete document")
	}
	if s.cleanup != nil {
		s.cleanup.Schedule(uniqueStrings(paths)...)
	}
	s.logger.Info("document deleted",
		zap.String("document_id", doc.ID),
		zap.String("user_id", actor.UserID),
		zap.Int("blobs", len(paths)),
	)
	return nil
}

func (s *DocumentService) transition(ctx context.Context, id string, actor *models.JWTClaims, from, to models.DocumentStatus, action string) (*models.DocumentDetail, error) {
	doc, _, err := s.access.Require(ctx, id, actor, models.AccessManage)
	if err != nil {
		return nil, err
	}
	if doc.Status != from {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "document is "+string(doc.Status))
	}
	if err := s.docs.UpdateStatus(ctx, doc.ID, to); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Internal(err, "failed to update document status")
	}
	s.record(ctx, doc.ID, actor.UserID, action, string(from)+"->"+string(to))
	return s.Get(ctx, id, actor)
}

func (s *DocumentService) checkFolder(ctx context.Context, folderID string) error {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "folder not found")
		}
		return appErrors.Internal(err, "failed to load folder")
	}
	if folder.Status == models.FolderStatusArchived {
		return appErrors.Clone(appErrors.ErrInvalidOperation, "folder is archived")
	}
	return nil
}

func (s *DocumentService) record(ctx context.Context, documentID, userID, action, details string) {
	if s.activity != nil {
		s.activity.Record(ctx, documentID, userID, action, details)
	}
}

// normalizeTags lowercases, trims and deduplicates tags, returning them sorted.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	sort.Strings(result)
	return result
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
