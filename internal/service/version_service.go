package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	"github.com/noah-isme/ems-docs-api/internal/repository"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
)

type versionStore interface {
	Create(ctx context.Context, version *models.DocumentVersion) error
	GetByID(ctx context.Context, id string) (*models.DocumentVersion, error)
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error)
	Delete(ctx context.Context, id string) error
}

type fileResolver interface {
	ResolveFile(ctx context.Context, req dto.FileRequest) (models.FileMeta, error)
}

type downloadSigner interface {
	DownloadURL(key, contentType string) (string, time.Time, error)
}

type blobScheduler interface {
	Schedule(keys ...string)
}

type versionMetrics interface {
	RecordVersionUploaded()
}

// VersionService manages the version history of documents.
type VersionService struct {
	versions  versionStore
	guard     documentAccessGuard
	files     fileResolver
	signer    downloadSigner
	cleanup   blobScheduler
	activity  activityRecorder
	metrics   versionMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// VersionServiceDeps groups collaborators of the version service.
type VersionServiceDeps struct {
	Versions versionStore
	Guard    documentAccessGuard
	Files    fileResolver
	Signer   downloadSigner
	Cleanup  blobScheduler
	Activity activityRecorder
	Metrics  versionMetrics
}

// NewVersionService constructs the service.
func NewVersionService(deps VersionServiceDeps, validate *validator.Validate, logger *zap.Logger) *VersionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &VersionService{
		versions:  deps.Versions,
		guard:     deps.Guard,
		files:     deps.Files,
		signer:    deps.Signer,
		cleanup:   deps.Cleanup,
		activity:  deps.Activity,
		metrics:   deps.Metrics,
		validator: validate,
		logger:    logger,
	}
}

// Upload appends a new version numbered current+1 and makes it current. Requires edit.
func (s *VersionService) Upload(ctx context.Context, documentID string, req dto.UploadVersionRequest, actor *models.JWTClaims) (*models.DocumentVersion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid version payload")
	}
	if _, _, err := s.guard.Require(ctx, documentID, actor, models.AccessEdit); err != nil {
		return nil, err
	}
	meta, err := s.files.ResolveFile(ctx, req.File)
	if err != nil {
		return nil, err
	}

	version := &models.DocumentVersion{
		DocumentID: documentID,
		FilePath:   meta.FilePath,
		FileSize:   meta.SizeMB(),
		MimeType:   meta.MimeType,
		UploadedBy: actor.UserID,
	}
	if err := s.versions.Create(ctx, version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Internal(err, "failed to create version")
	}
	if s.metrics != nil {
		s.metrics.RecordVersionUploaded()
	}
	s.record(ctx, documentID, actor.UserID, models.LogActionVersionUploaded, fmt.Sprintf("version %d", version.VersionNumber))
	return version, nil
}

// List returns versions newest first with the current one flagged. Requires view.
func (s *VersionService) List(ctx context.Context, documentID string, actor *models.JWTClaims) ([]models.VersionListItem, error) {
	doc, _, err := s.guard.Require(ctx, documentID, actor, models.AccessView)
	if err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list versions")
	}
	items := make([]models.VersionListItem, len(versions))
	for i, v := range versions {
		items[i] = models.VersionListItem{
			DocumentVersion: v,
			IsCurrent:       doc.CurrentVersionID != nil && *doc.CurrentVersionID == v.ID,
		}
	}
	return items, nil
}

// Delete removes a non-current version and schedules its blob for cleanup. Requires edit.
func (s *VersionService) Delete(ctx context.Context, documentID, versionID string, actor *models.JWTClaims) error {
	doc, _, err := s.guard.Require(ctx, documentID, actor, models.AccessEdit)
	if err != nil {
		return err
	}
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "version not found")
		}
		return appErrors.Internal(err, "failed to load version")
	}
	if version.DocumentID != doc.ID {
		return appErrors.Clone(appErrors.ErrNotFound, "version not found")
	}
	if doc.CurrentVersionID != nil && *doc.CurrentVersionID == version.ID {
		return appErrors.Clone(appErrors.ErrInvalidOperation, "cannot delete the current version")
	}
	if err := s.versions.Delete(ctx, version.ID); err != nil {
		if errors.Is(err, repository.ErrVersionIsCurrent) {
			return appErrors.Clone(appErrors.ErrInvalidOperation, "cannot delete the current version")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "version not found")
		}
		return appErrors.Internal(err, "failed to delete version")
	}

	s.scheduleIfUnreferenced(ctx, doc.ID, version.FilePath)
	s.record(ctx, doc.ID, actor.UserID, models.LogActionVersionDeleted, fmt.Sprintf("version %d", version.VersionNumber))
	return nil
}

// DownloadURL returns a signed URL for a version's blob. Requires view on its document.
func (s *VersionService) DownloadURL(ctx context.Context, versionID string, actor *models.JWTClaims) (*dto.DownloadURLResponse, error) {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "version not found")
		}
		return nil, appErrors.Internal(err, "failed to load version")
	}
	if _, _, err := s.guard.Require(ctx, version.DocumentID, actor, models.AccessView); err != nil {
		return nil, err
	}
	url, expiresAt, err := s.signer.DownloadURL(version.FilePath, version.MimeType)
	if err != nil {
		return nil, err
	}
	return &dto.DownloadURLResponse{URL: url, ExpiresAt: expiresAt}, nil
}

// scheduleIfUnreferenced skips cleanup when another version of the document still points at the blob.
func (s *VersionService) scheduleIfUnreferenced(ctx context.Context, documentID, key string) {
	if s.cleanup == nil || key == "" {
		return
	}
	remaining, err := s.versions.ListByDocument(ctx, documentID)
	if err != nil {
		s.logger.Warn("skipping blob cleanup, failed to list versions", zap.String("document_id", documentID), zap.Error(err))
		return
	}
	for _, v := range remaining {
		if v.FilePath == key {
			return
		}
	}
	s.cleanup.Schedule(key)
}

func (s *VersionService) record(ctx context.Context, documentID, userID, action, details string) {
	if s.activity != nil {
		s.activity.Record(ctx, documentID, userID, action, details)
	}
}
