package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
)

type sharedLinkStore interface {
	Create(ctx context.Context, link *models.DocumentSharedLink) error
	GetByToken(ctx context.Context, token string) (*models.DocumentSharedLink, error)
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentSharedLink, error)
	Delete(ctx context.Context, documentID, id string) error
}

type documentReader interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
}

// SharedLinkServiceDeps groups collaborators of the shared link service.
type SharedLinkServiceDeps struct {
	Links      sharedLinkStore
	Documents  documentReader
	Versions   versionReader
	Guard      documentAccessGuard
	Signer     downloadSigner
	Activity   activityRecorder
	DefaultTTL time.Duration
}

// SharedLinkService issues token links that grant access without a session.
type SharedLinkService struct {
	links      sharedLinkStore
	documents  documentReader
	versions   versionReader
	guard      documentAccessGuard
	signer     downloadSigner
	activity   activityRecorder
	defaultTTL time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewSharedLinkService constructs the service.
func NewSharedLinkService(deps SharedLinkServiceDeps, validate *validator.Validate, logger *zap.Logger) *SharedLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SharedLinkService{
		links:      deps.Links,
		documents:  deps.Documents,
		versions:   deps.Versions,
		guard:      deps.Guard,
		signer:     deps.Signer,
		activity:   deps.Activity,
		defaultTTL: deps.DefaultTTL,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// Create issues a link. Zero expiry uses the default TTL; a non-positive default means links never expire.
func (s *SharedLinkService) Create(ctx context.Context, documentID string, req dto.CreateSharedLinkRequest, actor *models.JWTClaims) (*models.DocumentSharedLink, error) {
	req.Level = strings.ToLower(strings.TrimSpace(req.Level))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid shared link payload")
	}
	if _, _, err := s.guard.Require(ctx, documentID, actor, models.AccessManage); err != nil {
		return nil, err
	}

	level := models.AccessView
	if req.Level != "" {
		level = models.AccessLevel(req.Level)
	}
	link := &models.DocumentSharedLink{
		DocumentID:  documentID,
		Token:       strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		AccessLevel: &level,
		CreatedBy:   actor.UserID,
	}
	ttl := s.defaultTTL
	if req.ExpiresInHours > 0 {
		ttl = time.Duration(req.ExpiresInHours) * time.Hour
	}
	if ttl > 0 {
		expiresAt := s.now().UTC().Add(ttl)
		link.ExpiresAt = &expiresAt
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, appErrors.Internal(err, "failed to create shared link")
	}
	s.record(ctx, documentID, actor.UserID, models.LogActionLinkCreated, link.ID)
	return link, nil
}

// List returns a document's links. Requires manage.
func (s *SharedLinkService) List(ctx context.Context, documentID string, actor *models.JWTClaims) ([]models.DocumentSharedLink, error) {
	if _, _, err := s.guard.Require(ctx, documentID, actor, models.AccessManage); err != nil {
		return nil, err
	}
	links, err := s.links.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list shared links")
	}
	return links, nil
}

// Revoke deletes a link. Revoking an unknown link succeeds. Requires manage.
func (s *SharedLinkService) Revoke(ctx context.Context, documentID, linkID string, actor *models.JWTClaims) error {
	if _, _, err := s.guard.Require(ctx, documentID, actor, models.AccessManage); err != nil {
		return err
	}
	if err := s.links.Delete(ctx, documentID, linkID); err != nil {
		return appErrors.Internal(err, "failed to revoke shared link")
	}
	s.record(ctx, documentID, actor.UserID, models.LogActionLinkRevoked, linkID)
	return nil
}

// Resolve serves a link holder. Missing, expired or non-active targets are all NotFound.
func (s *SharedLinkService) Resolve(ctx context.Context, token string) (*dto.SharedDocumentResponse, error) {
	notFound := appErrors.Clone(appErrors.ErrNotFound, "shared link not found")
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, notFound
	}
	link, err := s.links.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, appErrors.Internal(err, "failed to load shared link")
	}
	if link.Expired(s.now()) {
		return nil, notFound
	}
	doc, err := s.documents.GetByID(ctx, link.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, appErrors.Internal(err, "failed to load document")
	}
	if doc.Status != models.DocumentStatusActive || doc.CurrentVersionID == nil {
		return nil, notFound
	}
	version, err := s.versions.GetByID(ctx, *doc.CurrentVersionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, appErrors.Internal(err, "failed to load version")
	}
	url, expiresAt, err := s.signer.DownloadURL(version.FilePath, version.MimeType)
	if err != nil {
		return nil, err
	}
	return &dto.SharedDocumentResponse{
		Document:    *doc,
		Version:     *version,
		Level:       link.Level(),
		DownloadURL: url,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *SharedLinkService) record(ctx context.Context, documentID, userID, action, details string) {
	if s.activity != nil {
		s.activity.Record(ctx, documentID, userID, action, details)
	}
}
