package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/ems-docs-api/internal/models"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
)

// ResolveAccess computes the effective access of caller on doc from the document's access rows.
// Precedence, highest first: owner, admin department, user share (most permissive row),
// departmental match (department row level or view), public (view), none.
func ResolveAccess(doc *models.Document, caller models.Caller, rows []models.DocumentAccess) models.AccessLevel {
	if doc == nil {
		return models.AccessNone
	}
	if caller.UserID != "" && doc.UploadedBy == caller.UserID {
		return models.AccessManage
	}
	if caller.IsAdminDepartment {
		return models.AccessManage
	}

	share := models.AccessNone
	departmentRow := models.AccessNone
	for _, row := range rows {
		if row.DocumentID != "" && row.DocumentID != doc.ID {
			continue
		}
		switch {
		case row.UserID != nil:
			if caller.UserID != "" && *row.UserID == caller.UserID {
				share = models.MaxAccess(share, row.AccessLevel)
			}
		case row.Department != nil:
			if *row.Department == doc.Department {
				departmentRow = models.MaxAccess(departmentRow, row.AccessLevel)
			}
		}
	}
	if share != models.AccessNone {
		return share
	}

	if doc.Departmental && doc.Department != "" && caller.Department == doc.Department {
		if departmentRow != models.AccessNone {
			return departmentRow
		}
		return models.AccessView
	}
	if doc.Public {
		return models.AccessView
	}
	return models.AccessNone
}

type accessDocumentReader interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
}

type accessRowReader interface {
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentAccess, error)
	ListByDocuments(ctx context.Context, documentIDs []string) (map[string][]models.DocumentAccess, error)
}

type accessDecisionRecorder interface {
	RecordAccessDecision(level models.AccessLevel)
}

// AccessService loads document state and evaluates effective access for callers.
type AccessService struct {
	docs            accessDocumentReader
	rows            accessRowReader
	metrics         accessDecisionRecorder
	adminDepartment string
	logger          *zap.Logger
}

// NewAccessService constructs the resolver service.
func NewAccessService(docs accessDocumentReader, rows accessRowReader, metrics accessDecisionRecorder, adminDepartment string, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{docs: docs, rows: rows, metrics: metrics, adminDepartment: adminDepartment, logger: logger}
}

// Caller derives the evaluated identity from token claims.
func (s *AccessService) Caller(actor *models.JWTClaims) models.Caller {
	return models.CallerFromClaims(actor, s.adminDepartment)
}

// Resolve returns the document and the caller's access summary. A missing document is NotFound.
func (s *AccessService) Resolve(ctx context.Context, documentID string, actor *models.JWTClaims) (*models.Document, models.AccessSummary, error) {
	if actor == nil {
		return nil, models.AccessSummary{}, appErrors.ErrUnauthorized
	}
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.AccessSummary{}, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, models.AccessSummary{}, appErrors.Internal(err, "failed to load document")
	}
	rows, err := s.rows.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, models.AccessSummary{}, appErrors.Internal(err, "failed to load document access")
	}
	summary := s.Summarize(doc, s.Caller(actor), rows)
	if s.metrics != nil {
		s.metrics.RecordAccessDecision(summary.Level)
	}
	return doc, summary, nil
}

// Require resolves access and fails with Forbidden when the caller holds less than min.
func (s *AccessService) Require(ctx context.Context, documentID string, actor *models.JWTClaims, min models.AccessLevel) (*models.Document, models.AccessSummary, error) {
	doc, summary, err := s.Resolve(ctx, documentID, actor)
	if err != nil {
		return nil, summary, err
	}
	if !summary.Level.AtLeast(min) {
		s.logger.Debug("document access denied",
			zap.String("document_id", documentID),
			zap.String("user_id", actor.UserID),
			zap.String("level", string(summary.Level)),
			zap.String("required", string(min)),
		)
		return nil, summary, appErrors.Clone(appErrors.ErrForbidden, "insufficient access to document")
	}
	return doc, summary, nil
}

// LevelsFor resolves access for a batch of documents with one access query.
func (s *AccessService) LevelsFor(ctx context.Context, docs []models.Document, actor *models.JWTClaims) (map[string]models.AccessLevel, error) {
	levels := make(map[string]models.AccessLevel, len(docs))
	if len(docs) == 0 {
		return levels, nil
	}
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}
	rows, err := s.rows.ListByDocuments(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load document access")
	}
	caller := s.Caller(actor)
	for i := range docs {
		levels[docs[i].ID] = ResolveAccess(&docs[i], caller, rows[docs[i].ID])
	}
	return levels, nil
}

// Summarize expands an effective level into the flags clients use to show or hide controls.
func (s *AccessService) Summarize(doc *models.Document, caller models.Caller, rows []models.DocumentAccess) models.AccessSummary {
	level := ResolveAccess(doc, caller, rows)
	return models.AccessSummary{
		DocumentID:        doc.ID,
		Level:             level,
		IsOwner:           caller.UserID != "" && doc.UploadedBy == caller.UserID,
		IsAdminDepartment: caller.IsAdminDepartment,
		CanView:           level.AtLeast(models.AccessView),
		CanEdit:           level.AtLeast(models.AccessEdit),
		CanManage:         level.AtLeast(models.AccessManage),
	}
}
