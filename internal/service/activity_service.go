package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
)

const maxExportEntries = 1000

type activityStore interface {
	CreateComment(ctx context.Context, comment *models.DocumentComment) error
	ListComments(ctx context.Context, documentID string, limit, offset int) ([]models.DocumentComment, error)
	CreateLog(ctx context.Context, entry *models.DocumentLog) error
	ListLogs(ctx context.Context, documentID string, limit, offset int) ([]models.DocumentLog, int, error)
}

type documentAccessGuard interface {
	Require(ctx context.Context, documentID string, actor *models.JWTClaims, min models.AccessLevel) (*models.Document, models.AccessSummary, error)
}

type historyRenderer interface {
	RenderHistory(doc *models.Document, logs []models.DocumentLog, format dto.ExportFormat) (*dto.ExportFile, error)
}

// activityRecorder appends history entries on behalf of other services.
type activityRecorder interface {
	Record(ctx context.Context, documentID, userID, action, details string)
}

// ActivityService manages document comments and the history log.
type ActivityService struct {
	store     activityStore
	guard     documentAccessGuard
	exporter  historyRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService constructs the service.
func NewActivityService(store activityStore, guard documentAccessGuard, exporter historyRenderer, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ActivityService{store: store, guard: guard, exporter: exporter, validator: validate, logger: logger}
}

// Record appends a history entry. Failures are logged and never fail the calling operation.
func (s *ActivityService) Record(ctx context.Context, documentID, userID, action, details string) {
	entry := &models.DocumentLog{DocumentID: documentID, UserID: userID, Action: action, Details: details}
	if err := s.store.CreateLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record document log",
			zap.String("document_id", documentID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// AddComment appends a comment; any caller who can view the document may comment.
func (s *ActivityService) AddComment(ctx context.Context, documentID string, req dto.CreateCommentRequest, actor *models.JWTClaims) (*models.DocumentComment, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid comment payload")
	}
	if _, _, err := s.guard.Require(ctx, documentID, actor, models.AccessView); err != nil {
		return nil, err
	}
	comment := &models.DocumentComment{DocumentID: documentID, UserID: actor.UserID, Content: req.Content}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, appErrors.Internal(err, "failed to add comment")
	}
	s.Record(ctx, documentID, actor.UserID, models.LogActionCommented, comment.ID)
	return comment, nil
}

// ListComments returns comments newest first.
func (s *ActivityService) ListComments(ctx context.Context, documentID string, page dto.PageQuery, actor *models.JWTClaims) ([]models.DocumentComment, *models.Pagination, error) {
	if err := s.validator.Struct(page); err != nil {
		return nil, nil, validationError(err, "invalid pagination")
	}
	if _, _, err := s.guard.Require(ctx, documentID, actor, models.AccessView); err != nil {
		return nil, nil, err
	}
	limit, offset, number := pageBounds(page.Page, page.PageSize, 50)
	comments, err := s.store.ListComments(ctx, documentID, limit, offset)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list comments")
	}
	return comments, &models.Pagination{Page: number, PageSize: limit, TotalCount: len(comments)}, nil
}

// ListLogs returns the history of a document newest first.
func (s *ActivityService) ListLogs(ctx context.Context, documentID string, page dto.PageQuery, actor *models.JWTClaims) ([]models.DocumentLog, *models.Pagination, error) {
	if err := s.validator.Struct(page); err != nil {
		return nil, nil, validationError(err, "invalid pagination")
	}
	if _, _, err := s.guard.Require(ctx, documentID, actor, models.AccessView); err != nil {
		return nil, nil, err
	}
	limit, offset, number := pageBounds(page.Page, page.PageSize, 50)
	logs, total, err := s.store.ListLogs(ctx, documentID, limit, offset)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list document history")
	}
	return logs, &models.Pagination{Page: number, PageSize: limit, TotalCount: total}, nil
}

// ExportLogs renders the most recent history entries as CSV or PDF. Requires manage.
func (s *ActivityService) ExportLogs(ctx context.Context, documentID string, format dto.ExportFormat, actor *models.JWTClaims) (*dto.ExportFile, error) {
	doc, _, err := s.guard.Require(ctx, documentID, actor, models.AccessManage)
	if err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "history export unavailable")
	}
	logs, _, err := s.store.ListLogs(ctx, documentID, maxExportEntries, 0)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load document history")
	}
	return s.exporter.RenderHistory(doc, logs, format)
}

// pageBounds converts 1-based page numbers into limit/offset.
func pageBounds(page, size, def int) (limit, offset, number int) {
	if size <= 0 {
		size = def
	}
	if page <= 0 {
		page = 1
	}
	return size, (page - 1) * size, page
}
