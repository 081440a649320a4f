package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
)

const minEmployeeQueryLength = 2

type shareStore interface {
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentAccess, error)
	ListShares(ctx context.Context, documentID string) ([]models.ShareEntry, error)
	UpsertUser(ctx context.Context, access *models.DocumentAccess) error
	UpsertDepartment(ctx context.Context, access *models.DocumentAccess) error
	DeleteUser(ctx context.Context, documentID, userID string) (bool, error)
}

type employeeDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.Employee, error)
	Search(ctx context.Context, term, excludeID string, limit int) ([]models.EmployeeCandidate, error)
}

type documentFlagWriter interface {
	SetPublic(ctx context.Context, id string, public bool) error
	SetDepartmental(ctx context.Context, id string, departmental bool) error
}

// SharingService manages per-user shares, the public flag and departmental access.
type SharingService struct {
	shares      shareStore
	employees   employeeDirectory
	documents   documentFlagWriter
	guard       documentAccessGuard
	activity    activityRecorder
	searchLimit int
	validator   *validator.Validate
	logger      *zap.Logger
}

// SharingServiceDeps groups collaborators of the sharing service.
type SharingServiceDeps struct {
	Shares      shareStore
	Employees   employeeDirectory
	Documents   documentFlagWriter
	Guard       documentAccessGuard
	Activity    activityRecorder
	SearchLimit int
}

// NewSharingService constructs the service.
func NewSharingService(deps SharingServiceDeps, validate *validator.Validate, logger *zap.Logger) *SharingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if deps.SearchLimit <= 0 {
		deps.SearchLimit = 10
	}
	return &SharingService{
		shares:      deps.Shares,
		employees:   deps.Employees,
		documents:   deps.Documents,
		guard:       deps.Guard,
		activity:    deps.Activity,
		searchLimit: deps.SearchLimit,
		validator:   validate,
		logger:      logger,
	}
}

// State returns the sharing configuration of a document. Requires view.
func (s *SharingService) State(ctx context.Context, documentID string, actor *models.JWTClaims) (*dto.SharingState, error) {
	doc, _, err := s.guard.Require(ctx, documentID, actor, models.AccessView)
	if err != nil {
		return nil, err
	}
	shares, err := s.shares.ListShares(ctx, documentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list shares")
	}
	rows, err := s.shares.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load document access")
	}
	state := &dto.SharingState{
		DocumentID:   doc.ID,
		Public:       doc.Public,
		Departmental: doc.Departmental,
		Department:   doc.Department,
		Shares:       shares,
	}
	for _, row := range rows {
		if row.Department != nil && *row.Department == doc.Department {
			level := row.AccessLevel
			state.DepartmentLevel = &level
		}
	}
	return state, nil
}

// AddShare grants level to the employee with the given email, replacing any previous share. Requires manage.
func (s *SharingService) AddShare(ctx context.Context, documentID string, req dto.AddShareRequest, actor *models.JWTClaims) (*models.DocumentAccess, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Level = strings.ToLower(strings.TrimSpace(req.Level))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid share payload")
	}
	level, err := models.ParseAccessLevel(req.Level)
	if err != nil {
		return nil, appErrors.WithFields("invalid share payload", map[string]string{"level": "must be one of view edit manage"})
	}
	if _, _, err := s.guard.Require(ctx, documentID, actor, models.AccessManage); err != nil {
		return nil, err
	}

	employee, err := s.employees.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Internal(err, "failed to look up employee")
	}

	userID := employee.ID
	access := &models.DocumentAccess{
		DocumentID:  documentID,
		UserID:      &userID,
		AccessLevel: level,
		GrantedBy:   actor.UserID,
	}
	if err := s.shares.UpsertUser(ctx, access); err != nil {
		return nil, appErrors.Internal(err, "failed to share document")
	}
	s.record(ctx, documentID, actor.UserID, models.LogActionShareAdded, fmt.Sprintf("%s:%s", employee.Email, level))
	return access, nil
}

// RemoveShare revokes a user's share. Removing a share that does not exist succeeds. Requires manage.
func (s *SharingService) RemoveShare(ctx context.Context, documentID, userID string, actor *models.JWTClaims) error {
	if _, _, err := s.guard.Require(ctx, documentID, actor, models.AccessManage); err != nil {
		return err
	}
	removed, err := s.shares.DeleteUser(ctx, documentID, userID)
	if err != nil {
		return appErrors.Internal(err, "failed to remove share")
	}
	if removed {
		s.record(ctx, documentID, actor.UserID, models.LogActionShareRemoved, userID)
	}
	return nil
}

// TogglePublic sets the public flag. Folders are not affected. Requires manage.
func (s *SharingService) TogglePublic(ctx context.Context, documentID string, req dto.TogglePublicRequest, actor *models.JWTClaims) (*dto.SharingState, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid public payload")
	}
	if _, _, err := s.guard.Require(ctx, documentID, actor, models.AccessManage); err != nil {
		return nil, err
	}
	if err := s.documents.SetPublic(ctx, documentID, *req.Public); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Internal(err, "failed to update public flag")
	}
	s.record(ctx, documentID, actor.UserID, models.LogActionPublicToggled, fmt.Sprintf("public=%t", *req.Public))
	return s.State(ctx, documentID, actor)
}

// UpdateDepartmentAccess enables or disables departmental access. Enabling with a level upserts
// the department row; without one it keeps an existing row's level or creates it at view.
// Disabling clears the flag and keeps the row.
func (s *SharingService) UpdateDepartmentAccess(ctx context.Context, documentID string, req dto.DepartmentAccessRequest, actor *models.JWTClaims) (*dto.SharingState, error) {
	req.Level = strings.ToLower(strings.TrimSpace(req.Level))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid department access payload")
	}
	doc, _, err := s.guard.Require(ctx, documentID, actor, models.AccessManage)
	if err != nil {
		return nil, err
	}

	enabled := *req.Enabled
	level := models.AccessView
	if enabled {
		if doc.Department == "" {
			return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "document has no department")
		}
		existing, err := s.departmentLevel(ctx, documentID, doc.Department)
		if err != nil {
			return nil, err
		}
		switch {
		case req.Level != "":
			level = models.AccessLevel(req.Level)
		case existing != nil:
			level = *existing
		}
		if existing == nil || *existing != level {
			department := doc.Department
			access := &models.DocumentAccess{
				DocumentID:  documentID,
				Department:  &department,
				AccessLevel: level,
				GrantedBy:   actor.UserID,
			}
			if err := s.shares.UpsertDepartment(ctx, access); err != nil {
				return nil, appErrors.Internal(err, "failed to update department access")
			}
		}
	}
	if err := s.documents.SetDepartmental(ctx, documentID, enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Internal(err, "failed to update departmental flag")
	}

	details := "disabled"
	if enabled {
		details = "enabled:" + string(level)
	}
	s.record(ctx, documentID, actor.UserID, models.LogActionDepartmentAccessUpdated, details)
	return s.State(ctx, documentID, actor)
}

func (s *SharingService) departmentLevel(ctx context.Context, documentID, department string) (*models.AccessLevel, error) {
	rows, err := s.shares.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load department access")
	}
	for _, row := range rows {
		if row.Department != nil && *row.Department == department {
			level := row.AccessLevel
			return &level, nil
		}
	}
	return nil, nil
}

// SearchEmployees returns share candidates matching query, excluding the caller.
func (s *SharingService) SearchEmployees(ctx context.Context, query string, actor *models.JWTClaims) (*dto.EmployeeSearchResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	resp := &dto.EmployeeSearchResponse{Query: query, Results: []models.EmployeeCandidate{}}
	term := strings.TrimSpace(query)
	if len([]rune(term)) < minEmployeeQueryLength {
		return resp, nil
	}
	results, err := s.employees.Search(ctx, term, actor.UserID, s.searchLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to search employees")
	}
	resp.Results = results
	return resp, nil
}

func (s *SharingService) record(ctx context.Context, documentID, userID, action, details string) {
	if s.activity != nil {
		s.activity.Record(ctx, documentID, userID, action, details)
	}
}
