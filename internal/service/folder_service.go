package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
)

type folderStore interface {
	Create(ctx context.Context, folder *models.Folder) error
	GetByID(ctx context.Context, id string) (*models.Folder, error)
	FindSystem(ctx context.Context, kind models.FolderKind, ownerID, department string) (*models.Folder, error)
	List(ctx context.Context, filter models.FolderFilter) ([]models.Folder, error)
	Update(ctx context.Context, folder *models.Folder) error
	Delete(ctx context.Context, id string) error
}

// FolderService manages the folder hierarchy and its protected system roots.
type FolderService struct {
	folders         folderStore
	adminDepartment string
	maxDepth        int
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewFolderService constructs the service. maxDepth bounds the ancestor walk of effective visibility.
func NewFolderService(folders folderStore, adminDepartment string, maxDepth int, validate *validator.Validate, logger *zap.Logger) *FolderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if maxDepth <= 0 {
		maxDepth = 32
	}
	return &FolderService{folders: folders, adminDepartment: adminDepartment, maxDepth: maxDepth, validator: validate, logger: logger}
}

// ResolveFolderKind classifies a folder from its name, parent and department at creation time.
func ResolveFolderKind(name string, parentID *string, department string) models.FolderKind {
	if parentID != nil {
		return models.FolderKindUser
	}
	trimmed := strings.TrimSpace(name)
	if strings.EqualFold(trimmed, models.PersonalFolderName) {
		return models.FolderKindPersonal
	}
	if department != "" && strings.EqualFold(trimmed, strings.TrimSpace(department)) {
		return models.FolderKindDepartment
	}
	return models.FolderKindRoot
}

// Create adds a folder. Personal and department roots are protected; creating a second one is a conflict.
func (s *FolderService) Create(ctx context.Context, req dto.CreateFolderRequest, actor *models.JWTClaims) (*models.FolderDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Department = strings.TrimSpace(req.Department)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid folder payload")
	}
	caller := models.CallerFromClaims(actor, s.adminDepartment)

	department := req.Department
	if department == "" {
		department = caller.Department
	}
	if req.ParentID != nil {
		parent, err := s.load(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.Status == models.FolderStatusArchived {
			return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "cannot create a folder inside an archived folder")
		}
		if !s.canWriteInto(parent, caller) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot create folders here")
		}
		if req.Department == "" {
			department = parent.Department
		}
	}

	kind := ResolveFolderKind(req.Name, req.ParentID, department)
	folder := &models.Folder{
		Name:         req.Name,
		ParentID:     req.ParentID,
		Department:   department,
		Public:       req.Public,
		Departmental: req.Departmental,
		OwnerID:      caller.UserID,
		Kind:         kind,
		Protected:    kind == models.FolderKindPersonal || kind == models.FolderKindDepartment,
	}
	switch kind {
	case models.FolderKindPersonal:
		folder.Name = models.PersonalFolderName
	case models.FolderKindDepartment:
		if department != caller.Department && !caller.IsAdminDepartment {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot create another department's folder")
		}
	}
	if folder.Protected {
		existing, err := s.folders.FindSystem(ctx, kind, caller.UserID, department)
		if err == nil && existing != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "system folder already exists")
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to check system folders")
		}
	}

	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, appErrors.Internal(err, "failed to create folder")
	}
	return s.detail(ctx, folder)
}

// EnsureSystemFolders creates the caller's personal folder and department folder when missing.
func (s *FolderService) EnsureSystemFolders(ctx context.Context, actor *models.JWTClaims) ([]models.Folder, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	caller := models.CallerFromClaims(actor, s.adminDepartment)
	result := make([]models.Folder, 0, 2)

	personal, err := s.ensureSystem(ctx, models.FolderKindPersonal, models.PersonalFolderName, caller, "")
	if err != nil {
		return nil, err
	}
	result = append(result, *personal)

	if caller.Department != "" {
		department, err := s.ensureSystem(ctx, models.FolderKindDepartment, caller.Department, caller, caller.Department)
		if err != nil {
			return nil, err
		}
		result = append(result, *department)
	}
	return result, nil
}

func (s *FolderService) ensureSystem(ctx context.Context, kind models.FolderKind, name string, caller models.Caller, department string) (*models.Folder, error) {
	existing, err := s.folders.FindSystem(ctx, kind, caller.UserID, department)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load system folder")
	}
	folder := &models.Folder{
		Name:       name,
		Department: department,
		OwnerID:    caller.UserID,
		Kind:       kind,
		Protected:  true,
	}
	if kind == models.FolderKindPersonal {
		folder.Department = caller.Department
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		// A concurrent request may have created it first.
		if again, findErr := s.folders.FindSystem(ctx, kind, caller.UserID, department); findErr == nil {
			return again, nil
		}
		return nil, appErrors.Internal(err, "failed to create system folder")
	}
	s.logger.Info("system folder created", zap.String("kind", string(kind)), zap.String("folder_id", folder.ID))
	return folder, nil
}

// Get returns a folder with its effective visibility.
func (s *FolderService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.FolderDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	folder, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, folder)
}

// List returns root folders, or the children of query.ParentID.
func (s *FolderService) List(ctx context.Context, query dto.FolderListQuery, actor *models.JWTClaims) ([]models.FolderDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid folder query")
	}
	filter := models.FolderFilter{Status: models.FolderStatus(query.Status)}
	parentPublic := true
	if parentID := strings.TrimSpace(query.ParentID); parentID != "" {
		parent, err := s.load(ctx, parentID)
		if err != nil {
			return nil, err
		}
		filter.ParentID = &parentID
		parentPublic = s.effectivePublic(ctx, parent)
	} else {
		filter.RootsOnly = true
	}

	folders, err := s.folders.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list folders")
	}
	result := make([]models.FolderDetail, len(folders))
	for i, folder := range folders {
		result[i] = models.FolderDetail{Folder: folder, EffectivePublic: parentPublic && folder.Public}
	}
	return result, nil
}

// Update renames a folder or toggles its flags. Protected folders keep their name.
func (s *FolderService) Update(ctx context.Context, id string, req dto.UpdateFolderRequest, actor *models.JWTClaims) (*models.FolderDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid folder payload")
	}
	folder, caller, err := s.loadForMutation(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != folder.Name {
			if s.isProtected(folder, caller) {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "protected folders cannot be renamed")
			}
			if folder.ParentID == nil && ResolveFolderKind(name, nil, folder.Department) != models.FolderKindRoot {
				return nil, appErrors.WithFields("invalid folder payload", map[string]string{"name": "name is reserved"})
			}
			folder.Name = name
		}
	}
	if req.Public != nil {
		folder.Public = *req.Public
	}
	if req.Departmental != nil {
		folder.Departmental = *req.Departmental
	}
	if err := s.folders.Update(ctx, folder); err != nil {
		return nil, s.mapStoreError(err, "failed to update folder")
	}
	return s.detail(ctx, folder)
}

// Archive moves an active folder to archived.
func (s *FolderService) Archive(ctx context.Context, id string, actor *models.JWTClaims) (*models.FolderDetail, error) {
	return s.transition(ctx, id, actor, models.FolderStatusActive, models.FolderStatusArchived)
}

// Restore moves an archived folder back to active.
func (s *FolderService) Restore(ctx context.Context, id string, actor *models.JWTClaims) (*models.FolderDetail, error) {
	return s.transition(ctx, id, actor, models.FolderStatusArchived, models.FolderStatusActive)
}

// Delete removes a folder and its subfolders. Documents inside become unfiled.
func (s *FolderService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	folder, caller, err := s.loadForMutation(ctx, id, actor)
	if err != nil {
		return err
	}
	if s.isProtected(folder, caller) {
		return appErrors.Clone(appErrors.ErrForbidden, "protected folders cannot be deleted")
	}
	if err := s.folders.Delete(ctx, folder.ID); err != nil {
		return s.mapStoreError(err, "failed to delete folder")
	}
	s.logger.Info("folder deleted", zap.String("folder_id", folder.ID), zap.String("user_id", caller.UserID))
	return nil
}

func (s *FolderService) transition(ctx context.Context, id string, actor *models.JWTClaims, from, to models.FolderStatus) (*models.FolderDetail, error) {
	folder, caller, err := s.loadForMutation(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if to == models.FolderStatusArchived && s.isProtected(folder, caller) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "protected folders cannot be archived")
	}
	if folder.Status != from {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "folder is "+string(folder.Status))
	}
	folder.Status = to
	if err := s.folders.Update(ctx, folder); err != nil {
		return nil, s.mapStoreError(err, "failed to update folder status")
	}
	return s.detail(ctx, folder)
}

// isProtected honours the stored flag and the name rule for roots created before kinds existed.
func (s *FolderService) isProtected(folder *models.Folder, caller models.Caller) bool {
	if folder.Protected || folder.Kind == models.FolderKindPersonal || folder.Kind == models.FolderKindDepartment {
		return true
	}
	name := strings.TrimSpace(folder.Name)
	if strings.EqualFold(name, models.PersonalFolderName) {
		return true
	}
	return caller.Department != "" && strings.EqualFold(name, caller.Department)
}

func (s *FolderService) canMutate(folder *models.Folder, caller models.Caller) bool {
	return caller.IsAdminDepartment || (caller.UserID != "" && folder.OwnerID == caller.UserID)
}

func (s *FolderService) canWriteInto(parent *models.Folder, caller models.Caller) bool {
	if s.canMutate(parent, caller) {
		return true
	}
	return parent.Kind == models.FolderKindDepartment && parent.Department != "" && parent.Department == caller.Department
}

func (s *FolderService) loadForMutation(ctx context.Context, id string, actor *models.JWTClaims) (*models.Folder, models.Caller, error) {
	if actor == nil {
		return nil, models.Caller{}, appErrors.ErrUnauthorized
	}
	folder, err := s.load(ctx, id)
	if err != nil {
		return nil, models.Caller{}, err
	}
	caller := models.CallerFromClaims(actor, s.adminDepartment)
	if !s.canMutate(folder, caller) {
		return nil, caller, appErrors.Clone(appErrors.ErrForbidden, "only the folder owner can change it")
	}
	return folder, caller, nil
}

func (s *FolderService) load(ctx context.Context, id string) (*models.Folder, error) {
	folder, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err, "failed to load folder")
	}
	return folder, nil
}

func (s *FolderService) mapStoreError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "folder not found")
	}
	return appErrors.Internal(err, message)
}

func (s *FolderService) detail(ctx context.Context, folder *models.Folder) (*models.FolderDetail, error) {
	return &models.FolderDetail{Folder: *folder, EffectivePublic: s.effectivePublic(ctx, folder)}, nil
}

// effectivePublic is true only when the folder and every ancestor are public.
// Cycles, missing parents and chains deeper than maxDepth resolve to false.
func (s *FolderService) effectivePublic(ctx context.Context, folder *models.Folder) bool {
	seen := map[string]struct{}{folder.ID: {}}
	current := folder
	for depth := 0; ; depth++ {
		if !current.Public {
			return false
		}
		if current.ParentID == nil {
			return true
		}
		if depth >= s.maxDepth {
			s.logger.Warn("folder chain exceeds max depth", zap.String("folder_id", folder.ID), zap.Int("max_depth", s.maxDepth))
			return false
		}
		parentID := *current.ParentID
		if _, ok := seen[parentID]; ok {
			s.logger.Warn("folder cycle detected", zap.String("folder_id", folder.ID), zap.String("parent_id", parentID))
			return false
		}
		seen[parentID] = struct{}{}
		parent, err := s.folders.GetByID(ctx, parentID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("failed to load ancestor folder", zap.String("folder_id", parentID), zap.Error(err))
			}
			return false
		}
		current = parent
	}
}
