package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	"github.com/noah-isme/ems-docs-api/internal/repository"
)

// memoryWorld is an in-memory stand-in for the document tables shared by the stubs below.
type memoryWorld struct {
	mu        sync.Mutex
	seq       int
	docs      map[string]*models.Document
	versions  map[string]*models.DocumentVersion
	access    []models.DocumentAccess
	employees []models.Employee
	folders   map[string]*models.Folder
	comments  []models.DocumentComment
	logs      []models.DocumentLog
	links     map[string]*models.DocumentSharedLink
}

func newMemoryWorld() *memoryWorld {
	return &memoryWorld{
		docs:     make(map[string]*models.Document),
		versions: make(map[string]*models.DocumentVersion),
		folders:  make(map[string]*models.Folder),
		links:    make(map[string]*models.DocumentSharedLink),
	}
}

func (w *memoryWorld) nextID(prefix string) string {
	w.seq++
	return fmt.Sprintf("%s-%d", prefix, w.seq)
}

func (w *memoryWorld) clock() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(w.seq) * time.Minute)
}

type documentStoreStub struct{ w *memoryWorld }

func (s documentStoreStub) Create(ctx context.Context, doc *models.Document, version *models.DocumentVersion) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if doc.ID == "" {
		doc.ID = s.w.nextID("doc")
	}
	if version.ID == "" {
		version.ID = s.w.nextID("ver")
	}
	if doc.Status == "" {
		doc.Status = models.DocumentStatusActive
	}
	now := s.w.clock()
	doc.CreatedAt, doc.UpdatedAt = now, now
	doc.CurrentVersion = 1
	doc.CurrentVersionID = &version.ID
	version.DocumentID = doc.ID
	version.VersionNumber = 1
	version.CreatedAt, version.UpdatedAt = now, now
	stored := *doc
	stored.Tags = append([]string(nil), doc.Tags...)
	s.w.docs[doc.ID] = &stored
	v := *version
	s.w.versions[version.ID] = &v
	return nil
}

func (s documentStoreStub) GetByID(ctx context.Context, id string) (*models.Document, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	doc, ok := s.w.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *doc
	copy.Tags = append([]string{}, doc.Tags...)
	return &copy, nil
}

func (s documentStoreStub) List(ctx context.Context, filter models.DocumentFilter, visibility repository.DocumentVisibility) ([]models.Document, int, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	result := make([]models.Document, 0)
	for _, doc := range s.w.docs {
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if filter.FolderID != nil && (doc.FolderID == nil || *doc.FolderID != *filter.FolderID) {
			continue
		}
		if !visibility.All {
			visible := doc.UploadedBy == visibility.UserID || doc.Public ||
				(doc.Departmental && doc.Department != "" && doc.Department == visibility.Department)
			for _, row := range s.w.access {
				if row.DocumentID == doc.ID && row.UserID != nil && *row.UserID == visibility.UserID {
					visible = true
				}
			}
			if !visible {
				continue
			}
		}
		result = append(result, *doc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, len(result), nil
}

func (s documentStoreStub) Update(ctx context.Context, doc *models.Document, withTags bool) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	stored, ok := s.w.docs[doc.ID]
	if !ok {
		return sql.ErrNoRows
	}
	tags := stored.Tags
	if withTags {
		tags = append([]string{}, doc.Tags...)
	}
	updated := *doc
	updated.Tags = tags
	updated.CurrentVersion = stored.CurrentVersion
	updated.CurrentVersionID = stored.CurrentVersionID
	s.w.docs[doc.ID] = &updated
	if doc.Department != "" {
		for i := range s.w.access {
			row := &s.w.access[i]
			if row.DocumentID == doc.ID && row.Department != nil && *row.Department != doc.Department {
				department := doc.Department
				row.Department = &department
			}
		}
	}
	return nil
}

func (s documentStoreStub) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	doc, ok := s.w.docs[id]
	if !ok {
		return sql.ErrNoRows
	}
	doc.Status = status
	return nil
}

func (s documentStoreStub) SetPublic(ctx context.Context, id string, public bool) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	doc, ok := s.w.docs[id]
	if !ok {
		return sql.ErrNoRows
	}
	doc.Public = public
	return nil
}

func (s documentStoreStub) SetDepartmental(ctx context.Context, id string, departmental bool) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	doc, ok := s.w.docs[id]
	if !ok {
		return sql.ErrNoRows
	}
	doc.Departmental = departmental
	return nil
}

func (s documentStoreStub) Delete(ctx context.Context, id string) ([]string, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if _, ok := s.w.docs[id]; !ok {
		return nil, sql.ErrNoRows
	}
	delete(s.w.docs, id)
	paths := make([]string, 0)
	for vid, v := range s.w.versions {
		if v.DocumentID == id {
			paths = append(paths, v.FilePath)
			delete(s.w.versions, vid)
		}
	}
	kept := s.w.access[:0]
	for _, row := range s.w.access {
		if row.DocumentID != id {
			kept = append(kept, row)
		}
	}
	s.w.access = kept
	sort.Strings(paths)
	return paths, nil
}

type versionStoreStub struct{ w *memoryWorld }

func (s versionStoreStub) Create(ctx context.Context, version *models.DocumentVersion) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	doc, ok := s.w.docs[version.DocumentID]
	if !ok {
		return sql.ErrNoRows
	}
	if version.ID == "" {
		version.ID = s.w.nextID("ver")
	}
	version.VersionNumber = doc.CurrentVersion + 1
	version.CreatedAt = s.w.clock()
	v := *version
	s.w.versions[version.ID] = &v
	doc.CurrentVersion = version.VersionNumber
	id := version.ID
	doc.CurrentVersionID = &id
	return nil
}

func (s versionStoreStub) GetByID(ctx context.Context, id string) (*models.DocumentVersion, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	v, ok := s.w.versions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *v
	return &copy, nil
}

func (s versionStoreStub) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	result := make([]models.DocumentVersion, 0)
	for _, v := range s.w.versions {
		if v.DocumentID == documentID {
			result = append(result, *v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].VersionNumber > result[j].VersionNumber })
	return result, nil
}

func (s versionStoreStub) Delete(ctx context.Context, id string) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for _, doc := range s.w.docs {
		if doc.CurrentVersionID != nil && *doc.CurrentVersionID == id {
			return repository.ErrVersionIsCurrent
		}
	}
	if _, ok := s.w.versions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.w.versions, id)
	return nil
}

type accessStoreStub struct{ w *memoryWorld }

func (s accessStoreStub) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentAccess, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	result := make([]models.DocumentAccess, 0)
	for _, row := range s.w.access {
		if row.DocumentID == documentID {
			result = append(result, row)
		}
	}
	return result, nil
}

func (s accessStoreStub) ListByDocuments(ctx context.Context, documentIDs []string) (map[string][]models.DocumentAccess, error) {
	result := make(map[string][]models.DocumentAccess, len(documentIDs))
	for _, id := range documentIDs {
		rows, _ := s.ListByDocument(ctx, id)
		result[id] = rows
	}
	return result, nil
}

func (s accessStoreStub) ListShares(ctx context.Context, documentID string) ([]models.ShareEntry, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	result := make([]models.ShareEntry, 0)
	for _, row := range s.w.access {
		if row.DocumentID != documentID || row.UserID == nil {
			continue
		}
		entry := models.ShareEntry{DocumentAccess: row}
		for _, e := range s.w.employees {
			if e.ID == *row.UserID {
				entry.Email, entry.FullName = e.Email, e.FullName
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s accessStoreStub) UpsertUser(ctx context.Context, access *models.DocumentAccess) error {
	return s.upsert(access, func(row models.DocumentAccess) bool {
		return row.UserID != nil && *row.UserID == *access.UserID
	})
}

func (s accessStoreStub) UpsertDepartment(ctx context.Context, access *models.DocumentAccess) error {
	return s.upsert(access, func(row models.DocumentAccess) bool {
		return row.Department != nil && *row.Department == *access.Department
	})
}

func (s accessStoreStub) upsert(access *models.DocumentAccess, same func(models.DocumentAccess) bool) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for i, row := range s.w.access {
		if row.DocumentID == access.DocumentID && same(row) {
			s.w.access[i].AccessLevel = access.AccessLevel
			s.w.access[i].GrantedBy = access.GrantedBy
			access.ID = row.ID
			return nil
		}
	}
	access.ID = s.w.nextID("acc")
	s.w.access = append(s.w.access, *access)
	return nil
}

func (s accessStoreStub) DeleteUser(ctx context.Context, documentID, userID string) (bool, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for i, row := range s.w.access {
		if row.DocumentID == documentID && row.UserID != nil && *row.UserID == userID {
			s.w.access = append(s.w.access[:i], s.w.access[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type employeeDirectoryStub struct {
	w         *memoryWorld
	lastLimit int
}

func (s *employeeDirectoryStub) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	for _, e := range s.w.employees {
		if strings.EqualFold(e.Email, strings.TrimSpace(email)) && e.Active {
			copy := e
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *employeeDirectoryStub) Search(ctx context.Context, term, excludeID string, limit int) ([]models.EmployeeCandidate, error) {
	s.lastLimit = limit
	result := make([]models.EmployeeCandidate, 0)
	needle := strings.ToLower(term)
	for _, e := range s.w.employees {
		if e.ID == excludeID || !e.Active {
			continue
		}
		if strings.Contains(strings.ToLower(e.FullName), needle) || strings.Contains(strings.ToLower(e.Email), needle) {
			result = append(result, models.EmployeeCandidate{ID: e.ID, Email: e.Email, FullName: e.FullName, Department: e.Department})
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

type folderStoreStub struct{ w *memoryWorld }

func (s folderStoreStub) Create(ctx context.Context, folder *models.Folder) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if folder.ID == "" {
		folder.ID = s.w.nextID("fold")
	}
	if folder.Status == "" {
		folder.Status = models.FolderStatusActive
	}
	copy := *folder
	s.w.folders[folder.ID] = &copy
	return nil
}

func (s folderStoreStub) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	folder, ok := s.w.folders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *folder
	return &copy, nil
}

func (s folderStoreStub) FindSystem(ctx context.Context, kind models.FolderKind, ownerID, department string) (*models.Folder, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for _, folder := range s.w.folders {
		if folder.Kind != kind {
			continue
		}
		if (kind == models.FolderKindPersonal && folder.OwnerID == ownerID) ||
			(kind == models.FolderKindDepartment && folder.Department == department) {
			copy := *folder
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s folderStoreStub) List(ctx context.Context, filter models.FolderFilter) ([]models.Folder, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	result := make([]models.Folder, 0)
	for _, folder := range s.w.folders {
		if filter.ParentID != nil && (folder.ParentID == nil || *folder.ParentID != *filter.ParentID) {
			continue
		}
		if filter.RootsOnly && folder.ParentID != nil {
			continue
		}
		if filter.Status != "" && folder.Status != filter.Status {
			continue
		}
		result = append(result, *folder)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s folderStoreStub) Update(ctx context.Context, folder *models.Folder) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if _, ok := s.w.folders[folder.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *folder
	s.w.folders[folder.ID] = &copy
	return nil
}

func (s folderStoreStub) Delete(ctx context.Context, id string) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if _, ok := s.w.folders[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.w.folders, id)
	for _, doc := range s.w.docs {
		if doc.FolderID != nil && *doc.FolderID == id {
			doc.FolderID = nil
		}
	}
	return nil
}

type activityStoreStub struct {
	w       *memoryWorld
	failLog bool
}

func (s *activityStoreStub) CreateComment(ctx context.Context, comment *models.DocumentComment) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	comment.ID = s.w.nextID("cmt")
	comment.CreatedAt = s.w.clock()
	s.w.comments = append(s.w.comments, *comment)
	return nil
}

func (s *activityStoreStub) ListComments(ctx context.Context, documentID string, limit, offset int) ([]models.DocumentComment, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	result := make([]models.DocumentComment, 0)
	for i := len(s.w.comments) - 1; i >= 0; i-- {
		if s.w.comments[i].DocumentID == documentID {
			result = append(result, s.w.comments[i])
		}
	}
	return paginate(result, limit, offset), nil
}

func (s *activityStoreStub) CreateLog(ctx context.Context, entry *models.DocumentLog) error {
	if s.failLog {
		return fmt.Errorf("log table unavailable")
	}
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	entry.ID = s.w.nextID("log")
	entry.CreatedAt = s.w.clock()
	s.w.logs = append(s.w.logs, *entry)
	return nil
}

func (s *activityStoreStub) ListLogs(ctx context.Context, documentID string, limit, offset int) ([]models.DocumentLog, int, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	result := make([]models.DocumentLog, 0)
	for i := len(s.w.logs) - 1; i >= 0; i-- {
		if s.w.logs[i].DocumentID == documentID {
			result = append(result, s.w.logs[i])
		}
	}
	return paginate(result, limit, offset), len(result), nil
}

func (s *activityStoreStub) actions(documentID string) []string {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	actions := make([]string, 0)
	for _, entry := range s.w.logs {
		if entry.DocumentID == documentID {
			actions = append(actions, entry.Action)
		}
	}
	return actions
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type sharedLinkStoreStub struct{ w *memoryWorld }

func (s sharedLinkStoreStub) Create(ctx context.Context, link *models.DocumentSharedLink) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	link.ID = s.w.nextID("link")
	copy := *link
	s.w.links[link.ID] = &copy
	return nil
}

func (s sharedLinkStoreStub) GetByToken(ctx context.Context, token string) (*models.DocumentSharedLink, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for _, link := range s.w.links {
		if link.Token == token {
			copy := *link
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s sharedLinkStoreStub) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentSharedLink, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	result := make([]models.DocumentSharedLink, 0)
	for _, link := range s.w.links {
		if link.DocumentID == documentID {
			result = append(result, *link)
		}
	}
	return result, nil
}

func (s sharedLinkStoreStub) Delete(ctx context.Context, documentID, id string) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if link, ok := s.w.links[id]; ok && link.DocumentID == documentID {
		delete(s.w.links, id)
	}
	return nil
}

type fileResolverStub struct {
	err error
}

func (s fileResolverStub) ResolveFile(ctx context.Context, req dto.FileRequest) (models.FileMeta, error) {
	if s.err != nil {
		return models.FileMeta{}, s.err
	}
	return models.FileMeta{FilePath: req.FilePath, SizeBytes: req.FileSize, MimeType: req.MimeType}, nil
}

type downloadSignerStub struct{}

func (downloadSignerStub) DownloadURL(key, contentType string) (string, time.Time, error) {
	return "/api/v1/files/" + key + "?token=signed", time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), nil
}

type schedulerStub struct {
	mu   sync.Mutex
	keys []string
}

func (s *schedulerStub) Schedule(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, keys...)
}

type accessCounterStub struct {
	mu     sync.Mutex
	levels map[models.AccessLevel]int
}

func (s *accessCounterStub) RecordAccessDecision(level models.AccessLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.levels == nil {
		s.levels = make(map[models.AccessLevel]int)
	}
	s.levels[level]++
}

const testAdminDepartment = "IT"

var (
	ownerActor    = &models.JWTClaims{UserID: "emp-owner", Email: "owner@example.com", Department: "Finance"}
	colleague     = &models.JWTClaims{UserID: "emp-colleague", Email: "colleague@example.com", Department: "Finance"}
	outsiderActor = &models.JWTClaims{UserID: "emp-outsider", Email: "outsider@example.com", Department: "Sales"}
	adminActor    = &models.JWTClaims{UserID: "emp-admin", Email: "admin@example.com", Department: "IT"}
)

// testEnv wires every document service against one memory world.
type testEnv struct {
	world     *memoryWorld
	activity  *activityStoreStub
	employees *employeeDirectoryStub
	cleanup   *schedulerStub
	counter   *accessCounterStub

	access      *AccessService
	activitySvc *ActivityService
	documents   *DocumentService
	versions    *VersionService
	sharing     *SharingService
	links       *SharedLinkService
	folders     *FolderService
}

func newTestEnv() *testEnv {
	w := newMemoryWorld()
	w.employees = []models.Employee{
		{ID: ownerActor.UserID, Email: ownerActor.Email, FullName: "Olivia Owner", Department: "Finance", Active: true},
		{ID: colleague.UserID, Email: colleague.Email, FullName: "Colin Colleague", Department: "Finance", Active: true},
		{ID: outsiderActor.UserID, Email: outsiderActor.Email, FullName: "Oscar Outsider", Department: "Sales", Active: true},
		{ID: adminActor.UserID, Email: adminActor.Email, FullName: "Ada Admin", Department: "IT", Active: true},
	}

	env := &testEnv{
		world:     w,
		activity:  &activityStoreStub{w: w},
		employees: &employeeDirectoryStub{w: w},
		cleanup:   &schedulerStub{},
		counter:   &accessCounterStub{},
	}
	docs := documentStoreStub{w: w}
	versions := versionStoreStub{w: w}
	access := accessStoreStub{w: w}

	env.access = NewAccessService(docs, access, env.counter, testAdminDepartment, nil)
	env.activitySvc = NewActivityService(env.activity, env.access, newExportServiceForTest(), nil, nil)
	env.documents = NewDocumentService(DocumentServiceDeps{
		Documents: docs,
		Versions:  versions,
		Folders:   folderStoreStub{w: w},
		Access:    env.access,
		Files:     fileResolverStub{},
		Cleanup:   env.cleanup,
		Activity:  env.activitySvc,
	}, nil, nil)
	env.versions = NewVersionService(VersionServiceDeps{
		Versions: versions,
		Guard:    env.access,
		Files:    fileResolverStub{},
		Signer:   downloadSignerStub{},
		Cleanup:  env.cleanup,
		Activity: env.activitySvc,
	}, nil, nil)
	env.sharing = NewSharingService(SharingServiceDeps{
		Shares:      access,
		Employees:   env.employees,
		Documents:   docs,
		Guard:       env.access,
		Activity:    env.activitySvc,
		SearchLimit: 5,
	}, nil, nil)
	env.links = NewSharedLinkService(SharedLinkServiceDeps{
		Links:      sharedLinkStoreStub{w: w},
		Documents:  docs,
		Versions:   versions,
		Guard:      env.access,
		Signer:     downloadSignerStub{},
		Activity:   env.activitySvc,
		DefaultTTL: 24 * time.Hour,
	}, nil, nil)
	env.folders = NewFolderService(folderStoreStub{w: w}, testAdminDepartment, 4, nil, nil)
	return env
}

// createDocument registers a document owned by ownerActor.
func (e *testEnv) createDocument(mutate ...func(*dto.CreateDocumentRequest)) *models.DocumentDetail {
	req := dto.CreateDocumentRequest{
		Title:      "Travel Policy",
		Department: "Finance",
		Tags:       []string{"Policy", "travel"},
		File:       dto.FileRequest{FilePath: "documents/u1/policy-v1.pdf", FileSize: 2 * models.BytesPerMB, MimeType: "application/pdf"},
	}
	for _, fn := range mutate {
		fn(&req)
	}
	detail, err := e.documents.Create(context.Background(), req, ownerActor)
	if err != nil {
		panic(err)
	}
	return detail
}

func (e *testEnv) uploadVersion(documentID, path string, actor *models.JWTClaims) (*models.DocumentVersion, error) {
	return e.versions.Upload(context.Background(), documentID, dto.UploadVersionRequest{
		File: dto.FileRequest{FilePath: path, FileSize: models.BytesPerMB, MimeType: "application/pdf"},
	}, actor)
}
