package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
)

func TestResolveFolderKind(t *testing.T) {
	parent := "fold-1"
	assert.Equal(t, models.FolderKindPersonal, ResolveFolderKind(" Personal ", nil, "Finance"))
	assert.Equal(t, models.FolderKindDepartment, ResolveFolderKind("finance", nil, "Finance"))
	assert.Equal(t, models.FolderKindRoot, ResolveFolderKind("Reports", nil, "Finance"))
	assert.Equal(t, models.FolderKindRoot, ResolveFolderKind("Finance", nil, ""))
	assert.Equal(t, models.FolderKindUser, ResolveFolderKind("personal", &parent, "Finance"))
}

func TestFolderServiceEnsureSystemFoldersIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.folders.EnsureSystemFolders(ctx, ownerActor)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, models.FolderKindPersonal, first[0].Kind)
	assert.Equal(t, models.PersonalFolderName, first[0].Name)
	assert.Equal(t, models.FolderKindDepartment, first[1].Kind)
	assert.Equal(t, "Finance", first[1].Name)
	assert.True(t, first[0].Protected && first[1].Protected)

	second, err := env.folders.EnsureSystemFolders(ctx, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[1].ID, second[1].ID)

	colleagueFolders, err := env.folders.EnsureSystemFolders(ctx, colleague)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].ID, colleagueFolders[0].ID)
	assert.Equal(t, first[1].ID, colleagueFolders[1].ID)
	assert.Len(t, env.world.folders, 3)
}

func TestFolderServiceProtectedFoldersRejectArchiveAndDelete(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	system, err := env.folders.EnsureSystemFolders(ctx, ownerActor)
	require.NoError(t, err)

	for _, folder := range system {
		_, err := env.folders.Archive(ctx, folder.ID, ownerActor)
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
		err = env.folders.Delete(ctx, folder.ID, ownerActor)
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
		err = env.folders.Delete(ctx, folder.ID, adminActor)
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
	}
}

func TestFolderServiceLegacyNameRuleStillProtects(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	// A row created before kinds existed: plain user folder named after the department.
	legacy := &models.Folder{Name: "Finance", OwnerID: ownerActor.UserID, Kind: models.FolderKindUser, Status: models.FolderStatusActive}
	require.NoError(t, folderStoreStub{w: env.world}.Create(ctx, legacy))

	_, err := env.folders.Archive(ctx, legacy.ID, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	err = env.folders.Delete(ctx, legacy.ID, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestFolderServiceCreateRejectsDuplicateSystemFolder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	_, err := env.folders.EnsureSystemFolders(ctx, ownerActor)
	require.NoError(t, err)

	_, err = env.folders.Create(ctx, dto.CreateFolderRequest{Name: "personal"}, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = env.folders.Create(ctx, dto.CreateFolderRequest{Name: "Sales", Department: "Sales"}, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestFolderServiceArchiveRestoreDelete(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	folder, err := env.folders.Create(ctx, dto.CreateFolderRequest{Name: "Projects"}, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, models.FolderKindRoot, folder.Kind)
	assert.False(t, folder.Protected)

	_, err = env.folders.Restore(ctx, folder.ID, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidOperation)

	_, err = env.folders.Archive(ctx, folder.ID, colleague)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	archived, err := env.folders.Archive(ctx, folder.ID, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, models.FolderStatusArchived, archived.Status)

	restored, err := env.folders.Restore(ctx, folder.ID, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.FolderStatusActive, restored.Status)

	doc := env.createDocument(func(r *dto.CreateDocumentRequest) { r.FolderID = &folder.ID })
	require.NoError(t, env.folders.Delete(ctx, folder.ID, ownerActor))

	detail, err := env.documents.Get(ctx, doc.ID, ownerActor)
	require.NoError(t, err)
	assert.Nil(t, detail.FolderID)

	_, err = env.folders.Get(ctx, folder.ID, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestFolderServiceChildCreation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	system, err := env.folders.EnsureSystemFolders(ctx, ownerActor)
	require.NoError(t, err)
	departmentFolder := system[1]

	child, err := env.folders.Create(ctx, dto.CreateFolderRequest{Name: "personal", ParentID: &departmentFolder.ID}, colleague)
	require.NoError(t, err)
	assert.Equal(t, models.FolderKindUser, child.Kind)
	assert.Equal(t, "Finance", child.Department)

	_, err = env.folders.Create(ctx, dto.CreateFolderRequest{Name: "Mine", ParentID: &departmentFolder.ID}, outsiderActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	missing := "missing"
	_, err = env.folders.Create(ctx, dto.CreateFolderRequest{Name: "x", ParentID: &missing}, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestFolderServiceUpdate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	system, err := env.folders.EnsureSystemFolders(ctx, ownerActor)
	require.NoError(t, err)
	renamed := "mine"
	_, err = env.folders.Update(ctx, system[0].ID, dto.UpdateFolderRequest{Name: &renamed}, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	folder, err := env.folders.Create(ctx, dto.CreateFolderRequest{Name: "Drafts"}, ownerActor)
	require.NoError(t, err)
	reserved := "personal"
	_, err = env.folders.Update(ctx, folder.ID, dto.UpdateFolderRequest{Name: &reserved}, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	updated, err := env.folders.Update(ctx, folder.ID, dto.UpdateFolderRequest{Name: &renamed, Public: boolPtr(true)}, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, "mine", updated.Name)
	assert.True(t, updated.EffectivePublic)
}

func TestFolderServiceEffectivePublicWalksAncestors(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	root, err := env.folders.Create(ctx, dto.CreateFolderRequest{Name: "Shared", Public: true}, ownerActor)
	require.NoError(t, err)
	middle, err := env.folders.Create(ctx, dto.CreateFolderRequest{Name: "Team", ParentID: &root.ID, Public: false}, ownerActor)
	require.NoError(t, err)
	leaf, err := env.folders.Create(ctx, dto.CreateFolderRequest{Name: "Notes", ParentID: &middle.ID, Public: true}, ownerActor)
	require.NoError(t, err)

	assert.True(t, root.EffectivePublic)
	assert.False(t, leaf.EffectivePublic)

	_, err = env.folders.Update(ctx, middle.ID, dto.UpdateFolderRequest{Public: boolPtr(true)}, ownerActor)
	require.NoError(t, err)
	got, err := env.folders.Get(ctx, leaf.ID, ownerActor)
	require.NoError(t, err)
	assert.True(t, got.EffectivePublic)

	children, err := env.folders.List(ctx, dto.FolderListQuery{ParentID: middle.ID}, ownerActor)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.True(t, children[0].EffectivePublic)
}

func TestFolderServiceEffectivePublicStopsOnCycleAndDepth(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	a, b := "cyc-a", "cyc-b"
	env.world.folders[a] = &models.Folder{ID: a, Name: "A", ParentID: &b, Public: true, OwnerID: ownerActor.UserID}
	env.world.folders[b] = &models.Folder{ID: b, Name: "B", ParentID: &a, Public: true, OwnerID: ownerActor.UserID}

	got, err := env.folders.Get(ctx, a, ownerActor)
	require.NoError(t, err)
	assert.False(t, got.EffectivePublic)

	// Max depth in the test env is 4; a chain of six public folders exceeds it.
	var parent *string
	var last string
	for i := 0; i < 6; i++ {
		id := "deep-" + string(rune('a'+i))
		env.world.folders[id] = &models.Folder{ID: id, Name: id, ParentID: parent, Public: true, OwnerID: ownerActor.UserID}
		pid := id
		parent = &pid
		last = id
	}
	got, err = env.folders.Get(ctx, last, ownerActor)
	require.NoError(t, err)
	assert.False(t, got.EffectivePublic)

	got, err = env.folders.Get(ctx, "deep-c", ownerActor)
	require.NoError(t, err)
	assert.True(t, got.EffectivePublic)
}
