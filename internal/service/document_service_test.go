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

func TestDocumentServiceCreate(t *testing.T) {
	env := newTestEnv()
	detail := env.createDocument(func(r *dto.CreateDocumentRequest) {
		r.Tags = []string{" Policy", "travel", "policy", ""}
	})

	assert.Equal(t, ownerActor.UserID, detail.UploadedBy)
	assert.Equal(t, models.DocumentStatusActive, detail.Status)
	assert.Equal(t, 1, detail.CurrentVersion)
	assert.Equal(t, []string{"policy", "travel"}, detail.Tags)
	require.NotNil(t, detail.Current)
	assert.Equal(t, 2.0, detail.Current.FileSize)
	assert.Equal(t, *detail.CurrentVersionID, detail.Current.ID)
	assert.True(t, detail.Access.IsOwner)
	assert.Equal(t, models.AccessManage, detail.Access.Level)
	assert.Equal(t, []string{models.LogActionCreated}, env.activity.actions(detail.ID))
}

func TestDocumentServiceCreateValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.documents.Create(ctx, dto.CreateDocumentRequest{Title: "  "}, ownerActor)
	require.Error(t, err)
	fields := appErrors.FromError(err).Fields
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "file.filePath")

	_, err = env.documents.Create(ctx, dto.CreateDocumentRequest{}, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	missingFolder := "nope"
	_, err = env.documents.Create(ctx, dto.CreateDocumentRequest{
		Title:    "Doc",
		FolderID: &missingFolder,
		File:     dto.FileRequest{FilePath: "documents/a/b.pdf", MimeType: "application/pdf"},
	}, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	env.documents.files = fileResolverStub{err: appErrors.Clone(appErrors.ErrUploadFailed, "uploaded file not found")}
	_, err = env.documents.Create(ctx, dto.CreateDocumentRequest{
		Title: "Doc",
		File:  dto.FileRequest{FilePath: "documents/a/b.pdf", MimeType: "application/pdf"},
	}, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrUploadFailed)
}

func TestDocumentServiceCreateDraftIntoArchivedFolder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	folder, err := env.folders.Create(ctx, dto.CreateFolderRequest{Name: "Reports"}, ownerActor)
	require.NoError(t, err)
	_, err = env.folders.Archive(ctx, folder.ID, ownerActor)
	require.NoError(t, err)

	_, err = env.documents.Create(ctx, dto.CreateDocumentRequest{
		Title:    "Q1",
		FolderID: &folder.ID,
		Draft:    true,
		File:     dto.FileRequest{FilePath: "documents/a/q1.pdf", MimeType: "application/pdf"},
	}, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidOperation)
}

func TestDocumentServiceGetEnforcesView(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.createDocument()

	_, err := env.documents.Get(ctx, doc.ID, outsiderActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	detail, err := env.documents.Get(ctx, doc.ID, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.AccessManage, detail.Access.Level)
	assert.False(t, detail.Access.IsOwner)

	_, err = env.documents.Get(ctx, "missing", ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDocumentServiceListAnnotatesAccess(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	private := env.createDocument(func(r *dto.CreateDocumentRequest) { r.Title = "Private" })
	public := env.createDocument(func(r *dto.CreateDocumentRequest) { r.Title = "Public"; r.Public = true })
	departmental := env.createDocument(func(r *dto.CreateDocumentRequest) { r.Title = "Dept"; r.Departmental = true })

	items, pagination, err := env.documents.List(ctx, dto.DocumentListQuery{}, outsiderActor)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, public.ID, items[0].ID)
	assert.Equal(t, models.AccessView, items[0].Access)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)

	items, _, err = env.documents.List(ctx, dto.DocumentListQuery{}, colleague)
	require.NoError(t, err)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	assert.ElementsMatch(t, []string{public.ID, departmental.ID}, ids)

	items, _, err = env.documents.List(ctx, dto.DocumentListQuery{}, adminActor)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	for _, item := range items {
		assert.Equal(t, models.AccessManage, item.Access)
	}
	_ = private

	_, _, err = env.documents.List(ctx, dto.DocumentListQuery{Status: "deleted"}, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestDocumentServiceUpdate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.createDocument()
	title := "Travel Policy 2024"
	tags := []string{"Finance"}

	_, err := env.documents.Update(ctx, doc.ID, dto.UpdateDocumentRequest{Title: &title}, colleague)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = env.sharing.AddShare(ctx, doc.ID, dto.AddShareRequest{Email: colleague.Email, Level: "edit"}, ownerActor)
	require.NoError(t, err)
	updated, err := env.documents.Update(ctx, doc.ID, dto.UpdateDocumentRequest{Title: &title, Tags: &tags}, colleague)
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, []string{"finance"}, updated.Tags)
	assert.Equal(t, models.AccessEdit, updated.Access.Level)
	assert.Equal(t, 1, updated.CurrentVersion)
	assert.Contains(t, env.activity.actions(doc.ID), models.LogActionUpdated)
}

func TestDocumentServiceUpdateDepartmentMovesGrant(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.createDocument()
	_, err := env.sharing.UpdateDepartmentAccess(ctx, doc.ID, dto.DepartmentAccessRequest{Enabled: boolPtr(true), Level: "edit"}, ownerActor)
	require.NoError(t, err)

	sales := "Sales"
	_, err = env.documents.Update(ctx, doc.ID, dto.UpdateDocumentRequest{Department: &sales}, ownerActor)
	require.NoError(t, err)

	_, summary, err := env.access.Resolve(ctx, doc.ID, outsiderActor)
	require.NoError(t, err)
	assert.Equal(t, models.AccessEdit, summary.Level)
	_, summary, err = env.access.Resolve(ctx, doc.ID, colleague)
	require.NoError(t, err)
	assert.Equal(t, models.AccessNone, summary.Level)

	state, err := env.sharing.State(ctx, doc.ID, ownerActor)
	require.NoError(t, err)
	require.NotNil(t, state.DepartmentLevel)
	assert.Equal(t, models.AccessEdit, *state.DepartmentLevel)
}

func TestDocumentServiceUpdateFolderMoves(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.createDocument()
	folder, err := env.folders.Create(ctx, dto.CreateFolderRequest{Name: "Policies"}, ownerActor)
	require.NoError(t, err)

	moved, err := env.documents.Update(ctx, doc.ID, dto.UpdateDocumentRequest{FolderID: &folder.ID}, ownerActor)
	require.NoError(t, err)
	require.NotNil(t, moved.FolderID)
	assert.Equal(t, folder.ID, *moved.FolderID)

	unfiled, err := env.documents.Update(ctx, doc.ID, dto.UpdateDocumentRequest{Unfile: true}, ownerActor)
	require.NoError(t, err)
	assert.Nil(t, unfiled.FolderID)
}

func TestDocumentServiceLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.createDocument()

	_, err := env.documents.Restore(ctx, doc.ID, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidOperation)
	_, err = env.documents.Publish(ctx, doc.ID, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidOperation)

	archived, err := env.documents.Archive(ctx, doc.ID, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusArchived, archived.Status)

	_, err = env.documents.Archive(ctx, doc.ID, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidOperation)

	restored, err := env.documents.Restore(ctx, doc.ID, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusActive, restored.Status)

	assert.Equal(t, []string{models.LogActionCreated, models.LogActionArchived, models.LogActionRestored}, env.activity.actions(doc.ID))
}

func TestDocumentServicePublishDraft(t *testing.T) {
	env := newTestEnv()
	doc := env.createDocument(func(r *dto.CreateDocumentRequest) { r.Draft = true })
	require.Equal(t, models.DocumentStatusDraft, doc.Status)

	published, err := env.documents.Publish(context.Background(), doc.ID, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusActive, published.Status)
}

func TestDocumentServiceLifecycleRequiresManage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.createDocument()
	_, err := env.sharing.AddShare(ctx, doc.ID, dto.AddShareRequest{Email: colleague.Email, Level: "edit"}, ownerActor)
	require.NoError(t, err)

	_, err = env.documents.Archive(ctx, doc.ID, colleague)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	err = env.documents.Delete(ctx, doc.ID, colleague)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestDocumentServiceDeleteCascadesAndSchedulesCleanup(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.createDocument()
	_, err := env.uploadVersion(doc.ID, "documents/u2/v2.pdf", ownerActor)
	require.NoError(t, err)
	_, err = env.sharing.AddShare(ctx, doc.ID, dto.AddShareRequest{Email: colleague.Email, Level: "view"}, ownerActor)
	require.NoError(t, err)

	require.NoError(t, env.documents.Delete(ctx, doc.ID, ownerActor))
	assert.ElementsMatch(t, []string{"documents/u1/policy-v1.pdf", "documents/u2/v2.pdf"}, env.cleanup.keys)
	assert.Empty(t, env.world.access)

	_, err = env.documents.Get(ctx, doc.ID, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDocumentServiceActivityFailureDoesNotFailWrite(t *testing.T) {
	env := newTestEnv()
	env.activity.failLog = true
	doc := env.createDocument()

	archived, err := env.documents.Archive(context.Background(), doc.ID, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusArchived, archived.Status)
}
