package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
)

func TestActivityServiceComments(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.createDocument(func(r *dto.CreateDocumentRequest) { r.Public = true })

	first, err := env.activitySvc.AddComment(ctx, doc.ID, dto.CreateCommentRequest{Content: "  first  "}, outsiderActor)
	require.NoError(t, err)
	assert.Equal(t, "first", first.Content)
	_, err = env.activitySvc.AddComment(ctx, doc.ID, dto.CreateCommentRequest{Content: "second"}, ownerActor)
	require.NoError(t, err)

	comments, pagination, err := env.activitySvc.ListComments(ctx, doc.ID, dto.PageQuery{}, colleague)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0].Content)
	assert.Equal(t, 50, pagination.PageSize)

	_, err = env.activitySvc.AddComment(ctx, doc.ID, dto.CreateCommentRequest{Content: " "}, ownerActor)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestActivityServiceCommentRequiresView(t *testing.T) {
	env := newTestEnv()
	doc := env.createDocument()
	_, err := env.activitySvc.AddComment(context.Background(), doc.ID, dto.CreateCommentRequest{Content: "hi"}, outsiderActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestActivityServiceListLogsPaginates(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.createDocument()
	for i := 0; i < 4; i++ {
		env.activitySvc.Record(ctx, doc.ID, ownerActor.UserID, models.LogActionUpdated, "title")
	}

	logs, pagination, err := env.activitySvc.ListLogs(ctx, doc.ID, dto.PageQuery{Page: 2, PageSize: 2}, ownerActor)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 5, pagination.TotalCount)
	assert.Equal(t, 2, pagination.Page)

	logs, _, err = env.activitySvc.ListLogs(ctx, doc.ID, dto.PageQuery{Page: 3, PageSize: 2}, ownerActor)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.LogActionCreated, logs[0].Action)
}

func TestActivityServiceExportLogs(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	doc := env.createDocument(func(r *dto.CreateDocumentRequest) { r.Departmental = true })

	file, err := env.activitySvc.ExportLogs(ctx, doc.ID, dto.ExportFormatCSV, ownerActor)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.Contains(string(file.Content), models.LogActionCreated))

	_, err = env.activitySvc.ExportLogs(ctx, doc.ID, dto.ExportFormatCSV, colleague)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
