package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ems-docs-api/internal/models"
)

var versionRowColumns = []string{"id", "document_id", "version_number", "file_path", "file_size", "mime_type", "uploaded_by", "created_at", "updated_at"}

func TestVersionRepositoryCreateLocksAndPromotes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVersionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT current_version FROM documents WHERE id = $1 FOR UPDATE")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"current_version"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_versions")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET current_version = $2, current_version_id = $3")).
		WithArgs("doc-1", 2, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	version := &models.DocumentVersion{DocumentID: "doc-1", FilePath: "documents/a/v2.pdf", MimeType: "application/pdf", UploadedBy: "emp-1"}
	require.NoError(t, repo.Create(context.Background(), version))
	assert.Equal(t, 2, version.VersionNumber)
	assert.NotEmpty(t, version.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVersionRepositoryCreateRollsBackWhenPromotionFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVersionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"current_version"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_versions")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET current_version")).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.DocumentVersion{DocumentID: "doc-1", FilePath: "p", MimeType: "text/plain"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVersionRepositoryCreateMissingDocument(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVersionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.DocumentVersion{DocumentID: "ghost"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVersionRepositoryListNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVersionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_versions WHERE document_id = $1 ORDER BY version_number DESC")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(versionRowColumns).
			AddRow("ver-2", "doc-1", 2, "p2", "0.2500", "application/pdf", "emp-1", now, now).
			AddRow("ver-1", "doc-1", 1, "p1", "0.1250", "application/pdf", "emp-1", now, now))

	versions, err := repo.ListByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].VersionNumber)
	assert.InDelta(t, 0.25, versions[0].FileSize, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVersionRepositoryDeleteGuardsCurrent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVersionRepository(db)
	query := regexp.QuoteMeta("DELETE FROM document_versions v USING target t")

	mock.ExpectQuery(query).
		WithArgs("ver-2").
		WillReturnRows(sqlmock.NewRows([]string{"is_current"}).AddRow(true))
	require.ErrorIs(t, repo.Delete(context.Background(), "ver-2"), ErrVersionIsCurrent)

	mock.ExpectQuery(query).
		WithArgs("ver-1").
		WillReturnRows(sqlmock.NewRows([]string{"is_current"}).AddRow(false))
	require.NoError(t, repo.Delete(context.Background(), "ver-1"))

	mock.ExpectQuery(query).
		WithArgs("ver-gone").
		WillReturnRows(sqlmock.NewRows([]string{"is_current"}))
	require.ErrorIs(t, repo.Delete(context.Background(), "ver-gone"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
