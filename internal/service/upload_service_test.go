package service

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
	"github.com/noah-isme/ems-docs-api/pkg/storage"
)

func newUploadServiceForTest(t *testing.T, publicBase string) (*UploadService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewUploadService(store, signer, UploadConfig{
		APIPrefix:     "/api/v1/",
		PublicBaseURL: publicBase,
		MaxFileSize:   1024,
		AllowedMIMEs:  []string{"application/pdf", "text/plain"},
	}, nil, nil)
	return svc, store
}

func tokenFromPresigned(t *testing.T, presigned string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(presigned, "/api/v1/uploads/"))
	return strings.TrimPrefix(presigned, "/api/v1/uploads/")
}

func TestUploadServicePresignPutResolve(t *testing.T) {
	svc, _ := newUploadServiceForTest(t, "")
	ctx := context.Background()

	presign, err := svc.Presign(ctx, dto.PresignRequest{Filename: "../Quarterly Report (final).pdf", ContentType: "application/pdf; charset=binary", Size: 11}, ownerActor)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(presign.Key, "documents/"))
	assert.True(t, strings.HasSuffix(presign.Key, "/Quarterly_Report_final.pdf"))
	assert.Equal(t, "/api/v1/files/"+presign.Key, presign.PublicURL)

	result, err := svc.Put(ctx, tokenFromPresigned(t, presign.PresignedURL), bytes.NewReader([]byte("hello world")), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(11), result.Size)
	assert.Equal(t, presign.Key, result.Key)

	meta, err := svc.ResolveFile(ctx, dto.FileRequest{FilePath: presign.PublicURL, MimeType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, presign.Key, meta.FilePath)
	assert.Equal(t, int64(11), meta.SizeBytes)

	meta, err = svc.ResolveFile(ctx, dto.FileRequest{FilePath: presign.Key, MimeType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, presign.Key, meta.FilePath)
}

func TestUploadServicePresignRejectsFiles(t *testing.T) {
	svc, _ := newUploadServiceForTest(t, "")
	ctx := context.Background()

	_, err := svc.Presign(ctx, dto.PresignRequest{Filename: "big.pdf", ContentType: "application/pdf", Size: 4096}, ownerActor)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "size")

	_, err = svc.Presign(ctx, dto.PresignRequest{Filename: "run.exe", ContentType: "application/x-msdownload", Size: 10}, ownerActor)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "contentType")

	_, err = svc.Presign(ctx, dto.PresignRequest{Filename: "a.pdf", ContentType: "application/pdf", Size: 10}, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestUploadServicePutRejectsBadTokensAndOversize(t *testing.T) {
	svc, store := newUploadServiceForTest(t, "")
	ctx := context.Background()

	_, err := svc.Put(ctx, "garbage", strings.NewReader("x"), "application/pdf")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	presign, err := svc.Presign(ctx, dto.PresignRequest{Filename: "a.txt", ContentType: "text/plain", Size: 3}, ownerActor)
	require.NoError(t, err)
	token := tokenFromPresigned(t, presign.PresignedURL)

	_, err = svc.Put(ctx, token, strings.NewReader("abc"), "application/pdf")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Put(ctx, token, strings.NewReader("abcdef"), "text/plain")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = store.Stat(ctx, presign.Key)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestUploadServiceResolveFileMissingBlob(t *testing.T) {
	svc, _ := newUploadServiceForTest(t, "https://cdn.example.com/bucket")
	ctx := context.Background()

	_, err := svc.ResolveFile(ctx, dto.FileRequest{FilePath: "https://cdn.example.com/bucket/documents/x/none.pdf", MimeType: "application/pdf"})
	assert.ErrorIs(t, err, appErrors.ErrUploadFailed)

	_, err = svc.ResolveFile(ctx, dto.FileRequest{FilePath: "../../etc/passwd", MimeType: "application/pdf"})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "file.filePath")
}

func TestUploadServiceKeyFromPath(t *testing.T) {
	svc, _ := newUploadServiceForTest(t, "https://cdn.example.com/bucket")

	key, err := svc.KeyFromPath("https://cdn.example.com/bucket/documents/a/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents/a/b.pdf", key)

	key, err = svc.KeyFromPath("/api/v1/files/documents/a/b.pdf?token=abc")
	require.NoError(t, err)
	assert.Equal(t, "documents/a/b.pdf", key)

	key, err = svc.KeyFromPath("https://api.example.com/api/v1/files/documents/a/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents/a/b.pdf", key)

	assert.Equal(t, "https://cdn.example.com/bucket/documents/a/b.pdf", svc.PublicURL("documents/a/b.pdf"))
}

func TestUploadServiceDownloadRoundTrip(t *testing.T) {
	svc, store := newUploadServiceForTest(t, "")
	ctx := context.Background()
	_, err := store.Put(ctx, "documents/a/notes.txt", strings.NewReader("notes"), "text/plain")
	require.NoError(t, err)

	link, _, err := svc.DownloadURL("documents/a/notes.txt", "text/plain")
	require.NoError(t, err)
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/files/documents/a/notes.txt", parsed.Path)

	download, err := svc.Open(ctx, "documents/a/notes.txt", parsed.Query().Get("token"))
	require.NoError(t, err)
	defer download.Reader.Close()
	body, err := io.ReadAll(download.Reader)
	require.NoError(t, err)
	assert.Equal(t, "notes", string(body))
	assert.Equal(t, "text/plain", download.ContentType)
	assert.Equal(t, "notes.txt", download.Filename)

	_, err = svc.Open(ctx, "documents/a/other.txt", parsed.Query().Get("token"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Open(ctx, "documents/a/notes.txt", "bad")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
