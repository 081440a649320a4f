package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ems-docs-api/internal/dto"
	"github.com/noah-isme/ems-docs-api/internal/models"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
	"github.com/noah-isme/ems-docs-api/pkg/storage"
)

type blobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Stat(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

type storageURLSigner interface {
	Sign(claims storage.TokenClaims) (string, time.Time, error)
	Verify(token, purpose string) (*storage.TokenClaims, error)
}

// UploadConfig holds validation parameters and URL layout for direct uploads.
type UploadConfig struct {
	APIPrefix     string
	PublicBaseURL string
	MaxFileSize   int64
	AllowedMIMEs  []string
}

// BlobDownload bundles a stored object reader for streaming.
type BlobDownload struct {
	Reader      io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// UploadService issues presigned upload URLs, accepts the bytes and serves stored blobs.
type UploadService struct {
	store     blobStore
	signer    storageURLSigner
	cfg       UploadConfig
	mimeSet   map[string]struct{}
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUploadService constructs the service with defaults.
func NewUploadService(store blobStore, signer storageURLSigner, cfg UploadConfig, validate *validator.Validate, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"image/png",
			"image/jpeg",
			"text/plain",
		}
	}
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}
	return &UploadService{store: store, signer: signer, cfg: cfg, mimeSet: mimeSet, validator: validate, logger: logger}
}

// Presign validates the intended upload and returns where to PUT it.
func (s *UploadService) Presign(ctx context.Context, req dto.PresignRequest, actor *models.JWTClaims) (*dto.PresignResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid upload request")
	}
	contentType := normalizeMIME(req.ContentType)
	if err := s.checkFile(contentType, req.Size); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("documents/%s/%s", uuid.NewString(), sanitizeObjectName(req.Filename))
	token, expiresAt, err := s.signer.Sign(storage.TokenClaims{
		Purpose:     storage.PurposeUpload,
		Key:         key,
		ContentType: contentType,
		MaxSize:     req.Size,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign upload url")
	}
	s.logger.Debug("upload presigned", zap.String("key", key), zap.String("user_id", actor.UserID))
	return &dto.PresignResponse{
		PresignedURL: fmt.Sprintf("%s/uploads/%s", s.cfg.APIPrefix, token),
		Key:          key,
		PublicURL:    s.PublicURL(key),
		ExpiresAt:    expiresAt,
	}, nil
}

// Put stores the body of a presigned upload. Storage failures surface as UploadFailed.
func (s *UploadService) Put(ctx context.Context, token string, body io.Reader, contentType string) (*dto.UploadResult, error) {
	claims, err := s.signer.Verify(token, storage.PurposeUpload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired upload token")
	}
	if contentType != "" && claims.ContentType != "" && normalizeMIME(contentType) != claims.ContentType {
		return nil, appErrors.WithFields("content type does not match the presigned upload", map[string]string{"contentType": "must be " + claims.ContentType})
	}
	limit := claims.MaxSize
	if limit <= 0 || limit > s.cfg.MaxFileSize {
		limit = s.cfg.MaxFileSize
	}
	written, err := s.store.Put(ctx, claims.Key, io.LimitReader(body, limit+1), claims.ContentType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to store upload")
	}
	if written > limit {
		if delErr := s.store.Delete(ctx, claims.Key); delErr != nil {
			s.logger.Warn("failed to remove oversized upload", zap.String("key", claims.Key), zap.Error(delErr))
		}
		return nil, appErrors.WithFields("upload exceeds the declared size", map[string]string{"size": fmt.Sprintf("must be at most %d bytes", limit)})
	}
	return &dto.UploadResult{Key: claims.Key, PublicURL: s.PublicURL(claims.Key), Size: written}, nil
}

// ResolveFile validates a file reference from a create/version request against what is actually stored.
func (s *UploadService) ResolveFile(ctx context.Context, req dto.FileRequest) (models.FileMeta, error) {
	key, err := s.KeyFromPath(req.FilePath)
	if err != nil {
		return models.FileMeta{}, appErrors.WithFields("invalid file reference", map[string]string{"file.filePath": err.Error()})
	}
	contentType := normalizeMIME(req.MimeType)
	size, err := s.store.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return models.FileMeta{}, appErrors.Clone(appErrors.ErrUploadFailed, "uploaded file not found, retry the upload")
		}
		return models.FileMeta{}, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to inspect uploaded file")
	}
	if err := s.checkFile(contentType, size); err != nil {
		return models.FileMeta{}, err
	}
	return models.FileMeta{FilePath: key, SizeBytes: size, MimeType: contentType}, nil
}

// KeyFromPath accepts a bare key, a public URL or a files URL and returns the object key.
func (s *UploadService) KeyFromPath(filePath string) (string, error) {
	raw := strings.TrimSpace(filePath)
	if s.cfg.PublicBaseURL != "" && strings.HasPrefix(raw, s.cfg.PublicBaseURL+"/") {
		raw = strings.TrimPrefix(raw, s.cfg.PublicBaseURL+"/")
	} else if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("malformed url")
		}
		raw = parsed.Path
	}
	if idx := strings.Index(raw, "?"); idx >= 0 {
		raw = raw[:idx]
	}
	filesPrefix := s.cfg.APIPrefix + "/files/"
	if strings.HasPrefix(raw, filesPrefix) {
		raw = strings.TrimPrefix(raw, filesPrefix)
	}
	return storage.CleanKey(raw)
}

// PublicURL is the stable reference returned to clients for a key.
func (s *UploadService) PublicURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return s.cfg.PublicBaseURL + "/" + key
	}
	return s.cfg.APIPrefix + "/files/" + key
}

// DownloadURL signs a short lived URL serving the object.
func (s *UploadService) DownloadURL(key, contentType string) (string, time.Time, error) {
	token, expiresAt, err := s.signer.Sign(storage.TokenClaims{Purpose: storage.PurposeDownload, Key: key, ContentType: contentType})
	if err != nil {
		return "", time.Time{}, appErrors.Internal(err, "failed to sign download url")
	}
	return fmt.Sprintf("%s/files/%s?token=%s", s.cfg.APIPrefix, key, url.QueryEscape(token)), expiresAt, nil
}

// Open verifies a download token for key and opens the object.
func (s *UploadService) Open(ctx context.Context, key, token string) (*BlobDownload, error) {
	cleaned, err := storage.CleanKey(key)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	claims, err := s.signer.Verify(token, storage.PurposeDownload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	if claims.Key != cleaned {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token does not match file")
	}
	reader, size, err := s.store.Open(ctx, cleaned)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Internal(err, "failed to open file")
	}
	contentType := claims.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &BlobDownload{Reader: reader, Filename: path.Base(cleaned), ContentType: contentType, Size: size}, nil
}

func (s *UploadService) checkFile(contentType string, size int64) error {
	fields := map[string]string{}
	if size <= 0 {
		fields["size"] = "file is empty"
	} else if size > s.cfg.MaxFileSize {
		fields["size"] = fmt.Sprintf("must be at most %d bytes", s.cfg.MaxFileSize)
	}
	if _, ok := s.mimeSet[contentType]; !ok {
		fields["contentType"] = "mime type not allowed"
	}
	if len(fields) > 0 {
		return appErrors.WithFields("file rejected", fields)
	}
	return nil
}

func normalizeMIME(raw string) string {
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return strings.ToLower(mediaType)
}

func sanitizeObjectName(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), ".")
	if cleaned == "" {
		cleaned = "file"
	}
	if len(cleaned) > 120 {
		cleaned = cleaned[len(cleaned)-120:]
	}
	return cleaned
}
