// Package files serves stored request documents to tenant members and to
// the workflow engine through signed URLs.
package files

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"matchmap/internal/domain/request"
	"matchmap/internal/domain/tenant"
	"matchmap/internal/infrastructure/storage"
	"matchmap/internal/pkg/logger"
	"matchmap/internal/pkg/signature"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("file not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type FileReader interface {
	GetFile(ctx context.Context, kind request.FileKind, fileID uuid.UUID) (request.OwnedFile, error)
}

type TenantReader interface {
	GetBySlug(ctx context.Context, slug string) (tenant.Tenant, error)
}

type Content struct {
	File request.File
	Data []byte
}

type Service struct {
	files   FileReader
	tenants TenantReader
	storage storage.Provider
	signer  *signature.URLSigner
	logger  logger.Logger
}

func NewService(files FileReader, tenants TenantReader, store storage.Provider, signer *signature.URLSigner, log logger.Logger) *Service {
	return &Service{files: files, tenants: tenants, storage: store, signer: signer, logger: logger.OrNop(log).WithFields(map[string]interface{}{"component": "files"})}
}

// Download returns a file of the caller's tenant.
func (s *Service) Download(ctx context.Context, actx tenant.AuthenticatedTenantContext, fileID uuid.UUID, kind request.FileKind) (Content, error) {
	if !actx.Valid() {
		return Content{}, ErrUnauthenticated
	}
	return s.fetch(ctx, actx.TenantID, fileID, kind)
}

// DownloadWithToken authorizes by a URL token issued for slug, file and kind.
func (s *Service) DownloadWithToken(ctx context.Context, slug string, fileID uuid.UUID, kind request.FileKind, exp, token string) (Content, error) {
	if s.signer == nil {
		return Content{}, ErrUnauthenticated
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if err := s.signer.Verify(slug, fileID, string(kind), token, exp); err != nil {
		s.logger.Warn("signed file url rejected", map[string]interface{}{"slug": slug, "file_id": fileID.String(), "error": err})
		return Content{}, ErrUnauthenticated
	}

	t, err := s.tenants.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return Content{}, ErrNotFound
		}
		return Content{}, fmt.Errorf("load tenant: %w", err)
	}
	return s.fetch(ctx, t.ID, fileID, kind)
}

func (s *Service) fetch(ctx context.Context, tenantID, fileID uuid.UUID, kind request.FileKind) (Content, error) {
	f, err := s.files.GetFile(ctx, kind, fileID)
	if err != nil {
		if errors.Is(err, request.ErrFileNotFound) {
			return Content{}, ErrNotFound
		}
		return Content{}, fmt.Errorf("load file: %w", err)
	}
	if f.TenantID != tenantID {
		return Content{}, ErrForbidden
	}

	data, err := s.storage.Download(ctx, f.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("file row without blob", map[string]interface{}{"file_id": f.ID.String(), "path": f.StoragePath})
			return Content{}, ErrNotFound
		}
		return Content{}, fmt.Errorf("read blob: %w", err)
	}
	return Content{File: f.File, Data: data}, nil
}
