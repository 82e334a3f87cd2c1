// Package storage holds the blob store strategies. One Provider is chosen at
// startup from configuration and injected where files are read or written.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"matchmap/internal/config"
	"matchmap/internal/domain/request"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("storage object not found")
	ErrInvalidPath = errors.New("invalid storage path")
)

type Provider interface {
	Name() string
	Upload(ctx context.Context, storagePath string, body io.Reader, contentType string) (int64, error)
	Download(ctx context.Context, storagePath string) ([]byte, error)
	Delete(ctx context.Context, storagePath string) error
	Exists(ctx context.Context, storagePath string) (bool, error)
}

// New selects the provider named by cfg.Provider.
func New(ctx context.Context, cfg config.StorageConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocal(cfg.Local.Dir)
	case "s3":
		return NewS3(ctx, cfg.S3)
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	underscores = regexp.MustCompile(`_{2,}`)
)

// SanitizeFilename keeps [a-zA-Z0-9._-], collapses underscore runs and adds
// an 8 hex char suffix before the extension.
func SanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = underscores.ReplaceAllString(name, "_")

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" || base == "." {
		base = "file"
	}
	return base + "_" + randomHex(4) + ext
}

// BuildPath lays blobs out as tenant/request/kind/file.
func BuildPath(tenantID, requestID uuid.UUID, kind request.FileKind, filename string) string {
	return path.Join(tenantID.String(), requestID.String(), string(kind), SanitizeFilename(filename))
}

func cleanKey(storagePath string) (string, error) {
	p := strings.TrimLeft(strings.ReplaceAll(storagePath, "\\", "/"), "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:n*2]
	}
	return hex.EncodeToString(b)
}
