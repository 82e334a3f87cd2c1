package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"matchmap/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Local stores blobs below a root directory on disk.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: abs}, nil
}

func (l *Local) Name() string { return "local" }

func (l *Local) fullPath(storagePath string) (string, error) {
	key, err := cleanKey(storagePath)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(key)), nil
}

func (l *Local) Upload(ctx context.Context, storagePath string, body io.Reader, _ string) (n int64, err error) {
	_, span := observability.StartSpan(ctx, "storage.local.upload", attribute.String("storage.path", storagePath))
	defer func() { observability.EndSpan(span, err) }()

	full, err := l.fullPath(storagePath)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err = io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if err = os.Rename(tmp.Name(), full); err != nil {
		return 0, err
	}
	return n, nil
}

func (l *Local) Download(ctx context.Context, storagePath string) ([]byte, error) {
	full, err := l.fullPath(storagePath)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (l *Local) Delete(_ context.Context, storagePath string) error {
	full, err := l.fullPath(storagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) Exists(_ context.Context, storagePath string) (bool, error) {
	full, err := l.fullPath(storagePath)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
