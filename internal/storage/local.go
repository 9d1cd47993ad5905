package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Local keeps files on disk. Used in development when Cloudinary is not configured.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates the directory if needed.
func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the directory files are written to.
func (l *Local) Dir() string { return l.dir }

func (l *Local) Upload(_ context.Context, name string, content io.Reader) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(name))
	publicID := uuid.New().String() + ext

	path := filepath.Join(l.dir, publicID)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}
	return &UploadResult{
		URL:      l.baseURL + "/" + publicID,
		PublicID: publicID,
		Bytes:    n,
		Format:   strings.TrimPrefix(ext, "."),
	}, nil
}

func (l *Local) Delete(_ context.Context, publicID string) error {
	err := os.Remove(filepath.Join(l.dir, filepath.Base(publicID)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
