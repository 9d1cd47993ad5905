package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medical-booking-server/internal/config"
)

func newTestCloudinary(serverURL string) *Cloudinary {
	c := NewCloudinary(config.StorageConfig{
		CloudName: "demo",
		APIKey:    "key",
		APISecret: "secret",
		Folder:    "docs",
		BaseURL:   serverURL,
	}, zap.NewNop())
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestCloudinary_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/auto/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		sum := sha1.Sum([]byte("folder=docs&timestamp=1700000000secret"))
		assert.Equal(t, hex.EncodeToString(sum[:]), r.FormValue("signature"))
		assert.Equal(t, "key", r.FormValue("api_key"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		body, _ := io.ReadAll(file)
		assert.Equal(t, "crm.pdf", header.Filename)
		assert.Equal(t, "pdf-bytes", string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"secure_url":"https://res.example/docs/abc.pdf","public_id":"docs/abc","bytes":9,"format":"pdf"}`))
	}))
	defer srv.Close()

	res, err := newTestCloudinary(srv.URL).Upload(context.Background(), "crm.pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/docs/abc.pdf", res.URL)
	assert.Equal(t, "docs/abc", res.PublicID)
	assert.Equal(t, int64(9), res.Bytes)
}

func TestCloudinary_UploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer srv.Close()

	_, err := newTestCloudinary(srv.URL).Upload(context.Background(), "x.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Signature")
}

func TestCloudinary_Delete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/destroy", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "docs/abc", r.FormValue("public_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	assert.NoError(t, newTestCloudinary(srv.URL).Delete(context.Background(), "docs/abc"))
}

func TestLocal_UploadAndDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	l, err := NewLocal(dir, "http://localhost:3001/uploads/")
	require.NoError(t, err)

	res, err := l.Upload(context.Background(), "Diploma.PDF", strings.NewReader("content"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.PublicID, ".pdf"))
	assert.Equal(t, "http://localhost:3001/uploads/"+res.PublicID, res.URL)
	assert.Equal(t, int64(7), res.Bytes)

	data, err := os.ReadFile(filepath.Join(dir, res.PublicID))
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	require.NoError(t, l.Delete(context.Background(), res.PublicID))
	require.NoError(t, l.Delete(context.Background(), res.PublicID))
	_, err = os.Stat(filepath.Join(dir, res.PublicID))
	assert.True(t, os.IsNotExist(err))
}

type brokenReader struct{}

func (brokenReader) Read(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestLocal_UploadFailureLeavesNoFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	l, err := NewLocal(dir, "http://localhost:3001/uploads")
	require.NoError(t, err)

	_, err = l.Upload(context.Background(), "crm.pdf", io.MultiReader(strings.NewReader("partial"), brokenReader{}))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
