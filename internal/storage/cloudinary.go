// Package storage uploads doctor verification documents to file hosting.
package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"medical-booking-server/internal/config"
)

// UploadResult describes a stored file.
type UploadResult struct {
	URL      string `json:"secure_url"`
	PublicID string `json:"public_id"`
	Bytes    int64  `json:"bytes"`
	Format   string `json:"format"`
}

type cloudinaryError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Cloudinary talks to the Cloudinary upload API.
type Cloudinary struct {
	httpClient *resty.Client
	cfg        config.StorageConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewCloudinary creates the client.
func NewCloudinary(cfg config.StorageConfig, logger *zap.Logger) *Cloudinary {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(60 * time.Second).
		SetHeader("Accept", "application/json")

	return &Cloudinary{
		httpClient: client,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Upload sends the file as an authenticated upload into the configured folder.
func (c *Cloudinary) Upload(ctx context.Context, name string, content io.Reader) (*UploadResult, error) {
	params := map[string]string{
		"folder":    c.cfg.Folder,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	form := c.signed(params)

	var result UploadResult
	var apiErr cloudinaryError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFileReader("file", name, content).
		SetFormData(form).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/%s/auto/upload", c.cfg.CloudName))
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("cloudinary upload rejected",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", apiErr.Error.Message))
		return nil, fmt.Errorf("cloudinary upload: %s (status %d)", apiErr.Error.Message, resp.StatusCode())
	}

	c.logger.Info("document uploaded", zap.String("public_id", result.PublicID), zap.Int64("bytes", result.Bytes))
	return &result, nil
}

// Delete removes a previously uploaded file.
func (c *Cloudinary) Delete(ctx context.Context, publicID string) error {
	form := c.signed(map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	})

	var apiErr cloudinaryError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(form).
		SetError(&apiErr).
		Post(fmt.Sprintf("/%s/image/destroy", c.cfg.CloudName))
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("cloudinary destroy: %s (status %d)", apiErr.Error.Message, resp.StatusCode())
	}
	return nil
}

// signed adds api_key and signature. Cloudinary signs the sorted
// "k=v&k=v" parameters followed by the secret with SHA-1.
func (c *Cloudinary) signed(params map[string]string) map[string]string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.cfg.APISecret))

	form := make(map[string]string, len(params)+2)
	for k, v := range params {
		form[k] = v
	}
	form["api_key"] = c.cfg.APIKey
	form["signature"] = hex.EncodeToString(sum[:])
	return form
}
