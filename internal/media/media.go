// Package media uploads product images to the hosted image service.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"stockboard/internal/config"

	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("image upload endpoint is not configured")
	ErrMissingURL    = errors.New("upload response has no secure_url")
)

// maxErrorBody caps how much of a failed response is kept on UploadError.
const maxErrorBody = 4 << 10

// File is one image to upload.
type File struct {
	Name   string
	Reader io.Reader
}

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, file File) (string, error)
}

// UploadError is returned when the image service answers with a non-2xx
// status.
type UploadError struct {
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("image upload failed with status %d", e.StatusCode)
}

type Client struct {
	endpoint   string
	preset     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg config.MediaConfig, logger *zap.Logger) *Client {
	return &Client{
		endpoint:   cfg.UploadURL,
		preset:     cfg.UploadPreset,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Upload posts file as multipart form data with the configured upload preset.
func (c *Client) Upload(ctx context.Context, file File) (string, error) {
	if c.endpoint == "" {
		return "", ErrNotConfigured
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file.Reader); err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", file.Name, err)
	}
	if err := writer.WriteField("upload_preset", c.preset); err != nil {
		return "", fmt.Errorf("failed to write upload preset: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("Image upload rejected",
			zap.String("file", file.Name),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return "", &UploadError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var result struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if result.SecureURL == "" {
		return "", ErrMissingURL
	}

	c.logger.Info("Image uploaded",
		zap.String("file", file.Name),
		zap.Duration("duration", time.Since(start)),
	)
	return result.SecureURL, nil
}

// UploadAll uploads files one at a time in order and stops at the first
// failure. Images uploaded before the failure are not removed.
func UploadAll(ctx context.Context, uploader Uploader, files []File) ([]string, error) {
	urls := make([]string, 0, len(files))
	for i, file := range files {
		url, err := uploader.Upload(ctx, file)
		if err != nil {
			return urls, fmt.Errorf("failed to upload image %d of %d: %w", i+1, len(files), err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}
