package markers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Detector finds fiducial markers in an encoded camera image.
type Detector interface {
	Detect(ctx context.Context, image []byte, filename string) (DetectionResult, error)
}

// HTTPDetector calls an external marker detection service.
type HTTPDetector struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPDetector returns a client for the service at baseURL.
func NewHTTPDetector(baseURL string, timeout time.Duration) *HTTPDetector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPDetector{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Detect uploads image to /detect as multipart field "image".
func (d *HTTPDetector) Detect(ctx context.Context, image []byte, filename string) (DetectionResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return DetectionResult{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return DetectionResult{}, fmt.Errorf("failed to copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return DetectionResult{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+"/detect", &buf)
	if err != nil {
		return DetectionResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := d.Client.Do(req)
	if err != nil {
		return DetectionResult{}, fmt.Errorf("detector request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return DetectionResult{}, fmt.Errorf("failed to read detector response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return DetectionResult{}, fmt.Errorf("%w: HTTP %d: %s", ErrDetector, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result DetectionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return DetectionResult{}, fmt.Errorf("failed to decode detector response: %w", err)
	}
	if result.Error != "" {
		return result, fmt.Errorf("%w: %s", ErrDetector, result.Error)
	}

	slog.Debug("Markers detected",
		"count", len(result.Markers),
		"ids", result.IDs(),
		"image_width", result.ImageWidth,
		"image_height", result.ImageHeight,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// Health checks the service's /health endpoint.
func (d *HTTPDetector) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("detector health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var status struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || status.Status != "ok" {
		return fmt.Errorf("%w: unhealthy (HTTP %d, status %q)", ErrDetector, resp.StatusCode, status.Status)
	}
	return nil
}
