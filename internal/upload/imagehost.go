// Package upload sends payment receipts to the external image host.
package upload

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

var ErrUploadRejected = errors.New("image host rejected upload")

type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Retries  int
}

// ImageHost uploads base64 images to an imgbb-compatible endpoint.
type ImageHost struct {
	client   *retryablehttp.Client
	endpoint string
	apiKey   string
}

func NewImageHost(cfg Config, log *slog.Logger) *ImageHost {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 3 * time.Second
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = log
	return &ImageHost{client: client, endpoint: cfg.Endpoint, apiKey: cfg.APIKey}
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload returns the public URL of the stored image.
func (h *ImageHost) Upload(ctx context.Context, data []byte, name string) (string, error) {
	if h.apiKey == "" {
		return "", fmt.Errorf("%w: no api key configured", ErrUploadRejected)
	}

	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(data))
	form.Set("name", name)

	endpoint := h.endpoint + "?key=" + url.QueryEscape(h.apiKey)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	var out uploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success || out.Data.URL == "" {
		return "", fmt.Errorf("%w: status %d: %s", ErrUploadRejected, resp.StatusCode, out.Error.Message)
	}
	return out.Data.URL, nil
}
