package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/proyectos-la/digital-world/pkg/httpclient"
)

const cdnUpstream = "image-cdn"

// CDNConfig locates the image CDN's object API.
type CDNConfig struct {
	BaseURL   string
	APIKey    string
	PublicURL string
}

// CDNStorage stores objects through the CDN's HTTP API:
// PUT and DELETE on {BaseURL}/objects/{key}.
type CDNStorage struct {
	client    httpclient.Doer
	baseURL   string
	apiKey    string
	publicURL string
}

// NewCDNStorage creates a CDN-backed store. client is normally a
// *httpclient.CircuitBreakerClient so a failing CDN is cut off quickly.
func NewCDNStorage(client httpclient.Doer, cfg CDNConfig) *CDNStorage {
	public := cfg.PublicURL
	if public == "" {
		public = cfg.BaseURL
	}
	return &CDNStorage{
		client:    client,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		publicURL: strings.TrimRight(public, "/"),
	}
}

func (s *CDNStorage) Upload(ctx context.Context, input *UploadInput) (*UploadResult, error) {
	// Buffered so the retrying client can replay the body.
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", input.Key, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.objectURL(input.Key), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", input.ContentType)
	s.authorize(req)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", input.Key, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpclient.ParseResponseError(resp, cdnUpstream)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return &UploadResult{Key: input.Key, URL: s.URL(input.Key)}, nil
}

func (s *CDNStorage) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(key), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, cdnUpstream)
	}
	_ = resp.Body.Close()
	return nil
}

func (s *CDNStorage) URL(key string) string {
	return s.publicURL + "/" + escapeKey(key)
}

func (s *CDNStorage) objectURL(key string) string {
	return s.baseURL + "/objects/" + escapeKey(key)
}

func (s *CDNStorage) authorize(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

// escapeKey escapes each path segment of key, keeping the slashes.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
