package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 5 * time.Minute

// SupabaseConfig locates a Supabase storage bucket.
type SupabaseConfig struct {
	BaseURL    string
	ServiceKey string
	Bucket     string
}

// Supabase fetches objects through the Supabase storage REST API.
type Supabase struct {
	cfg        SupabaseConfig
	httpClient *http.Client
}

// Option customizes the Supabase fetcher.
type Option func(*Supabase)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Supabase) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewSupabase constructs a fetcher for cfg.
func NewSupabase(cfg SupabaseConfig, opts ...Option) *Supabase {
	s := &Supabase{
		cfg: SupabaseConfig{
			BaseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			ServiceKey: strings.TrimSpace(cfg.ServiceKey),
			Bucket:     strings.Trim(strings.TrimSpace(cfg.Bucket), "/"),
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts downloading key. The caller closes the returned body.
func (s *Supabase) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	endpoint, err := url.JoinPath(s.cfg.BaseURL, "storage", "v1", "object", s.cfg.Bucket, strings.TrimLeft(key, "/"))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: build url: %w", key, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: new request: %w", key, err)
	}
	if s.cfg.ServiceKey != "" {
		req.Header.Set("apikey", s.cfg.ServiceKey)
		req.Header.Set("Authorization", "Bearer "+s.cfg.ServiceKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp.Body, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusNotFound || isStorageNotFound(resp.StatusCode, body) {
		return nil, fmt.Errorf("fetch %s: %w", key, ErrObjectNotFound)
	}
	return nil, &StatusError{Key: key, StatusCode: resp.StatusCode, Body: string(body)}
}

// Supabase storage reports missing objects as 400 with a not_found error body.
func isStorageNotFound(status int, body []byte) bool {
	if status != http.StatusBadRequest {
		return false
	}
	text := strings.ToLower(string(body))
	return strings.Contains(text, "not_found") || strings.Contains(text, "object not found")
}
