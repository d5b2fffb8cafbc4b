package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultRPCName     = "mark_dat_validated"
)

// ErrRPCMissing means the batched validation function is not installed on the server.
var ErrRPCMissing = errors.New("validation rpc not installed on the datastore")

// Config captures the runtime settings required to talk to the datastore.
type Config struct {
	BaseURL    string
	ServiceKey string
	RPCName    string
	// RequestTimeout bounds reads; RPCTimeout bounds one batched mutation.
	RequestTimeout time.Duration
	RPCTimeout     time.Duration
}

// Client wraps the PostgREST endpoints used by reconciliation.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. Timeouts still come from Config.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a datastore client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			ServiceKey:     strings.TrimSpace(cfg.ServiceKey),
			RPCName:        strings.TrimSpace(cfg.RPCName),
			RequestTimeout: cfg.RequestTimeout,
			RPCTimeout:     cfg.RPCTimeout,
		},
		httpClient: &http.Client{},
	}
	if client.cfg.RPCName == "" {
		client.cfg.RPCName = defaultRPCName
	}
	if client.cfg.RequestTimeout <= 0 {
		client.cfg.RequestTimeout = defaultHTTPTimeout
	}
	if client.cfg.RPCTimeout <= 0 {
		client.cfg.RPCTimeout = defaultHTTPTimeout
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// StatusError is a non-success PostgREST response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, body)
}

// HTTPStatus exposes the status code to retry classification.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// Document is the subset of a remote document row used for spot checks.
type Document struct {
	Filename  string `json:"filename"`
	PageCount int    `json:"page_count"`
}

// ListOptions selects an ordered slice of a dataset's documents.
type ListOptions struct {
	// Order is a PostgREST order expression such as "page_count.desc".
	Order  string
	Limit  int
	Offset int
}

// DatasetIDs maps dataset numbers to remote dataset identifiers.
func (c *Client) DatasetIDs(ctx context.Context) (map[int]string, error) {
	query := url.Values{}
	query.Set("select", "id,dataset_number")
	query.Set("order", "dataset_number")

	var rows []struct {
		ID            json.RawMessage `json:"id"`
		DatasetNumber int             `json:"dataset_number"`
	}
	if _, err := c.get(ctx, "dataset lookup", "datasets", query, nil, &rows); err != nil {
		return nil, err
	}
	ids := make(map[int]string, len(rows))
	for _, row := range rows {
		ids[row.DatasetNumber] = rawID(row.ID)
	}
	return ids, nil
}

// CountDocuments returns the exact number of documents stored for datasetID.
func (c *Client) CountDocuments(ctx context.Context, datasetID string) (int, error) {
	query := url.Values{}
	query.Set("dataset_id", "eq."+datasetID)
	query.Set("select", "id")
	query.Set("limit", "1")

	headers := http.Header{}
	headers.Set("Prefer", "count=exact")
	resp, err := c.get(ctx, "count documents", "documents", query, headers, nil)
	if err != nil {
		return 0, err
	}
	return parseContentRange(resp.Header.Get("Content-Range"))
}

// ListDocuments returns documents of datasetID in the requested order.
func (c *Client) ListDocuments(ctx context.Context, datasetID string, opts ListOptions) ([]Document, error) {
	query := url.Values{}
	query.Set("dataset_id", "eq."+datasetID)
	query.Set("select", "filename,page_count")
	if opts.Order != "" {
		query.Set("order", opts.Order)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}

	var docs []Document
	if _, err := c.get(ctx, "list documents", "documents", query, nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// MarkValidated marks up to batchSize not-yet-validated documents of
// datasetID and returns how many rows changed. Zero means none remain.
func (c *Client) MarkValidated(ctx context.Context, datasetID string, batchSize int) (int, error) {
	op := "rpc " + c.cfg.RPCName
	payload := map[string]any{
		"p_dataset_id": datasetIDValue(datasetID),
		"p_batch_size": batchSize,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("%s: encode body: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RPCTimeout)
	defer cancel()

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "rest", "v1", "rpc", c.cfg.RPCName)
	if err != nil {
		return 0, fmt.Errorf("%s: build url: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return 0, fmt.Errorf("%s: new request: %w", op, err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	_, body, err := c.do(req, op)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return 0, fmt.Errorf("%s: %w", op, ErrRPCMissing)
		}
		return 0, err
	}

	var updated int
	if err := json.Unmarshal(bytes.TrimSpace(body), &updated); err != nil {
		return 0, fmt.Errorf("%s: decode result: %w", op, err)
	}
	return updated, nil
}

// Ping checks that the REST endpoint answers with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("select", "id")
	query.Set("limit", "1")
	_, err := c.get(ctx, "ping", "datasets", query, nil, nil)
	return err
}

func (c *Client) get(ctx context.Context, op, table string, query url.Values, headers http.Header, out any) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "rest", "v1", table)
	if err != nil {
		return nil, fmt.Errorf("%s: build url: %w", op, err)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", op, err)
	}
	c.authorize(req)
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, body, err := c.do(req, op)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("%s: decode body: %w", op, err)
		}
	}
	return resp, nil
}

func (c *Client) do(req *http.Request, op string) (*http.Response, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: http error: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp, body, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.cfg.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.ServiceKey)
}

// parseContentRange reads the total from "0-0/1234" or "*/0".
func parseContentRange(value string) (int, error) {
	value = strings.TrimSpace(value)
	idx := strings.LastIndexByte(value, '/')
	if idx < 0 {
		return 0, fmt.Errorf("count documents: missing total in Content-Range %q", value)
	}
	total := value[idx+1:]
	if total == "*" {
		return 0, fmt.Errorf("count documents: server did not report an exact count (%q)", value)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("count documents: parse Content-Range %q: %w", value, err)
	}
	return n, nil
}

// rawID renders a numeric or string JSON id as a plain string.
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// datasetIDValue sends numeric ids as JSON numbers and anything else as strings.
func datasetIDValue(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
