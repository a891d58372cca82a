// Package storage provides a client for the Storage API: configuration and
// table listings, data previews and metadata writes.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxResponseSize limits listing bodies to prevent memory exhaustion.
const maxResponseSize = 256 * 1024 * 1024 // 256MB

// DefaultProvider is the metadata provider name used for writes.
const DefaultProvider = "app-tagger"

// tokenHeader carries the Storage API token.
const tokenHeader = "X-StorageApi-Token"

// Client talks to the Storage API. It is stateless and safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	provider   string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithProvider sets the provider name recorded on written metadata.
func WithProvider(provider string) ClientOption {
	return func(client *Client) {
		if provider != "" {
			client.provider = provider
		}
	}
}

// NewClient creates a Storage API client for the given stack URL and token.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		token:    token,
		provider: DefaultProvider,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListComponents returns all components of the default branch with their configurations.
func (c *Client) ListComponents(ctx context.Context) ([]Component, error) {
	var components []Component
	query := url.Values{"include": {"configuration"}}
	if err := c.do(ctx, http.MethodGet, "/v2/storage/branch/default/components", query, nil, &components); err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	return components, nil
}

// ListTables returns all tables with metadata, columns and column metadata.
func (c *Client) ListTables(ctx context.Context) ([]Table, error) {
	var tables []Table
	query := url.Values{"include": {"metadata,columns,columnMetadata"}}
	if err := c.do(ctx, http.MethodGet, "/v2/storage/tables", query, nil, &tables); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// DataPreview returns up to limit rows of the table as JSON.
func (c *Client) DataPreview(ctx context.Context, tableID string, limit int) (*Preview, error) {
	var preview Preview
	query := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"format": {"json"},
	}
	path := "/v2/storage/tables/" + url.PathEscape(tableID) + "/data-preview"
	if err := c.do(ctx, http.MethodGet, path, query, nil, &preview); err != nil {
		return nil, fmt.Errorf("data preview of %s: %w", tableID, err)
	}
	return &preview, nil
}

// SetTableMetadata writes table metadata and per-column metadata in one call.
func (c *Client) SetTableMetadata(ctx context.Context, tableID string, metadata []MetadataValueInput, columns map[string][]MetadataValueInput) error {
	body := setMetadataRequest{
		Provider:        c.provider,
		Metadata:        metadata,
		ColumnsMetadata: columns,
	}
	path := "/v2/storage/tables/" + url.PathEscape(tableID) + "/metadata"
	if err := c.do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return fmt.Errorf("set metadata of %s: %w", tableID, err)
	}
	return nil
}

// do executes a request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create HTTP request: %w", err)
	}
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Sending storage request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(respBody)
		if len(bodyStr) > 200 {
			bodyStr = bodyStr[:200] + "..."
		}
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       bodyStr,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
