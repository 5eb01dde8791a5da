package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meltforce/gainslog/internal/app"
	"github.com/meltforce/gainslog/internal/models"
)

// HTTPClient implements DataSource by calling the GainsLog REST API.
// Used for stdio MCP mode where the binary runs next to the MCP client but
// data lives in a running gainslog host.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) Sessions(ctx context.Context) ([]models.WorkoutSession, error) {
	var out []models.WorkoutSession
	if err := c.get(ctx, "/api/v1/sessions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) PersonalRecords(ctx context.Context) ([]models.PersonalRecord, error) {
	var out []models.PersonalRecord
	if err := c.get(ctx, "/api/v1/records", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ProfileStats(ctx context.Context) (app.Stats, error) {
	var out app.Stats
	err := c.get(ctx, "/api/v1/stats", &out)
	return out, err
}
