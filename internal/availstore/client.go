package availstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/curatel/telecare-scheduling/internal/availability"
	"github.com/curatel/telecare-scheduling/pkg/logging"
)

const defaultClientTimeout = 20 * time.Second

// Client talks to a remote availability store over its JSON HTTP API. Used in
// deployments where the store runs as a separate service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates an availability store client for the given base URL.
func NewClient(baseURL, apiKey string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultClientTimeout,
		},
		logger: logger.Component("availstore.client"),
	}
}

type fetchResponse struct {
	Days []availability.DaySlots `json:"days"`
}

type writeRequest struct {
	Days []DayWrite `json:"days"`
}

type clearRequest struct {
	Dates []string `json:"dates"`
}

// FetchAvailability implements Store.
func (c *Client) FetchAvailability(ctx context.Context, providerID, startDate, endDate string) ([]availability.DaySlots, error) {
	path := fmt.Sprintf("/providers/%s/availability?start=%s&end=%s",
		url.PathEscape(providerID), url.QueryEscape(startDate), url.QueryEscape(endDate))
	var out fetchResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Days, nil
}

// WriteAvailability implements Store.
func (c *Client) WriteAvailability(ctx context.Context, providerID string, days []DayWrite) error {
	path := fmt.Sprintf("/providers/%s/availability", url.PathEscape(providerID))
	return c.do(ctx, http.MethodPut, path, writeRequest{Days: days}, nil)
}

// BulkWriteAvailability implements Store.
func (c *Client) BulkWriteAvailability(ctx context.Context, providerID string, req BulkWrite) error {
	path := fmt.Sprintf("/providers/%s/availability/bulk", url.PathEscape(providerID))
	return c.do(ctx, http.MethodPost, path, req, nil)
}

// ClearAvailability implements Store.
func (c *Client) ClearAvailability(ctx context.Context, providerID string, dates []string) error {
	path := fmt.Sprintf("/providers/%s/availability/clear", url.PathEscape(providerID))
	return c.do(ctx, http.MethodPost, path, clearRequest{Dates: dates}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("availstore: missing base url")
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("availstore: marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("availstore: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("availstore: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("availstore: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return fmt.Errorf("availstore: status %d: %s", resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("availstore: unmarshal response: %w", err)
		}
	}
	return nil
}
