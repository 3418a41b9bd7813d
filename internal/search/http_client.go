package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Kaibo-Huang/Anchor/internal/logging"
)

// SearchError represents a non-2xx response from the search service.
type SearchError struct {
	StatusCode int
	Body       string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search query failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and network errors.
// Client errors (4xx) are considered permanent.
func (e *SearchError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// searchRequest is the request body sent to POST /v1/search.
type searchRequest struct {
	IndexID string `json:"index_id"`
	Query   string `json:"query"`
	Limit   int    `json:"limit"`
}

// searchResponse is the response from POST /v1/search.
type searchResponse struct {
	Hits []Hit `json:"hits"`
}

// HTTPClient queries a real semantic search service over HTTP. Queries are
// synchronous and unretried; callers in the synthesis engine are expected to
// treat any error as an empty result set.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, apiKey string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (c *HTTPClient) Search(ctx context.Context, indexID, query string, limit int) ([]Hit, error) {
	body, err := json.Marshal(searchRequest{IndexID: indexID, Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/search", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Anchor-Request-Id", requestID)

	if c.logger != nil {
		logging.WithRequestID(c.logger, requestID).Debug("querying search service",
			"index_id", indexID,
			"query", query,
			"limit", limit,
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SearchError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("search returned", "query", query, "hits", len(result.Hits))
	}
	return result.Hits, nil
}
