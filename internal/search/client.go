// Package search provides the client for the external semantic video search
// service. The service indexes event footage and answers natural-language
// queries with timestamped, confidence-scored hits.
package search

import (
	"context"
	"log/slog"
)

// Hit is one search result: a time range in a camera's footage with a
// normalized confidence score.
type Hit struct {
	CameraID   string  `json:"camera_id"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Confidence float64 `json:"confidence"`
}

// StartMs returns the hit start in milliseconds.
func (h Hit) StartMs() int { return int(h.StartSec * 1000) }

// EndMs returns the hit end in milliseconds.
func (h Hit) EndMs() int { return int(h.EndSec * 1000) }

// Client answers natural-language queries against an event's search index.
type Client interface {
	// Search returns up to limit hits for the query, ranked by relevance.
	Search(ctx context.Context, indexID, query string, limit int) ([]Hit, error)
}

// StubClient returns no hits for every query. It serves tests and
// deployments without a configured search service; synthesis treats empty
// results as "no information".
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Search(ctx context.Context, indexID, query string, limit int) ([]Hit, error) {
	if c.logger != nil {
		c.logger.Debug("search stub: no results", "index_id", indexID, "query", query)
	}
	return nil, nil
}
