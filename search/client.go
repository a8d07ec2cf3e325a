// Package search wraps the external news search provider behind a
// capability interface so fetch jobs can be exercised without network
// access.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coreybb/newsfeeds/models"
)

const defaultRequestTimeout = 10 * time.Second

// Provider fetches raw search results for a (company, source) pair.
// Any error it returns is treated as recoverable by the caller.
type Provider interface {
	Search(ctx context.Context, company, source string, limit int) ([]models.Article, error)
}

// HTTPProvider implements Provider against the provider's
// GET /search?company=&source=&limit= endpoint.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider client with an explicit request
// timeout so a stuck provider call cannot starve a worker.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// searchResponse mirrors the provider's response envelope.
type searchResponse struct {
	Company   string           `json:"company"`
	Source    string           `json:"source"`
	FetchedAt string           `json:"fetched_at"`
	Articles  []models.Article `json:"articles"`
}

// Search performs the provider call. Non-2xx responses and malformed
// bodies are errors; an empty article list is a valid result.
func (p *HTTPProvider) Search(ctx context.Context, company, source string, limit int) ([]models.Article, error) {
	params := url.Values{}
	params.Set("company", company)
	params.Set("source", source)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := p.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed for %s/%s: %w", company, source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("search provider returned status %d for %s/%s", resp.StatusCode, company, source)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response for %s/%s: %w", company, source, err)
	}

	return payload.Articles, nil
}
