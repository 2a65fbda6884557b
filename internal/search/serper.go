package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/quangvt/relay/internal/domain"
)

const serperSearchURL = "https://google.serper.dev/search"

// SerperClient queries the Serper.dev Google search API. Results default to
// the Vietnamese locale since that is the primary user base.
type SerperClient struct {
	apiKey     string
	searchURL  string
	httpClient *http.Client
}

func NewSerperClient(apiKey string) *SerperClient {
	return &SerperClient{
		apiKey:     apiKey,
		searchURL:  serperSearchURL,
		httpClient: &http.Client{},
	}
}

type serperRequest struct {
	Q   string `json:"q"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
	Num int    `json:"num,omitempty"`
}

type serperResponse struct {
	Organic []struct {
		Title       string `json:"title"`
		Name        string `json:"name"`
		Link        string `json:"link"`
		URL         string `json:"url"`
		Snippet     string `json:"snippet"`
		Description string `json:"description"`
	} `json:"organic"`
}

func (c *SerperClient) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = 6
	}

	body, err := json.Marshal(serperRequest{Q: query, GL: "vn", HL: "vi", Num: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result serperResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal search response: %w", err)
	}

	var results []domain.SearchResult
	for _, item := range result.Organic {
		title := item.Title
		if title == "" {
			title = item.Name
		}
		link := item.Link
		if link == "" {
			link = item.URL
		}
		snippet := item.Snippet
		if snippet == "" {
			snippet = item.Description
		}
		if title == "" || link == "" {
			continue
		}
		results = append(results, domain.SearchResult{Title: title, Link: link, Snippet: snippet})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}
