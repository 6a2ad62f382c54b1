// Package websearch implements the server-immediate web search
// capability backed by the Tavily API.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/haasonsaas/mapgate/internal/registry"
)

const (
	defaultBaseURL = "https://api.tavily.com"

	defaultResultCount = 3
	maxResultCount     = 5
)

// Config holds Tavily credentials and overrides.
type Config struct {
	// APIKey authenticates against Tavily (required).
	APIKey string

	// BaseURL overrides the API endpoint (tests).
	BaseURL string
}

// Tool implements registry.Tool over the Tavily search API.
type Tool struct {
	config     Config
	httpClient *http.Client
}

// New creates the Tavily search tool.
func New(config Config) *Tool {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	return &Tool{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the tool name for registration.
func (t *Tool) Name() string { return "web_search" }

// Description returns the tool description shown to the reasoning engine.
func (t *Tool) Description() string {
	return "Search the web for up-to-date information: addresses, businesses, news, opening hours, or anything not on the map. Returns a short answer plus source links."
}

// Schema returns the JSON schema for tool parameters.
func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The search query, in the user's language"
			},
			"max_results": {
				"type": "integer",
				"description": "Number of results to return (default: 3, max: 5)",
				"minimum": 1,
				"maximum": 5
			}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

type searchParams struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyRequest struct {
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

type searchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Execute runs one Tavily search.
func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*registry.Result, error) {
	var p searchParams
	if err := json.Unmarshal(params, &p); err != nil {
		return &registry.Result{Content: fmt.Sprintf("invalid parameters: %v", err), IsError: true}, nil
	}
	if p.Query == "" {
		return &registry.Result{Content: "query parameter is required", IsError: true}, nil
	}
	if p.MaxResults <= 0 {
		p.MaxResults = defaultResultCount
	}
	if p.MaxResults > maxResultCount {
		p.MaxResults = maxResultCount
	}

	body, err := json.Marshal(tavilyRequest{
		Query:         p.Query,
		MaxResults:    p.MaxResults,
		SearchDepth:   "advanced",
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, fmt.Errorf("websearch: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("websearch: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.config.APIKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &registry.Result{Content: fmt.Sprintf("search failed: %v", err), IsError: true}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &registry.Result{Content: fmt.Sprintf("search failed: %v", err), IsError: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return &registry.Result{
			Content: fmt.Sprintf("search backend returned status %d: %s", resp.StatusCode, raw),
			IsError: true,
		}, nil
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &registry.Result{Content: fmt.Sprintf("search response unreadable: %v", err), IsError: true}, nil
	}

	results := make([]searchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, searchResult{Title: r.Title, Link: r.URL, Snippet: r.Content})
	}

	out, err := json.Marshal(map[string]any{
		"ok":      true,
		"query":   p.Query,
		"answer":  parsed.Answer,
		"results": results,
	})
	if err != nil {
		return nil, fmt.Errorf("websearch: encode result: %w", err)
	}
	return &registry.Result{Content: string(out)}, nil
}
