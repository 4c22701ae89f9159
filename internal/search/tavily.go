// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// tavilyAPIBase is the Tavily search endpoint. Declared as a var so tests
// can substitute an httptest server.
var tavilyAPIBase = "https://api.tavily.com/search"

// tavilyMaxResults is the provider's per-call ceiling.
const tavilyMaxResults = 20

// Tavily queries the Tavily search API.
type Tavily struct {
	Client *http.Client
	APIKey string
	Config types.SearchConfig
}

// NewTavily returns a Tavily searcher. A nil client uses
// http.DefaultClient.
func NewTavily(apiKey string, client *http.Client, cfg types.SearchConfig) (*Tavily, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Tavily{Client: client, APIKey: apiKey, Config: cfg}, nil
}

// Name returns the backend identifier.
func (t *Tavily) Name() string { return "tavily" }

// Search posts req to the Tavily API and returns its results.
func (t *Tavily) Search(ctx context.Context, req Request) (*Response, error) {
	body, err := t.buildRequest(req)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling Tavily request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyAPIBase, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if t.Config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", t.Config.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, t.Client, httpReq, t.Config.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("Tavily API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("parsing Tavily response: %w", err)
	}

	out := &Response{Query: tr.Query, Answer: tr.Answer, Results: make([]Result, 0, len(tr.Results))}
	for _, r := range tr.Results {
		out.Results = append(out.Results, Result{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			RawContent:    r.RawContent,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
	}
	return out, nil
}

// buildRequest applies config defaults to req and clamps max_results.
func (t *Tavily) buildRequest(req Request) (tavilyRequest, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return tavilyRequest{}, ErrEmptyQuery
	}

	body := tavilyRequest{
		Query:             query,
		SearchDepth:       firstNonEmpty(req.SearchDepth, t.Config.SearchDepth, "basic"),
		Topic:             firstNonEmpty(req.Topic, t.Config.Topic, "general"),
		MaxResults:        req.MaxResults,
		IncludeDomains:    req.IncludeDomains,
		ExcludeDomains:    req.ExcludeDomains,
		IncludeRawContent: req.IncludeRawContent || t.Config.IncludeRawContent,
		IncludeAnswer:     req.IncludeAnswer,
	}
	if body.MaxResults <= 0 {
		body.MaxResults = t.Config.MaxResults
	}
	if body.MaxResults <= 0 || body.MaxResults > tavilyMaxResults {
		body.MaxResults = tavilyMaxResults
	}
	return body, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Tavily API JSON structures.
type tavilyRequest struct {
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth,omitempty"`
	Topic             string   `json:"topic,omitempty"`
	MaxResults        int      `json:"max_results,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty"`
	IncludeRawContent bool     `json:"include_raw_content,omitempty"`
	IncludeAnswer     bool     `json:"include_answer,omitempty"`
}

type tavilyResponse struct {
	Query        string         `json:"query"`
	Answer       string         `json:"answer"`
	Results      []tavilyResult `json:"results"`
	ResponseTime float64        `json:"response_time"`
}

type tavilyResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	RawContent    string  `json:"raw_content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}
