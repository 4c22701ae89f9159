// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search wraps the web search provider behind a small Searcher
// interface, with retry, rate limiting and circuit breaking, and formats
// results for the terminal.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrEmptyQuery is returned when a request has no query text.
	ErrEmptyQuery = errors.New("search query is empty")

	// ErrMissingAPIKey is returned when no provider token is configured.
	ErrMissingAPIKey = errors.New("search API key is missing: set TAVILY_API_KEY or .secrets/tavily-api-key")
)

// Searcher runs a single web search. Implementations are the provider
// client and wrappers around it.
type Searcher interface {
	Name() string
	Search(ctx context.Context, req Request) (*Response, error)
}

// Request holds the parameters of one search call. Zero values fall back
// to the searcher's configured defaults.
type Request struct {
	Query       string
	Topic       string // "general" or "news"
	SearchDepth string // "basic" or "advanced"
	MaxResults  int

	// IncludeDomains restricts results to these domains.
	IncludeDomains []string

	// ExcludeDomains removes these domains from results.
	ExcludeDomains []string

	IncludeRawContent bool
	IncludeAnswer     bool
}

// Response is the provider's answer to a Request.
type Response struct {
	Query   string   `json:"query" yaml:"query"`
	Answer  string   `json:"answer,omitempty" yaml:"answer,omitempty"`
	Results []Result `json:"results" yaml:"results"`
}

// Result is one page returned by the provider.
type Result struct {
	Title         string  `json:"title" yaml:"title"`
	URL           string  `json:"url" yaml:"url"`
	Content       string  `json:"content" yaml:"content"`
	RawContent    string  `json:"raw_content,omitempty" yaml:"raw_content,omitempty"`
	Score         float64 `json:"score" yaml:"score"`
	PublishedDate string  `json:"published_date,omitempty" yaml:"published_date,omitempty"`
}

// APIError is a non-200 response from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if r := []rune(body); len(r) > 200 {
		body = string(r[:200]) + "..."
	}
	if body == "" {
		return fmt.Sprintf("search API returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("search API returned HTTP %d: %s", e.StatusCode, body)
}

const rule = "--------------------------------------------------------------------------------"

// FormatTable writes results in the plain layout used for ad hoc
// searches: a rule, then title, URL and content for each result.
func FormatTable(resp *Response, w io.Writer) {
	if resp == nil || len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintln(w, "\nSearch Results:")
	fmt.Fprintln(w, rule)
	if resp.Answer != "" {
		fmt.Fprintf(w, "\nAnswer: %s\n", resp.Answer)
		fmt.Fprintln(w, rule)
	}
	for _, r := range resp.Results {
		fmt.Fprintf(w, "\nTitle: %s\n", r.Title)
		fmt.Fprintf(w, "URL: %s\n", r.URL)
		fmt.Fprintf(w, "Content: %s\n", r.Content)
		fmt.Fprintln(w, rule)
	}
}

// FormatJSON writes the response as indented JSON to w.
func FormatJSON(resp *Response, w io.Writer) error {
	var out Response
	if resp != nil {
		out = *resp
	}
	if out.Results == nil {
		out.Results = []Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
