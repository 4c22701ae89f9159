// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// SearchFile is the on-disk record of an ad hoc search and its results,
// so a search can be reviewed later without re-querying the provider.
type SearchFile struct {
	Request SearchParams  `yaml:"request"`
	Results []Result      `yaml:"results"`
	Summary SearchSummary `yaml:"summary"`
}

// SearchParams stores the request parameters in a serializable form.
type SearchParams struct {
	Query             string   `yaml:"query"`
	Topic             string   `yaml:"topic,omitempty"`
	SearchDepth       string   `yaml:"search_depth,omitempty"`
	MaxResults        int      `yaml:"max_results,omitempty"`
	IncludeDomains    []string `yaml:"include_domains,omitempty"`
	ExcludeDomains    []string `yaml:"exclude_domains,omitempty"`
	IncludeRawContent bool     `yaml:"include_raw_content,omitempty"`
	IncludeAnswer     bool     `yaml:"include_answer,omitempty"`
}

// SearchSummary stores result statistics and a timestamp.
type SearchSummary struct {
	Total     int       `yaml:"total"`
	Answer    string    `yaml:"answer,omitempty"`
	Backend   string    `yaml:"backend"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteSearchFile saves a request and its response to a YAML file.
func WriteSearchFile(path, backend string, req Request, resp *Response) error {
	sf := SearchFile{
		Request: SearchParams{
			Query:             req.Query,
			Topic:             req.Topic,
			SearchDepth:       req.SearchDepth,
			MaxResults:        req.MaxResults,
			IncludeDomains:    req.IncludeDomains,
			ExcludeDomains:    req.ExcludeDomains,
			IncludeRawContent: req.IncludeRawContent,
			IncludeAnswer:     req.IncludeAnswer,
		},
		Summary: SearchSummary{
			Backend:   backend,
			Timestamp: time.Now().UTC(),
		},
	}
	if resp != nil {
		sf.Results = resp.Results
		sf.Summary.Total = len(resp.Results)
		sf.Summary.Answer = resp.Answer
	}

	data, err := yaml.Marshal(&sf)
	if err != nil {
		return fmt.Errorf("marshaling search file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSearchFile loads a previously saved search file from disk.
func ReadSearchFile(path string) (*SearchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading search file: %w", err)
	}
	var sf SearchFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing search file: %w", err)
	}
	return &sf, nil
}

// ToRequest converts stored SearchParams back into a Request.
func (p SearchParams) ToRequest() Request {
	return Request{
		Query:             p.Query,
		Topic:             p.Topic,
		SearchDepth:       p.SearchDepth,
		MaxResults:        p.MaxResults,
		IncludeDomains:    p.IncludeDomains,
		ExcludeDomains:    p.ExcludeDomains,
		IncludeRawContent: p.IncludeRawContent,
		IncludeAnswer:     p.IncludeAnswer,
	}
}
