// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// BucketName identifies which side of a claim a source was collected for.
type BucketName string

const (
	// BucketSupporting holds sources from unrestricted (trusted) searches.
	BucketSupporting BucketName = "supporting"

	// BucketOpposing holds sources from searches restricted to
	// low-credibility domains.
	BucketOpposing BucketName = "opposing"
)

// Source is one retrieved article attached to a claim.
type Source struct {
	// Title is the page title as returned by the search provider.
	Title string `json:"title" yaml:"title"`

	// URL is the article location. It is unique within a bucket.
	URL string `json:"url" yaml:"url"`

	// Content is the provider's extracted snippet of the page.
	Content string `json:"content" yaml:"content"`

	// Score is the provider relevance score, typically between 0 and 1.
	Score float64 `json:"score" yaml:"score"`

	// Domain is the lowercased host of URL without a leading "www.".
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`

	// Query is the search string that surfaced this source.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	PublishedDate string `json:"published_date,omitempty" yaml:"published_date,omitempty"`
}
