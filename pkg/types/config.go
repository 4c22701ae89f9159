package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "evidence-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for calls to the web search provider.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// SearchDepth is "basic" or "advanced" (default basic).
	SearchDepth string `json:"search_depth" yaml:"search_depth" mapstructure:"search_depth"`

	// Topic is "general" or "news" (default general).
	Topic string `json:"topic" yaml:"topic" mapstructure:"topic"`

	// MaxResults is the number of results requested per call (default and ceiling 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// IncludeRawContent asks the provider for the full parsed page text.
	IncludeRawContent bool `json:"include_raw_content" yaml:"include_raw_content" mapstructure:"include_raw_content"`

	// MaxRetries bounds retries on 429, 5xx and transport errors (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RequestsPerMinute caps the request rate. Zero disables the limiter.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`

	// Burst is the limiter bucket size (default 1).
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`

	// BreakerMaxFailures is the number of consecutive failures that opens
	// the circuit (default 5).
	BreakerMaxFailures uint32 `json:"breaker_max_failures" yaml:"breaker_max_failures" mapstructure:"breaker_max_failures"`

	// BreakerTimeout is how long the circuit stays open (default 30s).
	BreakerTimeout time.Duration `json:"breaker_timeout" yaml:"breaker_timeout" mapstructure:"breaker_timeout"`
}

// DomainsConfig holds settings for building the low-credibility domain list.
type DomainsConfig struct {
	// NewsGuardCSV is the path to a NewsGuard label metadata export.
	// Empty skips the CSV.
	NewsGuardCSV string `json:"newsguard_csv" yaml:"newsguard_csv" mapstructure:"newsguard_csv"`

	// MinScore and MaxScore bound the NewsGuard score, inclusive.
	MinScore float64 `json:"min_score" yaml:"min_score" mapstructure:"min_score"`
	MaxScore float64 `json:"max_score" yaml:"max_score" mapstructure:"max_score"`

	// Country and Language restrict rows when non-empty (e.g. "US", "en").
	Country  string `json:"country" yaml:"country" mapstructure:"country"`
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// IncludeWiki merges the built-in misinformation domain list.
	IncludeWiki bool `json:"include_wiki" yaml:"include_wiki" mapstructure:"include_wiki"`

	// ExtraFiles are additional domain list files (.txt, .json, .yaml).
	ExtraFiles []string `json:"extra_files,omitempty" yaml:"extra_files,omitempty" mapstructure:"extra_files"`
}

// EnrichConfig holds settings for the enrich stage.
type EnrichConfig struct {
	// InputPath is the claims file (JSON array or JSONL).
	InputPath string `json:"input" yaml:"input" mapstructure:"input"`

	// OutputPath is the append-only JSONL output.
	OutputPath string `json:"output" yaml:"output" mapstructure:"output"`

	// ClaimField names the record field holding the claim text (default "claim").
	ClaimField string `json:"claim_field" yaml:"claim_field" mapstructure:"claim_field"`

	// IDField names the record field holding the claim ID (default "id").
	IDField string `json:"id_field" yaml:"id_field" mapstructure:"id_field"`

	// DomainsFile is a prepared untrusted domain list. When empty the list
	// is built from DomainsConfig.
	DomainsFile string `json:"domains_file" yaml:"domains_file" mapstructure:"domains_file"`

	// BucketSize is the capacity of each source bucket (default 5).
	BucketSize int `json:"bucket_size" yaml:"bucket_size" mapstructure:"bucket_size"`

	// TrustedTemplates are query templates for the unrestricted pool.
	// "{claim}" is replaced with the claim text.
	TrustedTemplates []string `json:"trusted_templates,omitempty" yaml:"trusted_templates,omitempty" mapstructure:"trusted_templates"`

	// UntrustedTemplates are query templates for the domain-restricted pool.
	UntrustedTemplates []string `json:"untrusted_templates,omitempty" yaml:"untrusted_templates,omitempty" mapstructure:"untrusted_templates"`

	// ExcludeUntrusted passes the untrusted domains as exclude_domains on
	// trusted searches.
	ExcludeUntrusted bool `json:"exclude_untrusted" yaml:"exclude_untrusted" mapstructure:"exclude_untrusted"`

	// DomainChunkSize splits the untrusted list into include_domains
	// chunks of at most this many entries (default 300, negative disables).
	DomainChunkSize int `json:"domain_chunk_size" yaml:"domain_chunk_size" mapstructure:"domain_chunk_size"`
}

// IndexConfig holds settings for the SQLite source index.
type IndexConfig struct {
	// IndexDir contains evidence.db and the export files.
	IndexDir string `json:"index_dir" yaml:"index_dir" mapstructure:"index_dir"`

	// ClaimField names the record field holding the claim text for records
	// without claim_text (default: the enrich claim field).
	ClaimField string `json:"claim_field" yaml:"claim_field" mapstructure:"claim_field"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// PipelineConfig groups all stage configurations. It is the shape of the
// evidence-engine.yaml config file.
type PipelineConfig struct {
	Search  SearchConfig  `json:"search" yaml:"search" mapstructure:"search"`
	Domains DomainsConfig `json:"domains" yaml:"domains" mapstructure:"domains"`
	Enrich  EnrichConfig  `json:"enrich" yaml:"enrich" mapstructure:"enrich"`
	Index   IndexConfig   `json:"index" yaml:"index" mapstructure:"index"`
}
