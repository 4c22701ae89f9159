// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/domains"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// QueryOptions holds parameters for index queries.
type QueryOptions struct {
	// Query is an FTS5 match expression over source title and content.
	Query string

	// Bucket limits results to supporting or opposing sources.
	Bucket types.BucketName

	// Domain limits results to a domain and its subdomains.
	Domain string

	// ClaimID limits results to one claim.
	ClaimID string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Bucket == "" && q.Domain == "" && q.ClaimID == ""
}

// likeEscaper quotes LIKE wildcards so a domain filter matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// QueryResult is a stored source with the claim it was collected for.
type QueryResult struct {
	types.Source `yaml:",inline"`

	ClaimID   string           `json:"claim_id" yaml:"claim_id"`
	ClaimText string           `json:"claim_text" yaml:"claim_text"`
	Bucket    types.BucketName `json:"bucket" yaml:"bucket"`
	Position  int              `json:"position" yaml:"position"`
}

// Retrieve queries stored sources. Full-text queries are ranked by
// relevance; filter-only queries are ordered by claim, bucket and the
// source's position within its bucket.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	const columns = `s.claim_id, c.text, s.bucket, s.position, s.url, s.title,
		s.content, s.domain, s.score, s.query, s.published_date`

	if useFTS {
		qb.WriteString(`SELECT ` + columns + `
			FROM sources_fts
			JOIN sources s ON s.rowid = sources_fts.rowid
			LEFT JOIN claims c ON c.id = s.claim_id
			WHERE sources_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT ` + columns + `
			FROM sources s
			LEFT JOIN claims c ON c.id = s.claim_id
			WHERE 1=1`)
	}

	if opts.Bucket != "" {
		qb.WriteString(` AND s.bucket = ?`)
		args = append(args, string(opts.Bucket))
	}
	if opts.ClaimID != "" {
		qb.WriteString(` AND s.claim_id = ?`)
		args = append(args, opts.ClaimID)
	}
	if d := domains.Normalize(opts.Domain); d != "" {
		qb.WriteString(` AND (s.domain = ? OR s.domain LIKE ? ESCAPE '\')`)
		args = append(args, d, "%."+likeEscaper.Replace(d))
	}

	if useFTS {
		qb.WriteString(` ORDER BY sources_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY s.claim_id, s.bucket DESC, s.position`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr                        QueryResult
			bucket                    string
			claimText, title, content sql.NullString
			domain, query, published  sql.NullString
			score                     sql.NullFloat64
		)
		if err := rows.Scan(
			&qr.ClaimID, &claimText, &bucket, &qr.Position, &qr.URL, &title,
			&content, &domain, &score, &query, &published,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		qr.Bucket = types.BucketName(bucket)
		qr.ClaimText = claimText.String
		qr.Title = title.String
		qr.Content = content.String
		qr.Domain = domain.String
		qr.Score = score.Float64
		qr.Query = query.String
		qr.PublishedDate = published.String
		results = append(results, qr)
	}
	return results, rows.Err()
}

// DomainCount is the number of stored sources from one domain.
type DomainCount struct {
	Domain string `json:"domain" yaml:"domain"`
	Count  int    `json:"count" yaml:"count"`
}

// DomainCounts returns per-domain source counts, most frequent first. An
// empty bucket counts both buckets.
func (s *Store) DomainCounts(ctx context.Context, bucket types.BucketName) ([]DomainCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, count(*) AS n FROM sources
		 WHERE ? = '' OR bucket = ?
		 GROUP BY domain
		 ORDER BY n DESC, domain`,
		string(bucket), string(bucket),
	)
	if err != nil {
		return nil, fmt.Errorf("counting domains: %w", err)
	}
	defer rows.Close()

	var counts []DomainCount
	for rows.Next() {
		var (
			dc     DomainCount
			domain sql.NullString
		)
		if err := rows.Scan(&domain, &dc.Count); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		dc.Domain = domain.String
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}
