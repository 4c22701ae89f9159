// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich attaches web sources to claims. For every claim it runs
// unrestricted searches to fill a supporting bucket and searches limited
// to low-credibility domains to fill an opposing bucket, then appends the
// enriched record to the output.
package enrich

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/evidence-engine/internal/search"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Placeholder is replaced by the claim text in query templates.
const Placeholder = "{claim}"

// Defaults for EnrichConfig fields left zero.
const (
	DefaultBucketSize      = 5
	DefaultDomainChunkSize = 300
)

var (
	// DefaultTrustedTemplates source claim-supporting evidence.
	DefaultTrustedTemplates = []string{
		Placeholder,
		"Is it true that " + Placeholder + "? Scientific evidence",
	}

	// DefaultUntrustedTemplates source claim-opposing evidence.
	DefaultUntrustedTemplates = []string{
		Placeholder,
		"Fake news related to: " + Placeholder,
	}
)

// Appender persists one enriched record.
type Appender interface {
	Append(v any) error
}

// Summary holds counts from an enrich run.
type Summary struct {
	RunID      string
	Enriched   int
	Skipped    int
	Supporting int
	Opposing   int
}

// Pipeline enriches claims using a Searcher.
type Pipeline struct {
	searcher  search.Searcher
	untrusted []string
	chunks    [][]string
	blocked   domainSet
	cfg       types.EnrichConfig
	logger    logrus.FieldLogger

	// now is swapped by tests.
	now func() time.Time
}

// New builds a pipeline. untrusted is the low-credibility domain list;
// when it is empty no opposing searches are made. Templates must contain
// the {claim} placeholder.
func New(s search.Searcher, untrusted []string, cfg types.EnrichConfig, logger logrus.FieldLogger) (*Pipeline, error) {
	if cfg.BucketSize <= 0 {
		cfg.BucketSize = DefaultBucketSize
	}
	if len(cfg.TrustedTemplates) == 0 {
		cfg.TrustedTemplates = DefaultTrustedTemplates
	}
	if len(cfg.UntrustedTemplates) == 0 {
		cfg.UntrustedTemplates = DefaultUntrustedTemplates
	}
	for _, tmpl := range append(append([]string{}, cfg.TrustedTemplates...), cfg.UntrustedTemplates...) {
		if !strings.Contains(tmpl, Placeholder) {
			return nil, fmt.Errorf("query template %q does not contain %s", tmpl, Placeholder)
		}
	}

	chunkSize := cfg.DomainChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultDomainChunkSize
	}

	return &Pipeline{
		searcher:  s,
		untrusted: untrusted,
		chunks:    chunk(untrusted, chunkSize),
		blocked:   newDomainSet(untrusted),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Render substitutes text into a query template.
func Render(tmpl, text string) string {
	return strings.ReplaceAll(tmpl, Placeholder, text)
}

// EnrichClaim fills the supporting and opposing buckets for c. Templates
// are tried in order, and for opposing searches each template is run
// against every domain chunk, until the bucket is full. The first search
// error is returned.
func (p *Pipeline) EnrichClaim(ctx context.Context, c types.Claim) (types.EnrichedClaim, error) {
	supporting := NewBucket(p.cfg.BucketSize)
	for _, tmpl := range p.cfg.TrustedTemplates {
		if supporting.Full() {
			break
		}
		req := search.Request{Query: Render(tmpl, c.Text)}
		if p.cfg.ExcludeUntrusted && len(p.chunks) > 0 {
			req.ExcludeDomains = p.chunks[0]
		}
		if err := p.collect(ctx, req, supporting, func(domain string) bool {
			return !p.cfg.ExcludeUntrusted || !p.blocked.contains(domain)
		}); err != nil {
			return types.EnrichedClaim{}, fmt.Errorf("claim %s: trusted search: %w", c.ID, err)
		}
	}

	opposing := NewBucket(p.cfg.BucketSize)
	if len(p.chunks) == 0 {
		p.logger.WithField("claim", c.ID).Debug("no untrusted domains configured, skipping opposing search")
	}
templates:
	for _, tmpl := range p.cfg.UntrustedTemplates {
		for _, domains := range p.chunks {
			if opposing.Full() {
				break templates
			}
			allowed := newDomainSet(domains)
			req := search.Request{Query: Render(tmpl, c.Text), IncludeDomains: domains}
			if err := p.collect(ctx, req, opposing, allowed.contains); err != nil {
				return types.EnrichedClaim{}, fmt.Errorf("claim %s: untrusted search: %w", c.ID, err)
			}
		}
	}

	return types.EnrichedClaim{
		Claim:      c,
		Supporting: supporting.Sources(),
		Opposing:   opposing.Sources(),
	}, nil
}

// collect runs req and adds results whose domain passes keep to b.
func (p *Pipeline) collect(ctx context.Context, req search.Request, b *Bucket, keep func(domain string) bool) error {
	resp, err := p.searcher.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("query %q: %w", req.Query, err)
	}

	added, filtered := 0, 0
	for _, r := range resp.Results {
		domain := DomainOf(r.URL)
		if !keep(domain) {
			filtered++
			continue
		}
		if b.Add(types.Source{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			Score:         r.Score,
			Domain:        domain,
			Query:         req.Query,
			PublishedDate: r.PublishedDate,
		}) {
			added++
		}
	}

	p.logger.WithFields(logrus.Fields{
		"query":    req.Query,
		"include":  len(req.IncludeDomains),
		"exclude":  len(req.ExcludeDomains),
		"results":  len(resp.Results),
		"added":    added,
		"filtered": filtered,
	}).Debug("search complete")
	return nil
}

// Run enriches claims in order and appends each record to out as soon as
// it is complete. Claims whose ID is in done are skipped. Run stops at the
// first error; records appended before it stay in place, so a later run
// with the refreshed done set resumes where this one stopped.
func (p *Pipeline) Run(ctx context.Context, claims []types.Claim, done map[string]bool, out Appender, w io.Writer) (Summary, error) {
	summary := Summary{RunID: newRunID(p.now())}
	p.logger.WithFields(logrus.Fields{
		"run":       summary.RunID,
		"claims":    len(claims),
		"untrusted": len(p.untrusted),
		"chunks":    len(p.chunks),
	}).Info("enrich run started")

	for i, c := range claims {
		if done[c.ID] {
			fmt.Fprintf(w, "skipped  %s (already enriched)\n", c.ID)
			summary.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		e, err := p.EnrichClaim(ctx, c)
		if err != nil {
			return summary, err
		}
		e.RunID = summary.RunID
		e.EnrichedAt = p.now().UTC()

		if err := out.Append(e); err != nil {
			return summary, fmt.Errorf("claim %s: %w", c.ID, err)
		}

		summary.Enriched++
		summary.Supporting += len(e.Supporting)
		summary.Opposing += len(e.Opposing)
		fmt.Fprintf(w, "enriched %s (supporting %d, opposing %d) [%d/%d]\n",
			c.ID, len(e.Supporting), len(e.Opposing), i+1, len(claims))
	}

	fmt.Fprintf(w, "\nenriched: %d, skipped: %d, sources: %d supporting, %d opposing\n",
		summary.Enriched, summary.Skipped, summary.Supporting, summary.Opposing)
	return summary, nil
}

// chunk splits list into consecutive slices of at most size entries. A
// negative size yields a single chunk.
func chunk(list []string, size int) [][]string {
	if len(list) == 0 {
		return nil
	}
	if size < 0 || size >= len(list) {
		return [][]string{list}
	}
	var out [][]string
	for start := 0; start < len(list); start += size {
		end := min(start+size, len(list))
		out = append(out, list[start:end])
	}
	return out
}

func newRunID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
