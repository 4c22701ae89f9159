// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/ledger"
	"github.com/pdiddy/evidence-engine/internal/logging"
	"github.com/pdiddy/evidence-engine/internal/search"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// fakeSearcher answers each request with respond and records requests.
type fakeSearcher struct {
	mu       sync.Mutex
	requests []search.Request
	respond  func(req search.Request) (*search.Response, error)
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Search(_ context.Context, req search.Request) (*search.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(req)
}

func results(urls ...string) *search.Response {
	resp := &search.Response{}
	for i, u := range urls {
		resp.Results = append(resp.Results, search.Result{
			Title: fmt.Sprintf("result %d", i),
			URL:   u,
			Score: 1 - float64(i)/10,
		})
	}
	return resp
}

type memAppender struct {
	records []types.EnrichedClaim
	failOn  string
}

func (m *memAppender) Append(v any) error {
	e := v.(types.EnrichedClaim)
	if e.ID == m.failOn {
		return errors.New("disk full")
	}
	m.records = append(m.records, e)
	return nil
}

func newPipeline(t *testing.T, s search.Searcher, untrusted []string, cfg types.EnrichConfig) *Pipeline {
	t.Helper()
	p, err := New(s, untrusted, cfg, logging.Discard())
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestBucketDedupesAndCaps(t *testing.T) {
	b := NewBucket(3)
	assert.True(t, b.Add(types.Source{URL: "https://www.Example.com/a/"}))
	assert.False(t, b.Add(types.Source{URL: "http://example.com/a#top"}), "same page")
	assert.False(t, b.Add(types.Source{URL: "not a url"}))
	assert.True(t, b.Add(types.Source{URL: "https://example.com/a?page=2"}))
	assert.True(t, b.Add(types.Source{URL: "https://other.org/"}))
	assert.True(t, b.Full())
	assert.False(t, b.Add(types.Source{URL: "https://third.net/"}))

	got := b.Sources()
	require.Len(t, got, 3)
	assert.Equal(t, "example.com", got[0].Domain)
	assert.Equal(t, "https://www.Example.com/a/", got[0].URL, "stored URL is untouched")
	assert.Equal(t, "other.org", got[2].Domain)
}

func TestURLKey(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"https://www.example.com/a/", "example.com/a", true},
		{"HTTP://EXAMPLE.com/A", "example.com/A", true},
		{"https://example.com/?q=1#frag", "example.com?q=1", true},
		{"  https://example.com  ", "example.com", true},
		{"/relative/path", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := URLKey(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "example.com", DomainOf("https://WWW.Example.com:8443/x"))
	assert.Equal(t, "news.example.com", DomainOf("http://news.example.com"))
	assert.Equal(t, "", DomainOf("::"))
}

func TestDomainSetMatchesSubdomains(t *testing.T) {
	s := newDomainSet([]string{"fake.com", "bad.org"})
	assert.True(t, s.contains("fake.com"))
	assert.True(t, s.contains("news.fake.com"))
	assert.False(t, s.contains("notfake.com"))
	assert.False(t, s.contains("com"))
	assert.False(t, s.contains(""))
}

func TestChunk(t *testing.T) {
	list := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunk(list, 2))
	assert.Equal(t, [][]string{list}, chunk(list, 5))
	assert.Equal(t, [][]string{list}, chunk(list, -1))
	assert.Nil(t, chunk(nil, 2))
}

func TestNewRejectsTemplateWithoutPlaceholder(t *testing.T) {
	_, err := New(&fakeSearcher{}, nil, types.EnrichConfig{TrustedTemplates: []string{"static query"}}, logging.Discard())
	assert.ErrorContains(t, err, "static query")
}

func TestRender(t *testing.T) {
	assert.Equal(t, "Fake news related to: vaccines cause autism",
		Render(DefaultUntrustedTemplates[1], "vaccines cause autism"))
}

func TestEnrichClaimFillsBothBuckets(t *testing.T) {
	fs := &fakeSearcher{respond: func(req search.Request) (*search.Response, error) {
		if len(req.IncludeDomains) > 0 {
			return results("https://fake.com/1", "https://www.fake.com/1/", "https://sub.bad.org/2"), nil
		}
		return results("https://nature.com/a", "https://who.int/b"), nil
	}}
	p := newPipeline(t, fs, []string{"fake.com", "bad.org"}, types.EnrichConfig{BucketSize: 3})

	e, err := p.EnrichClaim(context.Background(), types.Claim{ID: "c1", Text: "the moon is cheese"})
	require.NoError(t, err)

	require.Len(t, e.Supporting, 2)
	assert.Equal(t, "nature.com", e.Supporting[0].Domain)
	assert.Equal(t, "the moon is cheese", e.Supporting[0].Query)

	require.Len(t, e.Opposing, 2)
	assert.Equal(t, "https://fake.com/1", e.Opposing[0].URL)
	assert.Equal(t, "sub.bad.org", e.Opposing[1].Domain)

	// Both trusted templates run because the bucket never fills.
	var trusted, untrusted []string
	for _, r := range fs.requests {
		if len(r.IncludeDomains) > 0 {
			untrusted = append(untrusted, r.Query)
		} else {
			trusted = append(trusted, r.Query)
		}
	}
	assert.Equal(t, []string{
		"the moon is cheese",
		"Is it true that the moon is cheese? Scientific evidence",
	}, trusted)
	assert.Equal(t, []string{
		"the moon is cheese",
		"Fake news related to: the moon is cheese",
	}, untrusted)
}

func TestEnrichClaimStopsWhenBucketFull(t *testing.T) {
	fs := &fakeSearcher{respond: func(req search.Request) (*search.Response, error) {
		if len(req.IncludeDomains) > 0 {
			return results("https://fake.com/1", "https://fake.com/2"), nil
		}
		return results("https://a.com", "https://b.com", "https://c.com"), nil
	}}
	p := newPipeline(t, fs, []string{"fake.com"}, types.EnrichConfig{BucketSize: 2})

	e, err := p.EnrichClaim(context.Background(), types.Claim{ID: "c1", Text: "x"})
	require.NoError(t, err)
	assert.Len(t, e.Supporting, 2)
	assert.Len(t, e.Opposing, 2)
	assert.Len(t, fs.requests, 2, "one search per bucket")
}

func TestEnrichClaimDropsOpposingResultsOutsideChunk(t *testing.T) {
	fs := &fakeSearcher{respond: func(req search.Request) (*search.Response, error) {
		if len(req.IncludeDomains) > 0 {
			return results("https://reuters.com/leak", "https://fake.com/ok"), nil
		}
		return results(), nil
	}}
	p := newPipeline(t, fs, []string{"fake.com"}, types.EnrichConfig{})

	e, err := p.EnrichClaim(context.Background(), types.Claim{ID: "c1", Text: "x"})
	require.NoError(t, err)
	require.Len(t, e.Opposing, 1)
	assert.Equal(t, "fake.com", e.Opposing[0].Domain)
	assert.Empty(t, e.Supporting)
	assert.NotNil(t, e.Supporting)
}

func TestEnrichClaimChunksDomains(t *testing.T) {
	fs := &fakeSearcher{respond: func(req search.Request) (*search.Response, error) {
		return results(), nil
	}}
	p := newPipeline(t, fs, []string{"a.com", "b.com", "c.com"}, types.EnrichConfig{
		DomainChunkSize:    2,
		UntrustedTemplates: []string{"{claim}"},
	})

	_, err := p.EnrichClaim(context.Background(), types.Claim{ID: "c1", Text: "x"})
	require.NoError(t, err)

	var includes [][]string
	for _, r := range fs.requests {
		if len(r.IncludeDomains) > 0 {
			includes = append(includes, r.IncludeDomains)
		}
	}
	assert.Equal(t, [][]string{{"a.com", "b.com"}, {"c.com"}}, includes)
}

func TestEnrichClaimExcludeUntrusted(t *testing.T) {
	fs := &fakeSearcher{respond: func(req search.Request) (*search.Response, error) {
		if len(req.IncludeDomains) > 0 {
			return results(), nil
		}
		return results("https://fake.com/x", "https://good.org/y"), nil
	}}
	p := newPipeline(t, fs, []string{"fake.com"}, types.EnrichConfig{ExcludeUntrusted: true})

	e, err := p.EnrichClaim(context.Background(), types.Claim{ID: "c1", Text: "x"})
	require.NoError(t, err)
	require.Len(t, e.Supporting, 1)
	assert.Equal(t, "good.org", e.Supporting[0].Domain)
	assert.Equal(t, []string{"fake.com"}, fs.requests[0].ExcludeDomains)
}

func TestEnrichClaimWithoutUntrustedDomains(t *testing.T) {
	fs := &fakeSearcher{respond: func(req search.Request) (*search.Response, error) {
		assert.Empty(t, req.IncludeDomains, "no restricted searches without a domain list")
		return results("https://a.com"), nil
	}}
	p := newPipeline(t, fs, nil, types.EnrichConfig{})

	e, err := p.EnrichClaim(context.Background(), types.Claim{ID: "c1", Text: "x"})
	require.NoError(t, err)
	assert.Len(t, e.Supporting, 1)
	assert.Empty(t, e.Opposing)
}

func TestEnrichClaimSearchError(t *testing.T) {
	boom := errors.New("quota exceeded")
	fs := &fakeSearcher{respond: func(req search.Request) (*search.Response, error) {
		return nil, boom
	}}
	p := newPipeline(t, fs, nil, types.EnrichConfig{})

	_, err := p.EnrichClaim(context.Background(), types.Claim{ID: "c9", Text: "x"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "claim c9")
}

func TestRunSkipsDoneAndAppends(t *testing.T) {
	fs := &fakeSearcher{respond: func(req search.Request) (*search.Response, error) {
		if len(req.IncludeDomains) > 0 {
			return results("https://fake.com/" + url.PathEscape(req.Query)), nil
		}
		return results("https://good.org/"+url.PathEscape(req.Query), "https://better.org/"+url.PathEscape(req.Query)), nil
	}}
	p := newPipeline(t, fs, []string{"fake.com"}, types.EnrichConfig{BucketSize: 2})

	claims := []types.Claim{
		{ID: "1", Text: "first"},
		{ID: "2", Text: "second"},
		{ID: "3", Text: "third"},
	}
	out := &memAppender{}
	var buf bytes.Buffer
	summary, err := p.Run(context.Background(), claims, map[string]bool{"2": true}, out, &buf)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Enriched)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 4, summary.Supporting)
	assert.Equal(t, 4, summary.Opposing)
	assert.Len(t, summary.RunID, 26)

	require.Len(t, out.records, 2)
	assert.Equal(t, "1", out.records[0].ID)
	assert.Equal(t, "3", out.records[1].ID)
	for _, r := range out.records {
		assert.Equal(t, summary.RunID, r.RunID)
		assert.Equal(t, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), r.EnrichedAt)
	}

	text := buf.String()
	assert.Contains(t, text, "skipped  2 (already enriched)")
	assert.Contains(t, text, "enriched 3 (supporting 2, opposing 2) [3/3]")
	assert.True(t, strings.HasSuffix(text, "enriched: 2, skipped: 1, sources: 4 supporting, 4 opposing\n"))
}

func TestRunResumesLedgerWithoutDuplicates(t *testing.T) {
	fs := &fakeSearcher{respond: func(req search.Request) (*search.Response, error) {
		return results("https://good.org/" + url.PathEscape(req.Query)), nil
	}}
	p := newPipeline(t, fs, nil, types.EnrichConfig{BucketSize: 1})
	path := filepath.Join(t.TempDir(), "output", "enriched.jsonl")

	// An earlier run finished claim 1 and died while writing claim 2.
	w, err := ledger.OpenWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(types.EnrichedClaim{Claim: types.Claim{ID: "1", Text: "first"}}))
	require.NoError(t, w.Close())
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"claim_id":"2","supporting_sou`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	claims := []types.Claim{
		{ID: "1", Text: "first"},
		{ID: "2", Text: "second"},
		{ID: "3", Text: "third"},
	}
	resume := func() Summary {
		t.Helper()
		done, err := ledger.CompletedIDs(path)
		require.NoError(t, err)
		w, err := ledger.OpenWriter(path)
		require.NoError(t, err)
		summary, err := p.Run(context.Background(), claims, done, w, &bytes.Buffer{})
		require.NoError(t, err)
		require.NoError(t, w.Close())
		return summary
	}

	first := resume()
	assert.Equal(t, 2, first.Enriched)
	assert.Equal(t, 1, first.Skipped)

	second := resume()
	assert.Zero(t, second.Enriched)
	assert.Equal(t, 3, second.Skipped)

	seen := make(map[string]int)
	stats, err := ledger.ReadEnriched(path, func(e types.EnrichedClaim) error {
		seen[e.ID]++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Records)
	assert.Zero(t, stats.Torn)
	assert.Equal(t, map[string]int{"1": 1, "2": 1, "3": 1}, seen)
}

func TestRunStopsAtFirstError(t *testing.T) {
	fs := &fakeSearcher{respond: func(req search.Request) (*search.Response, error) {
		if strings.Contains(req.Query, "bad") {
			return nil, &search.APIError{StatusCode: 432, Body: "plan limit"}
		}
		return results("https://a.com/" + url.PathEscape(req.Query)), nil
	}}
	p := newPipeline(t, fs, nil, types.EnrichConfig{})

	out := &memAppender{}
	claims := []types.Claim{{ID: "1", Text: "ok"}, {ID: "2", Text: "bad"}, {ID: "3", Text: "never"}}
	summary, err := p.Run(context.Background(), claims, nil, out, &bytes.Buffer{})

	var apiErr *search.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1, summary.Enriched)
	require.Len(t, out.records, 1)
	assert.Equal(t, "1", out.records[0].ID)
}

func TestRunAppendError(t *testing.T) {
	fs := &fakeSearcher{respond: func(req search.Request) (*search.Response, error) {
		return results(), nil
	}}
	p := newPipeline(t, fs, nil, types.EnrichConfig{})

	_, err := p.Run(context.Background(), []types.Claim{{ID: "1", Text: "x"}}, nil, &memAppender{failOn: "1"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "disk full")
}

func TestRunCancelled(t *testing.T) {
	fs := &fakeSearcher{respond: func(req search.Request) (*search.Response, error) {
		return results(), nil
	}}
	p := newPipeline(t, fs, nil, types.EnrichConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := p.Run(ctx, []types.Claim{{ID: "1", Text: "x"}}, nil, &memAppender{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Enriched)
	assert.Empty(t, fs.requests)
}
