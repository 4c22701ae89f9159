// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"net/url"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Bucket is a fixed-capacity list of sources with unique URLs. Sources
// keep the order in which they were first added.
type Bucket struct {
	capacity int
	seen     map[string]bool
	sources  []types.Source
}

// NewBucket returns an empty bucket holding at most capacity sources.
func NewBucket(capacity int) *Bucket {
	return &Bucket{
		capacity: capacity,
		seen:     make(map[string]bool, capacity),
		sources:  make([]types.Source, 0, capacity),
	}
}

// Add appends s unless the bucket is full, s has no usable URL, or a
// source with the same normalized URL is already present. It reports
// whether s was added.
func (b *Bucket) Add(s types.Source) bool {
	if b.Full() {
		return false
	}
	key, ok := URLKey(s.URL)
	if !ok || b.seen[key] {
		return false
	}
	b.seen[key] = true
	if s.Domain == "" {
		s.Domain = DomainOf(s.URL)
	}
	b.sources = append(b.sources, s)
	return true
}

// Full reports whether the bucket has reached capacity.
func (b *Bucket) Full() bool { return len(b.sources) >= b.capacity }

// Len returns the number of sources held.
func (b *Bucket) Len() int { return len(b.sources) }

// Sources returns a copy of the held sources in insertion order.
func (b *Bucket) Sources() []types.Source {
	out := make([]types.Source, len(b.sources))
	copy(out, b.sources)
	return out
}

// URLKey returns the deduplication key for a URL: host without "www."
// and port-normalized case, path without a trailing slash, and the raw
// query. Scheme and fragment are ignored, so http and https copies of a
// page collide. ok is false for URLs without a host.
func URLKey(raw string) (key string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimRight(u.EscapedPath(), "/")
	key = host + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key, true
}

// DomainOf returns the lowercased hostname of raw without port or a
// leading "www.", or "" when raw does not parse.
func DomainOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// domainSet matches hostnames against a list of registrable domains,
// including their subdomains.
type domainSet map[string]bool

func newDomainSet(domains []string) domainSet {
	s := make(domainSet, len(domains))
	for _, d := range domains {
		if d != "" {
			s[d] = true
		}
	}
	return s
}

// contains reports whether host equals a listed domain or is a subdomain
// of one.
func (s domainSet) contains(host string) bool {
	for host != "" {
		if s[host] {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return false
		}
		host = host[i+1:]
	}
	return false
}
