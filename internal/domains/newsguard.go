// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package domains builds lists of low-credibility news domains from a
// NewsGuard rating export and a built-in misinformation list.
package domains

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// NewsGuard column names.
const (
	colDomain   = "Domain"
	colRating   = "Rating"
	colScore    = "Score"
	colCountry  = "Country"
	colLanguage = "Language"
)

// RatingUntrusted is the NewsGuard rating for sites that fail its criteria.
const RatingUntrusted = "N"

// Rating is one row of a NewsGuard label export.
type Rating struct {
	Domain   string
	Rating   string
	Score    float64 // NaN when the row has no numeric score
	Country  string
	Language string
}

// Filter selects untrusted rows. Score bounds are inclusive. Empty
// Country or Language match any value.
type Filter struct {
	MinScore float64
	MaxScore float64
	Country  string
	Language string
}

// DefaultFilter matches every untrusted site scoring 0 to 50.
func DefaultFilter() Filter {
	return Filter{MinScore: 0, MaxScore: 50}
}

// ReadRatings parses a NewsGuard CSV with a header row. Domain, Rating and
// Score are required; Country and Language are read when present.
func ReadRatings(r io.Reader) ([]Rating, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("reading header: empty file")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	for _, required := range []string{colDomain, colRating, colScore} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var ratings []Rating
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}

		score := math.NaN()
		if s := field(row, colScore); s != "" {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				score = v
			}
		}

		ratings = append(ratings, Rating{
			Domain:   field(row, colDomain),
			Rating:   field(row, colRating),
			Score:    score,
			Country:  field(row, colCountry),
			Language: field(row, colLanguage),
		})
	}
	return ratings, nil
}

// Match reports whether r is an untrusted rating that passes f.
func (f Filter) Match(r Rating) bool {
	if r.Rating != RatingUntrusted || r.Domain == "" {
		return false
	}
	// NaN fails both comparisons.
	if !(r.Score >= f.MinScore && r.Score <= f.MaxScore) {
		return false
	}
	if f.Country != "" && r.Country != f.Country {
		return false
	}
	if f.Language != "" && r.Language != f.Language {
		return false
	}
	return true
}

// ExtractUntrusted returns the domains of ratings matching f, ordered by
// ascending score. A domain listed more than once keeps only its lowest
// scoring row; ties keep input order.
func ExtractUntrusted(ratings []Rating, f Filter) []string {
	var matched []Rating
	for _, r := range ratings {
		if f.Match(r) {
			matched = append(matched, r)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Score < matched[j].Score
	})

	seen := make(map[string]bool, len(matched))
	domains := make([]string, 0, len(matched))
	for _, r := range matched {
		if seen[r.Domain] {
			continue
		}
		seen[r.Domain] = true
		domains = append(domains, r.Domain)
	}
	return domains
}

// LoadNewsGuard reads the CSV at path and applies ExtractUntrusted.
func LoadNewsGuard(path string, f Filter) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening NewsGuard CSV: %w", err)
	}
	defer file.Close()

	ratings, err := ReadRatings(file)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return ExtractUntrusted(ratings, f), nil
}
