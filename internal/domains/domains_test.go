// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package domains

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const sampleCSV = `Domain,Rating,Score,Country,Language
lowtrust.example,N,12.5,US,en
trusted.example,T,95,US,en
worst.example,N,0,US,en
lowtrust.example,N,7.5,US,en
foreign.example,N,20,FR,fr
unscored.example,N,,US,en
tooHigh.example,N,62,US,en
edge.example,N,50,US,en
`

func readSample(t *testing.T) []Rating {
	t.Helper()
	ratings, err := ReadRatings(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return ratings
}

// --- CSV parsing ---

func TestReadRatings(t *testing.T) {
	ratings := readSample(t)
	require.Len(t, ratings, 8)

	assert.Equal(t, Rating{Domain: "lowtrust.example", Rating: "N", Score: 12.5, Country: "US", Language: "en"}, ratings[0])
	assert.True(t, math.IsNaN(ratings[5].Score), "empty score should parse as NaN")
}

func TestReadRatingsOptionalColumns(t *testing.T) {
	ratings, err := ReadRatings(strings.NewReader("\ufeffScore,Domain,Rating\n15,a.example,N\n"))
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, "a.example", ratings[0].Domain)
	assert.Equal(t, 15.0, ratings[0].Score)
	assert.Empty(t, ratings[0].Country)
}

func TestReadRatingsMissingColumn(t *testing.T) {
	_, err := ReadRatings(strings.NewReader("Domain,Score\na.example,10\n"))
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "Rating")
}

func TestReadRatingsEmpty(t *testing.T) {
	_, err := ReadRatings(strings.NewReader(""))
	assert.Error(t, err)
}

// --- filtering ---

func TestExtractUntrusted(t *testing.T) {
	ratings := readSample(t)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{
			name:   "default range sorted by score with duplicates dropped",
			filter: DefaultFilter(),
			want:   []string{"worst.example", "lowtrust.example", "foreign.example", "edge.example"},
		},
		{
			name:   "narrow range",
			filter: Filter{MinScore: 10, MaxScore: 30},
			want:   []string{"lowtrust.example", "foreign.example"},
		},
		{
			name:   "country and language",
			filter: Filter{MinScore: 0, MaxScore: 50, Country: "US", Language: "en"},
			want:   []string{"worst.example", "lowtrust.example", "edge.example"},
		},
		{
			name:   "no match",
			filter: Filter{MinScore: 90, MaxScore: 100},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractUntrusted(ratings, tt.filter))
		})
	}
}

func TestExtractUntrustedKeepsLowestScore(t *testing.T) {
	// lowtrust.example matches twice (12.5 and 7.5) but is listed once.
	got := ExtractUntrusted(readSample(t), Filter{MinScore: 5, MaxScore: 15})
	assert.Equal(t, []string{"lowtrust.example"}, got)
}

func TestLoadNewsGuard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	got, err := LoadNewsGuard(path, Filter{MinScore: 0, MaxScore: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"worst.example", "lowtrust.example"}, got)

	_, err = LoadNewsGuard(filepath.Join(t.TempDir(), "missing.csv"), DefaultFilter())
	assert.Error(t, err)
}

// --- lists ---

func TestWikiReturnsCopy(t *testing.T) {
	w := Wiki()
	require.Len(t, w, 73)
	assert.Equal(t, "naturalnews.com", w[0])
	assert.Equal(t, "dailywire.com", w[len(w)-1])

	w[0] = "mutated.example"
	assert.Equal(t, "naturalnews.com", Wiki()[0])
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  Example.COM ":                 "example.com",
		"https://www.example.com/path?q": "example.com",
		"www.example.com.":               "example.com",
		"sub.example.com#frag":           "sub.example.com",
		"":                               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestMerge(t *testing.T) {
	got := Merge(
		[]string{"b.example", "A.example"},
		[]string{"a.example", "", "www.c.example"},
		nil,
	)
	assert.Equal(t, []string{"b.example", "a.example", "c.example"}, got)
}

func TestListRoundTrip(t *testing.T) {
	domains := []string{"z.example", "a.example"}
	for _, ext := range []string{".txt", ".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "domains"+ext)
			require.NoError(t, WriteList(path, domains))
			got, err := ReadList(path)
			require.NoError(t, err)
			assert.Equal(t, domains, got)
		})
	}
}

func TestReadListTextComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.txt")
	content := "# low-trust sites\nfirst.example\n\n  second.example  # trailing\nFIRST.example\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := ReadList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first.example", "second.example"}, got)
}

// --- build ---

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "labels.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))
	extraPath := filepath.Join(dir, "extra.txt")
	require.NoError(t, os.WriteFile(extraPath, []byte("extra.example\nmercola.com\n"), 0o644))

	got, err := Build(types.DomainsConfig{
		NewsGuardCSV: csvPath,
		MinScore:     0,
		MaxScore:     10,
		IncludeWiki:  true,
		ExtraFiles:   []string{extraPath},
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, []string{"worst.example", "lowtrust.example"}, got[:2])
	assert.Equal(t, "naturalnews.com", got[2])
	assert.Equal(t, "extra.example", got[len(got)-1])
	assert.Len(t, got, 2+73+1)
}

func TestBuildEmptyConfig(t *testing.T) {
	got, err := Build(types.DomainsConfig{}, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, got)
}
