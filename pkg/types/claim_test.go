// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichedClaimMarshalFlattensRecord(t *testing.T) {
	e := EnrichedClaim{
		Claim: Claim{ID: "7", Text: "x", Record: map[string]any{
			"claim":      "x",
			"label":      "mostly-false",
			"run_id":     "stale",
			"supporting": "kept as an ordinary field",
		}},
		Supporting: []Source{{Title: "t", URL: "https://a.org"}},
		RunID:      "01J0000000000000000000000R",
		EnrichedAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.FixedZone("CET", 3600)),
	}

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "mostly-false", got["label"])
	assert.Equal(t, "kept as an ordinary field", got["supporting"])
	assert.Equal(t, "7", got[FieldClaimID])
	assert.Equal(t, "01J0000000000000000000000R", got[FieldRunID], "reserved keys win over record fields")
	assert.Equal(t, "2026-02-03T03:05:06Z", got[FieldEnrichedAt])
	assert.Equal(t, []any{}, got[FieldOpposing], "nil bucket encodes as an empty array")
	require.Len(t, got[FieldSupporting], 1)
}

func TestEnrichedClaimMarshalOmitsUnsetRunFields(t *testing.T) {
	data, err := json.Marshal(EnrichedClaim{Claim: Claim{ID: "1"}})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.NotContains(t, got, FieldRunID)
	assert.NotContains(t, got, FieldEnrichedAt)
	assert.Len(t, got, 3)
}

func TestEnrichedClaimUnmarshalSplitsReservedKeys(t *testing.T) {
	in := `{"id":"a","claim":"the sky is green","claim_id":"a",
		"supporting_sources":[{"title":"s","url":"https://s.org","content":"","score":0.5}],
		"opposing_sources":[],"run_id":"R","enriched_at":"2026-01-02T03:04:05Z"}`

	var e EnrichedClaim
	require.NoError(t, json.Unmarshal([]byte(in), &e))
	assert.Equal(t, "a", e.ID)
	assert.Empty(t, e.Text)
	assert.Equal(t, map[string]any{"id": "a", "claim": "the sky is green"}, e.Record)
	require.Len(t, e.Supporting, 1)
	assert.Equal(t, 0.5, e.Supporting[0].Score)
	assert.Empty(t, e.Opposing)
	assert.Equal(t, "R", e.RunID)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), e.EnrichedAt)
}

func TestEnrichedClaimUnmarshalErrors(t *testing.T) {
	tests := []string{
		`[1,2]`,
		`{"claim_id": 5}`,
		`{"enriched_at": "yesterday"}`,
		`{"supporting_sources": "none"}`,
	}
	for _, in := range tests {
		var e EnrichedClaim
		assert.Error(t, json.Unmarshal([]byte(in), &e), in)
	}
}

func TestEnrichedClaimCarriesClaimText(t *testing.T) {
	e := EnrichedClaim{Claim: Claim{ID: "c1", Text: "UV light raises covid growth", Record: map[string]any{
		"statement": "UV light raises covid growth",
	}}}
	data, err := json.Marshal(e)
	require.NoError(t, err)

	var got EnrichedClaim
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "UV light raises covid growth", got.Text)
	assert.NotContains(t, got.Record, FieldClaimText)
	assert.Equal(t, "UV light raises covid growth", got.Record["statement"])
}
