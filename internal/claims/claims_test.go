// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package claims

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONArray(t *testing.T) {
	input := `  [
		{"id": "c1", "claim": "Ultraviolet light is associated with higher covid-19 growth rates", "label": "false"},
		{"id": 42, "claim": " Vitamin C cures colds ", "source": "poll"},
		{"claim": "Masks reduce transmission"}
	]`

	claims, err := Decode(strings.NewReader(input), Options{})
	require.NoError(t, err)
	require.Len(t, claims, 3)

	assert.Equal(t, "c1", claims[0].ID)
	assert.Equal(t, "Ultraviolet light is associated with higher covid-19 growth rates", claims[0].Text)
	assert.Equal(t, "false", claims[0].Record["label"])

	assert.Equal(t, "42", claims[1].ID)
	assert.Equal(t, "Vitamin C cures colds", claims[1].Text)
	assert.Equal(t, json.Number("42"), claims[1].Record["id"])

	assert.Equal(t, "claim-3", claims[2].ID)
}

func TestDecodeJSONLines(t *testing.T) {
	input := "{\"statement\": \"first\", \"key\": \"a\"}\n\n{\"statement\": \"second\", \"key\": \"b\"}\n"

	claims, err := Decode(strings.NewReader(input), Options{TextField: "statement", IDField: "key"})
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, "a", claims[0].ID)
	assert.Equal(t, "second", claims[1].Text)
}

func TestDecodeByteOrderMark(t *testing.T) {
	claims, err := Decode(strings.NewReader("\ufeff[{\"claim\": \"x\"}]"), Options{})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "claim-1", claims[0].ID)
}

func TestDecodeEmpty(t *testing.T) {
	claims, err := Decode(strings.NewReader("  \n "), Options{})
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
		is      error
	}{
		{"missing claim field", `[{"id": "a"}]`, "record 1", ErrMissingClaimField},
		{"blank claim", `[{"claim": "  "}]`, "record 1", ErrMissingClaimField},
		{"non-string claim", `[{"claim": 7}]`, "record 1", ErrMissingClaimField},
		{"null record", `[{"claim": "x"}, null]`, "record 2: expected a JSON object", nil},
		{"bad id type", `[{"claim": "x", "id": [1]}]`, "must be a string or number", nil},
		{"duplicate ids", `[{"claim": "x", "id": "a"}, {"claim": "y", "id": "a"}]`, `duplicate id "a"`, nil},
		{"synthesized id collides", `[{"claim": "x"}, {"claim": "y", "id": "claim-1"}]`, "duplicate id", nil},
		{"malformed array", `[{"claim": "x"`, "parsing JSON array", nil},
		{"malformed line", "{\"claim\": \"x\"}\n{oops}\n", "line 2", nil},
		{"non-object line", "{\"claim\": \"x\"}\nnull\n", "line 2: expected a JSON object", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"claim": "x", "id": "one"}`+"\n"), 0o644))

	claims, err := Load(path, Options{})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "one", claims[0].ID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), Options{})
	assert.Error(t, err)
}
