// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the evidence-engine
// pipeline: input claims, retrieved sources, enriched records, and the
// per-stage configuration.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Reserved keys written alongside the original record fields of every
// enriched claim. Input fields with the same names are overwritten.
const (
	FieldClaimID    = "claim_id"
	FieldClaimText  = "claim_text"
	FieldSupporting = "supporting_sources"
	FieldOpposing   = "opposing_sources"
	FieldRunID      = "run_id"
	FieldEnrichedAt = "enriched_at"
)

// Claim is one input record to be enriched.
type Claim struct {
	// ID identifies the claim within its input file. It is taken from the
	// configured ID field or synthesized as "claim-<n>".
	ID string `json:"id" yaml:"id"`

	// Text is the claim statement used to build search queries.
	Text string `json:"claim" yaml:"claim"`

	// Record is the original input object, passed through unchanged.
	Record map[string]any `json:"-" yaml:"-"`
}

// EnrichedClaim is a claim with its supporting and opposing sources
// attached. It serializes as a flat JSON object: the original record
// fields plus the reserved Field* keys.
type EnrichedClaim struct {
	Claim

	Supporting []Source
	Opposing   []Source

	// RunID is the ULID of the enrich run that produced this record.
	RunID string

	EnrichedAt time.Time
}

// MarshalJSON flattens the record and the enrichment keys into one object.
func (e EnrichedClaim) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Record)+6)
	for k, v := range e.Record {
		out[k] = v
	}
	supporting := e.Supporting
	if supporting == nil {
		supporting = []Source{}
	}
	opposing := e.Opposing
	if opposing == nil {
		opposing = []Source{}
	}
	out[FieldClaimID] = e.ID
	if e.Text != "" {
		out[FieldClaimText] = e.Text
	}
	out[FieldSupporting] = supporting
	out[FieldOpposing] = opposing
	if e.RunID != "" {
		out[FieldRunID] = e.RunID
	}
	if !e.EnrichedAt.IsZero() {
		out[FieldEnrichedAt] = e.EnrichedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits a flat enriched object back into the record and
// its enrichment fields. Text is taken from the claim_text key and is
// empty for records written without it.
func (e *EnrichedClaim) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = EnrichedClaim{}
	e.Record = make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case FieldClaimID:
			if err := json.Unmarshal(v, &e.ID); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		case FieldClaimText:
			if err := json.Unmarshal(v, &e.Text); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		case FieldSupporting:
			if err := json.Unmarshal(v, &e.Supporting); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		case FieldOpposing:
			if err := json.Unmarshal(v, &e.Opposing); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		case FieldRunID:
			if err := json.Unmarshal(v, &e.RunID); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		case FieldEnrichedAt:
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			if s != "" {
				t, err := time.Parse(time.RFC3339, s)
				if err != nil {
					return fmt.Errorf("%s: %w", k, err)
				}
				e.EnrichedAt = t
			}
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			e.Record[k] = val
		}
	}
	return nil
}
