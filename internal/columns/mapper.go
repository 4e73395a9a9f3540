// Package columns maps free-form spreadsheet headers onto the canonical
// pricelist fields.
package columns

import (
	"strings"

	"pricelist/internal"
	"pricelist/internal/util"
)

const (
	// FuzzyThreshold is the lowest similarity accepted for a non-exact match.
	FuzzyThreshold = 0.8
	// LowConfidenceThreshold flags mapped fields worth a human look.
	LowConfidenceThreshold = 0.9
	// punctuationMatch scores headers equal to an alias only after
	// util.NormalizeLabel, e.g. "Item_Desc." for "item desc".
	punctuationMatch = 0.95
)

type alias struct {
	exact      string
	normalized string
}

// Mapper assigns headers to fields greedily in field declaration order.
// A header claimed by one field is never offered to a later one.
type Mapper struct {
	aliases map[internal.Field][]alias
}

func NewMapper() *Mapper {
	table := make(map[internal.Field][]alias, len(aliases))
	for field, list := range aliases {
		seen := map[string]bool{}
		for _, a := range list {
			exact := exactLabel(a)
			if exact == "" || seen[exact] {
				continue
			}
			seen[exact] = true
			table[field] = append(table[field], alias{exact: exact, normalized: util.NormalizeLabel(a)})
		}
	}
	return &Mapper{aliases: table}
}

// exactLabel is the case-insensitive comparison form of a header.
func exactLabel(s string) string {
	return strings.ToLower(util.CollapseSpaces(strings.TrimPrefix(s, "\ufeff")))
}

// Map resolves headers to fields. Manual overrides name a header per field
// and are applied first with confidence 1.0.
func (m *Mapper) Map(headers []string, overrides map[internal.Field]string) internal.FieldMapping {
	exact := make([]string, len(headers))
	normalized := make([]string, len(headers))
	for i, h := range headers {
		exact[i] = exactLabel(h)
		normalized[i] = util.NormalizeLabel(h)
	}

	claimed := make([]bool, len(headers))
	out := internal.FieldMapping{Columns: map[internal.Field]internal.ColumnMatch{}}

	for _, field := range internal.Fields {
		want, ok := overrides[field]
		if !ok {
			continue
		}
		want = util.NormalizeLabel(want)
		if want == "" {
			continue
		}
		for i, h := range normalized {
			if !claimed[i] && h == want {
				claimed[i] = true
				out.Columns[field] = internal.ColumnMatch{Header: headers[i], Index: i, Confidence: 1.0}
				break
			}
		}
	}

	for _, field := range internal.Fields {
		if _, done := out.Columns[field]; done {
			continue
		}
		bestIdx, bestScore := -1, 0.0
		for i, h := range normalized {
			if claimed[i] || h == "" {
				continue
			}
			score := m.score(field, exact[i], h)
			if score > bestScore {
				bestIdx, bestScore = i, score
			}
			if score == 1.0 {
				break
			}
		}
		if bestIdx >= 0 && bestScore >= FuzzyThreshold {
			claimed[bestIdx] = true
			out.Columns[field] = internal.ColumnMatch{Header: headers[bestIdx], Index: bestIdx, Confidence: bestScore}
		}
	}

	for i, h := range headers {
		if !claimed[i] {
			out.UnmappedHeaders = append(out.UnmappedHeaders, h)
		}
	}
	return out
}

// score is 1.0 for a case-insensitive alias match, otherwise the best
// similarity between the normalized header and any alias of field.
func (m *Mapper) score(field internal.Field, exact, normalized string) float64 {
	best := 0.0
	for _, a := range m.aliases[field] {
		if a.exact == exact {
			return 1.0
		}
		s := punctuationMatch
		if a.normalized != normalized {
			s = util.Similarity(normalized, a.normalized)
		}
		if s > best {
			best = s
		}
	}
	return best
}

type Validation struct {
	Valid           bool
	MissingRequired []internal.Field
	LowConfidence   []internal.Field
}

// ValidateMapping reports unmapped required fields and weakly matched ones.
func ValidateMapping(mapping internal.FieldMapping) Validation {
	var v Validation
	for _, f := range internal.RequiredFields {
		if _, ok := mapping.Columns[f]; !ok {
			v.MissingRequired = append(v.MissingRequired, f)
		}
	}
	for _, f := range internal.Fields {
		if c, ok := mapping.Columns[f]; ok && c.Confidence < LowConfidenceThreshold {
			v.LowConfidence = append(v.LowConfidence, f)
		}
	}
	v.Valid = len(v.MissingRequired) == 0
	return v
}
