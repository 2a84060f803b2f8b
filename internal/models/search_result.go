package models

import "strings"

const (
	ResultTypeColumn = "column"
	ResultTypeEntry  = "entry"

	MatchExact   = "exact"
	MatchPartial = "partial"
)

// SearchResult is a transient hit produced by one search request. It is
// consumed by the current rendering pass only and never persisted.
type SearchResult struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Column    string `json:"column,omitempty"`
	MatchType string `json:"matchType"`
}

// NewColumnResult builds a column hit. The match is exact when the column
// name equals the query ignoring case, partial otherwise.
func NewColumnResult(column, query string) SearchResult {
	matchType := MatchPartial
	if strings.EqualFold(column, query) {
		matchType = MatchExact
	}
	return SearchResult{
		Type:      ResultTypeColumn,
		Value:     column,
		MatchType: matchType,
	}
}

// NewEntryResult builds a value hit. Value search is exact-match only.
func NewEntryResult(column, value string) SearchResult {
	return SearchResult{
		Type:      ResultTypeEntry,
		Column:    column,
		Value:     value,
		MatchType: MatchExact,
	}
}
