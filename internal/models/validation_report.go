package models

import (
	"strings"

	"github.com/spf13/cast"
)

// ValidationErrorReport groups upstream validation messages into the fixed
// categories the dashboard renders. Derived from one error response and
// discarded once dismissed.
type ValidationErrorReport struct {
	MissingColumns []string `json:"missingColumns"`
	ExtraColumns   []string `json:"extraColumns"`
	InvalidValues  []string `json:"invalidValues"`
	EmptyValues    []string `json:"emptyValues"`
	Other          []string `json:"other"`
}

func (r *ValidationErrorReport) Empty() bool {
	return len(r.MissingColumns) == 0 && len(r.ExtraColumns) == 0 &&
		len(r.InvalidValues) == 0 && len(r.EmptyValues) == 0 && len(r.Other) == 0
}

const validationFailedMarker = "CSV validation failed:"

// payloadKind tags the shapes an upstream error payload can take. The
// upstream service is not consistent: depending on the failure it returns a
// message array, a python-ish stringified list, a plain string or an object
// with a details field.
type payloadKind int

const (
	kindSequence payloadKind = iota
	kindBracketedList
	kindPlainString
	kindDetailsObject
	kindOpaque
)

func detectKind(payload interface{}) payloadKind {
	switch v := payload.(type) {
	case []string, []interface{}:
		return kindSequence
	case string:
		if strings.Contains(v, validationFailedMarker) && strings.Contains(v, "[") {
			return kindBracketedList
		}
		return kindPlainString
	case map[string]interface{}:
		if _, ok := v["details"].([]interface{}); ok {
			return kindDetailsObject
		}
		return kindOpaque
	default:
		return kindOpaque
	}
}

// normalizeMessages flattens any supported payload shape into an ordered
// message list.
func normalizeMessages(payload interface{}) []string {
	switch detectKind(payload) {
	case kindSequence:
		return toStrings(payload)
	case kindBracketedList:
		return splitBracketedList(payload.(string))
	case kindPlainString:
		var out []string
		for _, line := range strings.Split(payload.(string), "\n") {
			if strings.TrimSpace(line) != "" {
				out = append(out, line)
			}
		}
		return out
	case kindDetailsObject:
		return toStrings(payload.(map[string]interface{})["details"])
	default:
		return []string{cast.ToString(payload)}
	}
}

func toStrings(seq interface{}) []string {
	switch v := seq.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, cast.ToString(item))
		}
		return out
	}
	return nil
}

// splitBracketedList extracts the interior of the bracketed list in a
// "CSV validation failed: ['msg1', 'msg2']" string and splits it on commas
// that sit outside single quotes. Each piece is trimmed and stripped of one
// surrounding quote pair.
func splitBracketedList(s string) []string {
	open := strings.Index(s, "[")
	clos := strings.LastIndex(s, "]")
	if open < 0 || clos <= open {
		return []string{s}
	}
	inner := s[open+1 : clos]

	var parts []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range inner {
		switch {
		case r == '\'':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, cur.String())

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "'") && strings.HasSuffix(p, "'") && len(p) >= 2 {
			p = p[1 : len(p)-1]
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ClassifyValidationErrors normalizes an arbitrary upstream error payload
// and places each message into the first matching category. A message never
// lands in more than one bucket.
func ClassifyValidationErrors(payload interface{}) *ValidationErrorReport {
	report := &ValidationErrorReport{}
	for _, msg := range normalizeMessages(payload) {
		switch {
		case strings.Contains(msg, "Missing required columns"):
			report.MissingColumns = append(report.MissingColumns, msg)
		case strings.Contains(msg, "Extra columns not allowed"):
			report.ExtraColumns = append(report.ExtraColumns, msg)
		case strings.Contains(msg, "contains invalid values"):
			report.InvalidValues = append(report.InvalidValues, msg)
		case strings.Contains(msg, "empty values"), strings.Contains(msg, "missing values"):
			report.EmptyValues = append(report.EmptyValues, msg)
		default:
			report.Other = append(report.Other, msg)
		}
	}
	return report
}
