package locator

import (
	"strconv"
	"strings"
)

// Predicate is one bracketed filter attached to a path segment: a
// zero-based index, an attribute equality test, or an attribute presence
// test.
type Predicate struct {
	// Name is the attribute name. Empty for index predicates.
	Name string
	// Value is the comparison value. Meaningful only when Wildcard is
	// false; [caption=""] and [caption] are different predicates.
	Value string
	// Wildcard marks a presence-only test.
	Wildcard bool
	// Index is the position selector, or -1 when the predicate is not an
	// index.
	Index int
}

// ExtractPredicates parses the bracketed predicates of one path segment, in
// the order they appear. Both successive groups (T[a="x"][0]) and
// comma-separated predicates within a group (T[a="x", 0]) are accepted.
// Parsing is permissive: malformed input yields fewer predicates, never an
// error.
func ExtractPredicates(fragment string) []Predicate {
	var preds []Predicate
	for _, raw := range predicateStrings(fragment) {
		preds = append(preds, parsePredicate(raw))
	}
	return preds
}

// ExtractPostFilterPredicates recognizes the whole-result index wrapper,
// "(" path ")[N]", and returns at most one index predicate. Queries not of
// that shape, including a wrapper without an index, yield nothing.
func ExtractPostFilterPredicates(query string) []Predicate {
	if !strings.HasPrefix(query, "(") {
		return nil
	}
	end := lastIndexOfUnquoted(query, ')')
	if end < 0 {
		return nil
	}
	for _, p := range ExtractPredicates(query[end:]) {
		if p.Index > -1 {
			return []Predicate{p}
		}
	}
	return nil
}

// predicateStrings collects the trimmed predicate texts of every complete
// unquoted bracket group. An unterminated group ends the scan.
func predicateStrings(fragment string) []string {
	var out []string
	at := 0
	for {
		open := indexOfUnquoted(fragment, '[', at)
		if open < 0 {
			return out
		}
		end := indexOfUnquoted(fragment, ']', open+1)
		if end < 0 {
			return out
		}
		for _, part := range splitUnquoted(fragment[open+1:end], ',') {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		at = end + 1
	}
}

func parsePredicate(s string) Predicate {
	p := Predicate{Index: -1}

	// Negative numbers are deliberately not index predicates; they fall
	// through and read as (never-present) attribute names.
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		p.Index = n
		return p
	}

	eq := indexOfUnquoted(s, '=', 0)
	if eq < 0 {
		p.Name = strings.TrimSpace(s)
		p.Wildcard = true
		return p
	}
	p.Name = strings.TrimSpace(s[:eq])
	p.Value = unquote(strings.TrimSpace(s[eq+1:]))
	return p
}

// unquote strips one pair of surrounding quotes, if present.
func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
