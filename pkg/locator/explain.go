package locator

import "strings"

// Explanation is the parsed reading of a query: how Resolve would interpret
// it from the tree top, without evaluating anything. Useful for debugging
// queries that match nothing, since resolution itself never errors.
type Explanation struct {
	Query string `json:"query"`

	// Overlay is true when the first segment addresses the overlay
	// registry instead of the tree.
	Overlay bool `json:"overlay"`

	Segments []ExplainedSegment `json:"segments"`

	// Subpart is the trailing #name, if any.
	Subpart string `json:"subpart,omitempty"`

	// PostFilter lists the whole-result index wrapper's selections.
	PostFilter []int `json:"post_filter,omitempty"`
}

// ExplainedSegment is one path step.
type ExplainedSegment struct {
	// Descent is "child" for / and "descendant" for //.
	Descent string `json:"descent"`

	Token string `json:"token"`

	Predicates []ExplainedPredicate `json:"predicates,omitempty"`
}

// ExplainedPredicate is one bracketed filter. Kind is "index", "equals" or
// "present"; Index is -1 for the non-index kinds, mirroring Predicate.
type ExplainedPredicate struct {
	Kind  string `json:"kind"`
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// Explain parses a query without resolving it. The reading is the one
// Resolve uses from the tree top; malformed trailing input degrades to
// fewer predicates or segments exactly as resolution would see it.
func Explain(query string) Explanation {
	ex := Explanation{Query: query}

	path, post := splitPostFilter(query)
	for _, p := range post {
		ex.PostFilter = append(ex.PostFilter, p.Index)
	}

	pathPart, subpart, hasSubpart := splitSubpart(path)
	if hasSubpart {
		ex.Subpart = subpart
	}
	ex.Overlay = isOverlayQuery(pathPart)

	rest := pathPart
	for rest != "" {
		descent := "child"
		if strings.HasPrefix(rest, "//") {
			descent = "descendant"
			rest = rest[2:]
		} else {
			rest = strings.TrimPrefix(rest, "/")
		}

		head, more, hasMore := splitFirstFragment(rest)
		seg := ExplainedSegment{Descent: descent, Token: typeToken(head)}
		for _, p := range ExtractPredicates(head) {
			seg.Predicates = append(seg.Predicates, explainPredicate(p))
		}
		ex.Segments = append(ex.Segments, seg)

		if !hasMore {
			break
		}
		rest = more
	}

	return ex
}

func explainPredicate(p Predicate) ExplainedPredicate {
	switch {
	case p.Index > -1:
		return ExplainedPredicate{Kind: "index", Index: p.Index}
	case p.Wildcard:
		return ExplainedPredicate{Kind: "present", Index: -1, Name: p.Name}
	default:
		return ExplainedPredicate{Kind: "equals", Index: -1, Name: p.Name, Value: p.Value}
	}
}
