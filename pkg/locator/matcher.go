package locator

import (
	"strings"

	"github.com/gnana997/uifind/pkg/component"
)

// findNodesByPath resolves one path (leading descent marker included)
// against a parent set, one segment per recursion step.
func (l *Locator) findNodesByPath(path string, parents []*component.Node) []*component.Node {
	recursive := strings.HasPrefix(path, "//")
	if recursive {
		path = path[2:]
	} else {
		path = strings.TrimPrefix(path, "/")
	}

	head, rest, hasRest := splitFirstFragment(path)
	token := typeToken(head)
	predicates := ExtractPredicates(head)

	var matches []*component.Node
	for _, parent := range parents {
		candidates := l.collectPotentialMatches(parent, token, recursive)
		matches = append(matches, filterMatches(candidates, predicates)...)
	}
	matches = dedupeNodes(matches)

	if len(matches) > 0 && hasRest {
		return l.findNodesByPath(rest, matches)
	}
	return matches
}

// collectPotentialMatches gathers the children of parent that match the
// type token, in depth-first preorder so index predicates address document
// order. Recursive collection visits each child's subtree before its next
// sibling.
func (l *Locator) collectPotentialMatches(parent *component.Node, token string, recursive bool) []*component.Node {
	var out []*component.Node
	for _, child := range parent.Children() {
		if nodeMatchesToken(l.hier, child, token) {
			out = append(out, child)
		}
		if recursive {
			out = append(out, l.collectPotentialMatches(child, token, recursive)...)
		}
	}
	return out
}

// filterMatches applies a segment's predicates in order. Each predicate
// maps the candidate list to a new list; an index predicate keeps the
// addressed candidate or empties the list when out of range.
func filterMatches(candidates []*component.Node, predicates []Predicate) []*component.Node {
	for _, p := range predicates {
		if p.Index > -1 {
			if p.Index < len(candidates) {
				candidates = []*component.Node{candidates[p.Index]}
			} else {
				candidates = nil
			}
			continue
		}

		var kept []*component.Node
		for _, c := range candidates {
			value, present := c.Attribute(p.Name)
			if p.Wildcard {
				if present {
					kept = append(kept, c)
				}
				continue
			}
			if present && value == p.Value {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}
	return candidates
}

// typeToken returns the segment text before its first unquoted bracket.
func typeToken(fragment string) string {
	if ix := indexOfUnquoted(fragment, '[', 0); ix >= 0 {
		return fragment[:ix]
	}
	return fragment
}

// splitFirstFragment splits a path whose descent marker is already stripped
// into the head segment and the remainder. The remainder keeps its own
// leading marker.
func splitFirstFragment(path string) (head, rest string, hasRest bool) {
	if ix := indexOfUnquoted(path, '/', 0); ix > 0 {
		return path[:ix], path[ix:], true
	}
	return path, "", false
}

// dedupeNodes removes duplicate node references, keeping the first
// occurrence and preserving order.
func dedupeNodes(nodes []*component.Node) []*component.Node {
	if len(nodes) < 2 {
		return nodes
	}
	seen := make(map[*component.Node]bool, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// dedupeElements is dedupeNodes for element handles.
func dedupeElements(els []*component.Element) []*component.Element {
	if len(els) < 2 {
		return els
	}
	seen := make(map[*component.Element]bool, len(els))
	out := els[:0]
	for _, el := range els {
		if !seen[el] {
			seen[el] = true
			out = append(out, el)
		}
	}
	return out
}
