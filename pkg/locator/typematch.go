package locator

import (
	"strings"

	"github.com/gnana997/uifind/pkg/component"
)

// markerSuffix is the conventional type marker accepted (and ignored) at
// the end of type tokens and identifiers: //Button{} and //Button address
// the same type.
const markerSuffix = "{}"

func stripMarker(s string) string {
	return strings.TrimSuffix(s, markerSuffix)
}

// shortName returns the text after the last dot of a marker-stripped name.
func shortName(s string) string {
	s = stripMarker(s)
	if ix := strings.LastIndexByte(s, '.'); ix >= 0 {
		return s[ix+1:]
	}
	return s
}

// matchStrategy reports whether a node matches a queried type token.
type matchStrategy func(h *component.Hierarchy, n *component.Node, token string) bool

// matchStrategies is the ordered resolution list; the first strategy to
// accept wins and a miss on every strategy is a mismatch, never an error.
var matchStrategies = []matchStrategy{
	matchIdentifier,
	matchHierarchy,
	matchDisplayName,
}

func nodeMatchesToken(h *component.Hierarchy, n *component.Node, token string) bool {
	for _, match := range matchStrategies {
		if match(h, n, token) {
			return true
		}
	}
	return false
}

// matchIdentifier accepts the token against each identifier in every form
// callers are known to write: fully qualified or short, with or without the
// marker suffix, or the raw identifier itself.
func matchIdentifier(_ *component.Hierarchy, n *component.Node, token string) bool {
	for _, id := range n.Identifiers() {
		full := stripMarker(id)
		short := shortName(id)
		if token == full+markerSuffix || token == full ||
			token == short+markerSuffix || token == short || token == id {
			return true
		}
	}
	return false
}

// matchHierarchy resolves the token and the node's identifiers to type tags
// and accepts subtypes: the node matches when any of its tags reaches a
// token tag through the parent chain. Unqualified tokens retry under the
// hierarchy's namespace.
func matchHierarchy(h *component.Hierarchy, n *component.Node, token string) bool {
	if h == nil {
		return false
	}
	want := h.TagsFor(stripMarker(token))
	if len(want) == 0 && h.Namespace() != "" {
		want = h.TagsFor(h.Namespace() + stripMarker(token))
	}
	if len(want) == 0 {
		return false
	}
	for _, id := range n.Identifiers() {
		for _, tag := range h.TagsFor(stripMarker(id)) {
			if chainReaches(h, want, tag) {
				return true
			}
		}
	}
	return false
}

// chainReaches walks tag's parent chain looking for any wanted tag. The
// visited set tolerates cyclic registrations.
func chainReaches(h *component.Hierarchy, want []component.TypeTag, tag component.TypeTag) bool {
	seen := make(map[component.TypeTag]bool)
	for {
		if seen[tag] {
			return false
		}
		seen[tag] = true
		for _, w := range want {
			if w == tag {
				return true
			}
		}
		parent, ok := h.Parent(tag)
		if !ok {
			return false
		}
		tag = parent
	}
}

// matchDisplayName is the last resort: the concrete widget name, with or
// without the marker suffix.
func matchDisplayName(_ *component.Hierarchy, n *component.Node, token string) bool {
	display := n.DisplayName()
	return display != "" && (token == display || token == display+markerSuffix)
}
