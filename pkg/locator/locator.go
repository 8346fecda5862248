// Package locator resolves XPath-flavored locator queries against component
// trees and synthesizes minimal stable queries for nodes.
//
// A query is a path of type-token segments joined by / (direct child) or //
// (any descendant), each segment carrying optional bracketed predicates: a
// zero-based index ([0]), an attribute equality ([id="save"]) or an
// attribute presence test ([caption]). The whole query may be wrapped in a
// whole-result index filter, ("(" path ")[N]"), and may end in a #subpart
// suffix addressing an internal element of the matched components. Type
// tokens accept fully qualified or short names, with or without the
// trailing {} marker.
//
// Resolution is read-only and never fails: queries that match nothing,
// including malformed ones, produce an empty result. The locator holds no
// locks and caches nothing between calls; callers that mutate the tree
// between queries provide their own synchronization.
package locator

import (
	"log/slog"
	"strings"

	"github.com/gnana997/uifind/pkg/component"
)

// subpartSeparator splits the component path from a subpart name.
const subpartSeparator = '#'

// overlayTokens are the reserved first-segment spellings that address the
// overlay registry instead of the tree: the qualified and short type names
// plus the widget display name, each with or without the type marker.
var overlayTokens = []string{
	component.DefaultNamespace + "Notification" + markerSuffix,
	component.DefaultNamespace + "Notification",
	"Toast" + markerSuffix,
	"Toast",
	"Notification" + markerSuffix,
	"Notification",
}

// Locator evaluates queries against one tree.
type Locator struct {
	tree   *component.Tree
	hier   *component.Hierarchy
	logger *slog.Logger
}

// New creates a locator over tree. Panics on a nil tree; a nil logger falls
// back to slog.Default(). Query tracing is emitted at debug level only.
func New(tree *component.Tree, logger *slog.Logger) *Locator {
	if tree == nil {
		panic("locator: New requires a non-nil tree")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{tree: tree, hier: tree.Hierarchy(), logger: logger}
}

// Tree returns the tree this locator queries.
func (l *Locator) Tree() *component.Tree {
	return l.tree
}

// Resolve evaluates query from the tree top and returns the matched nodes
// in depth-first document order, without duplicates.
func (l *Locator) Resolve(query string) []*component.Node {
	return l.ownersOf(l.resolveElements(query, l.tree.Root(), true))
}

// ResolveAt is Resolve with an explicit starting node. The overlay registry
// is not consulted when resolution starts below the tree top. A nil root
// falls back to the tree top (overlays still excluded).
func (l *Locator) ResolveAt(query string, root *component.Node) []*component.Node {
	if root == nil {
		root = l.tree.Root()
	}
	return l.ownersOf(l.resolveElements(query, root, false))
}

// ResolveOne returns the first match of query, or false when nothing
// matches.
func (l *Locator) ResolveOne(query string) (*component.Node, bool) {
	return firstNode(l.Resolve(query))
}

// ResolveOneAt is ResolveOne with an explicit starting node.
func (l *Locator) ResolveOneAt(query string, root *component.Node) (*component.Node, bool) {
	return firstNode(l.ResolveAt(query, root))
}

// ResolveElements evaluates query from the tree top at element level:
// subpart queries yield the addressed subpart elements, plain queries each
// matched node's own element.
func (l *Locator) ResolveElements(query string) []*component.Element {
	return l.resolveElements(query, l.tree.Root(), true)
}

// ResolveElementsAt is ResolveElements with an explicit starting node.
func (l *Locator) ResolveElementsAt(query string, root *component.Node) []*component.Element {
	if root == nil {
		root = l.tree.Root()
	}
	return l.resolveElements(query, root, false)
}

// ResolveElement returns the first element match of query, or false.
func (l *Locator) ResolveElement(query string) (*component.Element, bool) {
	els := l.ResolveElements(query)
	if len(els) == 0 {
		return nil, false
	}
	return els[0], true
}

// resolveElements is the shared pipeline: post-filter wrapper, subpart
// split, overlay special case, path matching, post filters.
func (l *Locator) resolveElements(query string, root *component.Node, fromTop bool) []*component.Element {
	path, post := splitPostFilter(query)
	pathPart, subpart, hasSubpart := splitSubpart(path)

	var nodes []*component.Node
	switch {
	case fromTop && isOverlayQuery(pathPart):
		nodes = l.findOverlaysByPath(pathPart)
	case pathPart != "":
		nodes = l.findNodesByPath(pathPart, []*component.Node{root})
	default:
		nodes = []*component.Node{root}
	}

	var elements []*component.Element
	for _, n := range nodes {
		if hasSubpart {
			if el, ok := n.Subpart(subpart); ok {
				elements = append(elements, el)
			}
			continue
		}
		elements = append(elements, n.Element())
	}
	elements = applyPostFilters(dedupeElements(elements), post)

	l.logger.Debug("query resolved", "query", query, "matches", len(elements))
	return elements
}

// findOverlaysByPath filters the overlay registry. Only index predicates
// apply; attribute predicates are ignored here.
func (l *Locator) findOverlaysByPath(path string) []*component.Node {
	overlays := append([]*component.Node(nil), l.tree.Overlays()...)
	for _, p := range ExtractPredicates(path) {
		if p.Index > -1 {
			if p.Index < len(overlays) {
				overlays = overlays[p.Index : p.Index+1]
			} else {
				overlays = nil
			}
		}
	}
	return dedupeNodes(overlays)
}

// isOverlayQuery reports whether the path addresses the overlay registry:
// a reserved token as the sole segment, optionally followed by predicates
// or further segments.
func isOverlayQuery(path string) bool {
	for _, start := range []string{"//", "/"} {
		for _, token := range overlayTokens {
			if path == start+token {
				return true
			}
			for _, end := range []string{"/", "["} {
				if strings.HasPrefix(path, start+token+end) {
					return true
				}
			}
		}
	}
	return false
}

// splitPostFilter extracts the whole-result index wrapper. The wrapper is
// stripped only when it actually produced a post filter; any other
// parenthesized input passes through untouched.
func splitPostFilter(query string) (string, []Predicate) {
	post := ExtractPostFilterPredicates(query)
	if len(post) > 0 {
		query = query[1:lastIndexOfUnquoted(query, ')')]
	}
	return query, post
}

// splitSubpart splits a path at the first unquoted subpart separator.
func splitSubpart(path string) (pathPart, subpart string, hasSubpart bool) {
	ix := indexOfUnquoted(path, subpartSeparator, 0)
	if ix < 0 {
		return path, "", false
	}
	return path[:ix], path[ix+1:], true
}

// applyPostFilters clamps the result list by each index post filter;
// out-of-range indexes empty it.
func applyPostFilters(els []*component.Element, post []Predicate) []*component.Element {
	for _, p := range post {
		if p.Index < 0 {
			continue
		}
		if p.Index < len(els) {
			els = els[p.Index : p.Index+1]
		} else {
			els = nil
		}
	}
	return els
}

func (l *Locator) ownersOf(els []*component.Element) []*component.Node {
	nodes := make([]*component.Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, el.Owner())
	}
	return dedupeNodes(nodes)
}

func firstNode(nodes []*component.Node) (*component.Node, bool) {
	if len(nodes) == 0 {
		return nil, false
	}
	return nodes[0], true
}
