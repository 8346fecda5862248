package locator

import (
	"strconv"
	"strings"

	"github.com/gnana997/uifind/pkg/component"
)

// Synthesize builds the minimal stable query for target: the shortest
// candidate path whose resolution puts target at the same position as the
// full ancestor path does, wrapped in a whole-result index filter. Returns
// false when target has no ancestor chain reaching the tree root.
func (l *Locator) Synthesize(target *component.Node) (string, bool) {
	fragments := l.pathFragments(target)
	if len(fragments) == 0 {
		return "", false
	}
	return l.synthesizeBest(fragments, "", func(path string) int {
		return nodeIndex(l.Resolve(path), target)
	})
}

// SynthesizeElement synthesizes for the node owning el. Subpart handles
// produce a query carrying the subpart suffix, with the ordinal computed
// over the subpart element list.
func (l *Locator) SynthesizeElement(el *component.Element) (string, bool) {
	owner, ok := l.tree.OwnerOf(el)
	if !ok {
		return "", false
	}
	sub := el.SubpartName()
	if sub == "" {
		return l.Synthesize(owner)
	}
	fragments := l.pathFragments(owner)
	if len(fragments) == 0 {
		return "", false
	}
	return l.synthesizeBest(fragments, string(subpartSeparator)+sub, func(path string) int {
		return elementIndex(l.ResolveElements(path), el)
	})
}

// synthesizeBest scores every candidate path against the full-path
// baseline. The candidate list runs from least to most specific with the
// full path last; scanning it backwards keeps the more specific candidate
// when lengths tie.
func (l *Locator) synthesizeBest(fragments []string, suffix string, ordinalOf func(path string) int) (string, bool) {
	candidates := generateCandidates(fragments)
	baseline := candidates[len(candidates)-1] + suffix
	ordinal := ordinalOf(baseline)
	if ordinal < 0 {
		return "", false
	}

	best := baseline
	for i := len(candidates) - 2; i >= 0; i-- {
		c := candidates[i] + suffix
		if len(c) >= len(best) {
			continue
		}
		if ordinalOf(c) == ordinal {
			best = c
		}
	}

	query := "(" + best + ")[" + strconv.Itoa(ordinal) + "]"
	l.logger.Debug("query synthesized", "query", query, "candidates", len(candidates))
	return query, true
}

// pathFragments returns the target's ancestor chain as query fragments,
// innermost first, excluding the tree root itself: the root is the default
// search context and cannot be found inside itself. Nil when target is nil,
// is the root, or is not attached under the root.
func (l *Locator) pathFragments(target *component.Node) []string {
	root := l.tree.Root()
	if target == nil || target == root {
		return nil
	}
	var fragments []string
	cur := target
	for cur != nil && cur != root {
		fragments = append(fragments, l.fragmentFor(cur))
		cur = cur.Parent()
	}
	if cur != root {
		return nil
	}
	return fragments
}

// fragmentFor labels one node: its primary type name with the hierarchy
// namespace stripped (purely cosmetic), qualified by an id predicate when
// the node has an id, else a caption predicate when it has a caption.
func (l *Locator) fragmentFor(n *component.Node) string {
	name := strings.TrimPrefix(n.PrimaryIdentifier(), l.hier.Namespace())
	if id, ok := n.Attribute("id"); ok {
		return name + `[id="` + id + `"]`
	}
	if caption, ok := n.Attribute("caption"); ok {
		return name + `[caption="` + caption + `"]`
	}
	return name
}

// generateCandidates builds every search path for a fragment chain
// (innermost first): first the bare innermost fragment, then, per growing
// cumulative base path, anchored forms from the outermost fragment inward,
// with recursive descent wherever the anchor is not adjacent to the base.
// The last candidate is the full absolute path.
func generateCandidates(fragments []string) []string {
	paths := make([]string, 0, 1+len(fragments)*(len(fragments)-1)/2)

	base := fragments[0]
	if len(fragments) == 1 {
		return append(paths, "/"+base)
	}
	paths = append(paths, "//"+base)

	for compIdx := 1; compIdx < len(fragments); compIdx++ {
		for i := len(fragments) - 1; i >= compIdx; i-- {
			head := "//"
			if i == len(fragments)-1 {
				head = "/"
			}
			descent := "/"
			if i > compIdx {
				descent = "//"
			}
			paths = append(paths, head+fragments[i]+descent+base)
		}
		base = fragments[compIdx] + "/" + base
	}
	return paths
}

func nodeIndex(nodes []*component.Node, target *component.Node) int {
	for i, n := range nodes {
		if n == target {
			return i
		}
	}
	return -1
}

func elementIndex(els []*component.Element, target *component.Element) int {
	for i, el := range els {
		if el == target {
			return i
		}
	}
	return -1
}
