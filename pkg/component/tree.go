package component

// Tree is the unit of query: a root node, the hierarchy its types are
// registered under, and a flat registry of overlay nodes (toast-style
// notifications) that live outside the root's child structure.
type Tree struct {
	root      *Node
	hierarchy *Hierarchy
	overlays  []*Node
}

// NewTree creates a tree over root. A nil hierarchy gets an empty one with
// the default namespace. Panics on a nil root; a tree without a root is a
// programming error, not a recoverable condition.
func NewTree(root *Node, hierarchy *Hierarchy) *Tree {
	if root == nil {
		panic("component: NewTree requires a non-nil root")
	}
	if hierarchy == nil {
		hierarchy = NewHierarchy(DefaultNamespace)
	}
	return &Tree{root: root, hierarchy: hierarchy}
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Hierarchy returns the tree's type table.
func (t *Tree) Hierarchy() *Hierarchy {
	return t.hierarchy
}

// ShowOverlay appends an overlay node to the registry. Overlays keep their
// registration order; index predicates in overlay queries address that
// order.
func (t *Tree) ShowOverlay(n *Node) {
	if n == nil {
		return
	}
	t.overlays = append(t.overlays, n)
}

// DismissOverlay removes an overlay by identity. Unknown nodes are ignored.
func (t *Tree) DismissOverlay(n *Node) {
	for i, o := range t.overlays {
		if o == n {
			t.overlays = append(t.overlays[:i], t.overlays[i+1:]...)
			return
		}
	}
}

// Overlays returns the current overlay registry in registration order.
// Callers must not mutate the returned slice.
func (t *Tree) Overlays() []*Node {
	return t.overlays
}

// Contains reports whether n is attached to this tree, either under the
// root or under an overlay.
func (t *Tree) Contains(n *Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur == t.root {
			return true
		}
		for _, o := range t.overlays {
			if cur == o {
				return true
			}
		}
	}
	return false
}

// OwnerOf maps an element handle back to its owning node, reporting false
// for nil elements and elements whose owner is not attached to this tree.
func (t *Tree) OwnerOf(el *Element) (*Node, bool) {
	if el == nil || el.Owner() == nil {
		return nil, false
	}
	owner := el.Owner()
	if !t.Contains(owner) {
		return nil, false
	}
	return owner, true
}
