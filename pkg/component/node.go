// Package component defines the in-memory component tree model queried by
// the locator engine: nodes, their low-level element handles, the type
// hierarchy and the tree handle with its overlay registry.
//
// The model is read-only during a query. Callers that mutate a tree between
// queries must provide their own synchronization; nothing in this package
// locks.
package component

import "sort"

// AttrFunc produces the current value of one named attribute. A non-nil
// error means the value could not be read and the attribute is treated as
// absent.
type AttrFunc func() (string, error)

// SubpartFunc resolves an internally-addressed sub-element by name, for
// composite widgets that expose addressable internals (table cells, slider
// handles). Returning false means the node has no such subpart.
type SubpartFunc func(name string) (*Element, bool)

// Node is a single component in the tree.
//
// A node carries one or more type identifiers: dotted fully qualified type
// names, the first of which is the primary name used when synthesizing
// queries. Extra identifiers act as aliases for renamed or re-exported
// types. The display name is the concrete widget name shown to users.
type Node struct {
	identifiers []string
	display     string

	parent   *Node
	children []*Node

	attrs    map[string]AttrFunc
	subpart  SubpartFunc
	element  *Element
	subparts map[string]*Element
}

// New creates a detached node. The first identifier is the primary type
// name; any extras are aliases.
func New(display string, identifiers ...string) *Node {
	n := &Node{
		display:     display,
		identifiers: identifiers,
		attrs:       make(map[string]AttrFunc),
	}
	n.element = &Element{owner: n}
	return n
}

// AddChild appends child to n's ordered child list, detaching it from any
// previous parent first. Returns child for construction chaining.
func (n *Node) AddChild(child *Node) *Node {
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = n
	n.children = append(n.children, child)
	return child
}

func (n *Node) removeChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// Parent returns the node's parent, or nil for a detached or root node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's ordered child list. Callers must not mutate
// the returned slice.
func (n *Node) Children() []*Node {
	return n.children
}

// Identifiers returns the node's type identifiers, primary first. Callers
// must not mutate the returned slice.
func (n *Node) Identifiers() []string {
	return n.identifiers
}

// PrimaryIdentifier returns the node's primary type name, or "" for a node
// registered without identifiers.
func (n *Node) PrimaryIdentifier() string {
	if len(n.identifiers) == 0 {
		return ""
	}
	return n.identifiers[0]
}

// DisplayName returns the concrete widget name.
func (n *Node) DisplayName() string {
	return n.display
}

// SetAttr registers a fixed-value attribute.
func (n *Node) SetAttr(name, value string) {
	n.attrs[name] = func() (string, error) { return value, nil }
}

// SetAttrFunc registers a computed attribute. A nil fn removes the entry.
func (n *Node) SetAttrFunc(name string, fn AttrFunc) {
	if fn == nil {
		delete(n.attrs, name)
		return
	}
	n.attrs[name] = fn
}

// AttributeNames returns the names with registered accessors, sorted. A
// listed name may still read as absent when its accessor errors.
func (n *Node) AttributeNames() []string {
	names := make([]string, 0, len(n.attrs))
	for name := range n.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attribute reads a named attribute. Missing accessors and accessor errors
// both report the attribute as absent; the query engine never distinguishes
// the two.
func (n *Node) Attribute(name string) (string, bool) {
	fn, ok := n.attrs[name]
	if !ok {
		return "", false
	}
	v, err := fn()
	if err != nil {
		return "", false
	}
	return v, true
}

// SetSubpartFunc installs the node's subpart capability.
func (n *Node) SetSubpartFunc(fn SubpartFunc) {
	n.subpart = fn
}

// Subpart resolves a named sub-element. Nodes without the capability and
// unknown names both return false.
func (n *Node) Subpart(name string) (*Element, bool) {
	if n.subpart == nil {
		return nil, false
	}
	return n.subpart(name)
}

// Element returns the node's own element handle. The handle is stable for
// the node's lifetime.
func (n *Node) Element() *Element {
	return n.element
}

// SubpartElement returns a stable element handle for the named subpart of
// n, creating it on first use. Intended for SubpartFunc implementations;
// calling it does not consult the node's capability.
func (n *Node) SubpartElement(name string) *Element {
	if n.subparts == nil {
		n.subparts = make(map[string]*Element)
	}
	if el, ok := n.subparts[name]; ok {
		return el
	}
	el := &Element{owner: n, subpart: name}
	n.subparts[name] = el
	return el
}

// Element is the low-level handle behind a node: the node's own surface or
// one of its named subparts. Elements compare by identity; the tree hands
// out one handle per node and per subpart name.
type Element struct {
	owner   *Node
	subpart string
}

// Owner returns the node this element belongs to.
func (e *Element) Owner() *Node {
	return e.owner
}

// SubpartName returns the subpart this element addresses, or "" for the
// node's own element.
func (e *Element) SubpartName() string {
	return e.subpart
}
