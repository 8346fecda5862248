package component

// DefaultNamespace is the organizational prefix for the standard widget
// set. Unqualified type names in queries fall back to this namespace, and
// synthesized queries strip it for readability.
const DefaultNamespace = "uikit.widget."

// TypeTag identifies one registered type within a Hierarchy. A type name
// may denote several tags when the same name was registered for multiple
// concrete types.
type TypeTag int

// NoParent marks a registration without a parent type.
const NoParent TypeTag = -1

// Hierarchy is the type table used for subtype-aware matching: each
// registered type name maps to one or more tags, and each tag optionally
// points at a parent tag. The table is built once and never mutated
// afterwards; it carries no other global state.
type Hierarchy struct {
	namespace string
	tags      map[string][]TypeTag
	parents   []TypeTag
}

// NewHierarchy creates an empty hierarchy. The namespace is the
// organizational prefix tried when an unqualified type name has no direct
// registration; pass "" to disable the fallback.
func NewHierarchy(namespace string) *Hierarchy {
	return &Hierarchy{
		namespace: namespace,
		tags:      make(map[string][]TypeTag),
	}
}

// Register adds a type name with an optional parent tag and returns the new
// tag. Registering the same name again adds another tag for it. Register is
// part of construction; the table must be complete before the first query.
func (h *Hierarchy) Register(name string, parent TypeTag) TypeTag {
	tag := TypeTag(len(h.parents))
	h.parents = append(h.parents, parent)
	h.tags[name] = append(h.tags[name], tag)
	return tag
}

// TagsFor returns the tags registered for an exact type name, or nil.
// Callers must not mutate the returned slice.
func (h *Hierarchy) TagsFor(name string) []TypeTag {
	return h.tags[name]
}

// Parent returns the parent of tag, or false when tag has no parent or is
// not a tag of this hierarchy.
func (h *Hierarchy) Parent(tag TypeTag) (TypeTag, bool) {
	if tag < 0 || int(tag) >= len(h.parents) {
		return NoParent, false
	}
	p := h.parents[tag]
	if p == NoParent {
		return NoParent, false
	}
	return p, true
}

// Namespace returns the organizational prefix, possibly "".
func (h *Hierarchy) Namespace() string {
	return h.namespace
}

// Len returns the number of registered tags.
func (h *Hierarchy) Len() int {
	return len(h.parents)
}
