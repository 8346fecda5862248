// Package snapshot loads serialized component trees. A snapshot is a JSON
// document describing a type table, a node hierarchy, and the overlays
// visible on top of it; Build turns one into a live component.Tree that the
// locator can query.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gnana997/uifind/pkg/component"
)

// TreeSpec is the root of a snapshot document.
type TreeSpec struct {
	// Name labels the snapshot in logs and batch output. Optional.
	Name string `json:"name,omitempty"`

	// Namespace is the organizational prefix for unqualified type names.
	// Empty means the standard widget namespace.
	Namespace string `json:"namespace,omitempty"`

	// Types declares the type table in registration order. A parent must
	// be declared before any type that names it.
	Types []TypeSpec `json:"types,omitempty"`

	// Root is the top of the component hierarchy. Required.
	Root *NodeSpec `json:"root"`

	// Overlays are shown on the tree in declaration order, oldest first.
	Overlays []NodeSpec `json:"overlays,omitempty"`
}

// TypeSpec registers one type name, optionally under a parent. The same
// name may appear several times to model a name shared by multiple
// concrete types.
type TypeSpec struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// NodeSpec describes one component instance.
type NodeSpec struct {
	// Type is the primary identifier. Either Type or Display must be set.
	Type string `json:"type,omitempty"`

	// Aliases are additional identifiers the node answers to.
	Aliases []string `json:"aliases,omitempty"`

	// Display is the human-readable name, used as a matching fallback for
	// nodes without identifiers.
	Display string `json:"display,omitempty"`

	// Attributes are fixed attribute values.
	Attributes map[string]string `json:"attributes,omitempty"`

	// Subparts lists the addressable sub-element names of this node.
	Subparts []string `json:"subparts,omitempty"`

	Children []NodeSpec `json:"children,omitempty"`
}

// Validate checks the snapshot for internal consistency.
// Returns a slice of validation errors (empty slice if valid).
func (s *TreeSpec) Validate() []error {
	var errs []error

	if s.Root == nil {
		errs = append(errs, fmt.Errorf("snapshot root is required"))
	}

	// Validate the type table. Tags are assigned in declaration order, so
	// a parent reference is only valid once its type has been declared.
	declared := make(map[string]bool, len(s.Types))
	seenPairs := make(map[TypeSpec]bool, len(s.Types))
	for i, ts := range s.Types {
		if ts.Name == "" {
			errs = append(errs, fmt.Errorf("types[%d]: name is required", i))
			continue
		}
		if seenPairs[ts] {
			errs = append(errs, fmt.Errorf("types[%d]: duplicate entry %q", i, ts.Name))
			continue
		}
		seenPairs[ts] = true

		if ts.Parent != "" && !declared[ts.Parent] {
			errs = append(errs, fmt.Errorf("type %q: parent %q is not declared before it", ts.Name, ts.Parent))
		}
		declared[ts.Name] = true
	}

	if s.Root != nil {
		errs = append(errs, validateNode(s.Root, "root")...)
	}
	for i := range s.Overlays {
		errs = append(errs, validateNode(&s.Overlays[i], fmt.Sprintf("overlays[%d]", i))...)
	}

	return errs
}

// validateNode checks one node and its children. path locates the node in
// error messages, e.g. "root.children[2]".
func validateNode(n *NodeSpec, path string) []error {
	var errs []error

	if n.Type == "" && n.Display == "" {
		errs = append(errs, fmt.Errorf("%s: type or display is required", path))
	}
	for i, alias := range n.Aliases {
		if alias == "" {
			errs = append(errs, fmt.Errorf("%s aliases[%d]: alias must not be empty", path, i))
		}
	}
	for name := range n.Attributes {
		if name == "" {
			errs = append(errs, fmt.Errorf("%s: attribute name must not be empty", path))
		}
	}
	subparts := make(map[string]bool, len(n.Subparts))
	for i, sub := range n.Subparts {
		if sub == "" {
			errs = append(errs, fmt.Errorf("%s subparts[%d]: name must not be empty", path, i))
			continue
		}
		if subparts[sub] {
			errs = append(errs, fmt.Errorf("%s: duplicate subpart name %q", path, sub))
			continue
		}
		subparts[sub] = true
	}

	for i := range n.Children {
		errs = append(errs, validateNode(&n.Children[i], fmt.Sprintf("%s.children[%d]", path, i))...)
	}

	return errs
}

// NodeCount returns the number of nodes the snapshot describes, overlays
// included.
func (s *TreeSpec) NodeCount() int {
	count := 0
	if s.Root != nil {
		count += countNodes(s.Root)
	}
	for i := range s.Overlays {
		count += countNodes(&s.Overlays[i])
	}
	return count
}

func countNodes(n *NodeSpec) int {
	count := 1
	for i := range n.Children {
		count += countNodes(&n.Children[i])
	}
	return count
}

// Build constructs a live component tree from the snapshot. Every call
// returns a fresh tree; trees are never shared between callers. The spec
// itself is not retained.
func (s *TreeSpec) Build() (*component.Tree, error) {
	if s.Root == nil {
		return nil, fmt.Errorf("snapshot root is required")
	}

	namespace := s.Namespace
	if namespace == "" {
		namespace = component.DefaultNamespace
	}
	hierarchy := component.NewHierarchy(namespace)

	// Register types in declaration order. When a name has several tags,
	// parent references resolve to its first tag.
	firstTag := make(map[string]component.TypeTag, len(s.Types))
	for _, ts := range s.Types {
		parent := component.NoParent
		if ts.Parent != "" {
			tag, ok := firstTag[ts.Parent]
			if !ok {
				return nil, fmt.Errorf("type %q: parent %q is not declared before it", ts.Name, ts.Parent)
			}
			parent = tag
		}
		tag := hierarchy.Register(ts.Name, parent)
		if _, seen := firstTag[ts.Name]; !seen {
			firstTag[ts.Name] = tag
		}
	}

	tree := component.NewTree(buildNode(s.Root), hierarchy)
	for i := range s.Overlays {
		tree.ShowOverlay(buildNode(&s.Overlays[i]))
	}
	return tree, nil
}

// buildNode constructs one node and its subtree.
func buildNode(spec *NodeSpec) *component.Node {
	var identifiers []string
	if spec.Type != "" {
		identifiers = append(identifiers, spec.Type)
	}
	identifiers = append(identifiers, spec.Aliases...)

	n := component.New(spec.Display, identifiers...)
	for name, value := range spec.Attributes {
		n.SetAttr(name, value)
	}

	if len(spec.Subparts) > 0 {
		known := make(map[string]bool, len(spec.Subparts))
		for _, sub := range spec.Subparts {
			known[sub] = true
		}
		owner := n
		n.SetSubpartFunc(func(name string) (*component.Element, bool) {
			if !known[name] {
				return nil, false
			}
			return owner.SubpartElement(name), true
		})
	}

	for i := range spec.Children {
		n.AddChild(buildNode(&spec.Children[i]))
	}
	return n
}

// LoadFromBytes parses, validates, and builds a snapshot from raw JSON.
func LoadFromBytes(data []byte) (*TreeSpec, *component.Tree, error) {
	var spec TreeSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, nil, fmt.Errorf("failed to parse snapshot JSON: %w", err)
	}

	if errs := spec.Validate(); len(errs) > 0 {
		return nil, nil, fmt.Errorf("snapshot validation failed: %w", errors.Join(errs...))
	}

	tree, err := spec.Build()
	if err != nil {
		return nil, nil, err
	}
	return &spec, tree, nil
}

// LoadFromFile reads and builds a snapshot from disk.
func LoadFromFile(path string) (*TreeSpec, *component.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return LoadFromBytes(data)
}
