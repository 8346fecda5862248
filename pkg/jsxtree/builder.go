// Package jsxtree builds component trees from JSX/TSX source files. It lets
// query authors prototype locators against a screen's source before any
// live tree exists: capitalized JSX elements become component nodes, their
// string-literal attributes become node attributes, and nesting becomes the
// parent/child structure.
package jsxtree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"log/slog"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/uifind/pkg/component"
	"github.com/gnana997/uifind/pkg/util"
)

// BuilderConfig configures a Builder.
type BuilderConfig struct {
	// Namespace qualifies JSX tag names into type identifiers. Empty uses
	// the standard widget namespace.
	Namespace string

	// PoolSize caps parsers per grammar. 0 auto-detects from core count.
	PoolSize int

	// FileCache serves source bytes for BuildFile. Nil reads straight
	// from disk.
	FileCache util.FileCache

	// Logger for parse diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// BuilderStats counts builder activity.
type BuilderStats struct {
	FilesParsed int64
	ParseErrors int64
}

// Builder parses JSX/TSX sources into component trees. Safe for concurrent
// use; parsing shares per-grammar parser pools. Close frees the pools.
type Builder struct {
	namespace string
	poolSize  int
	files     util.FileCache
	logger    *slog.Logger

	mutex sync.RWMutex
	pools map[grammarKey]*parserPool

	filesParsed atomic.Int64
	parseErrors atomic.Int64
}

// NewBuilder creates a Builder. Must be closed via Close().
func NewBuilder(config BuilderConfig) *Builder {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	namespace := config.Namespace
	if namespace == "" {
		namespace = component.DefaultNamespace
	}

	return &Builder{
		namespace: namespace,
		poolSize:  util.GetOptimalPoolSizeWithOverride(config.PoolSize),
		files:     config.FileCache,
		logger:    logger,
		pools:     make(map[grammarKey]*parserPool),
	}
}

// BuildFile reads path and builds its component tree.
func (b *Builder) BuildFile(path string) (*component.Tree, error) {
	var source []byte
	var err error
	if b.files != nil {
		source, err = b.files.Bytes(path)
	} else {
		source, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	return b.Build(path, source)
}

// Build parses source and assembles the component tree. The path picks the
// grammar and names the synthetic document root; the tree's hierarchy has
// no registered types, so queries match by identifier and display name.
func (b *Builder) Build(path string, source []byte) (*component.Tree, error) {
	lang := DetectLanguage(path)
	if lang == LanguageUnknown {
		return nil, fmt.Errorf("unsupported source file type: %s", filepath.Ext(path))
	}

	syntax, err := b.parse(source, lang, IsTSXFile(path))
	if err != nil {
		return nil, err
	}
	defer syntax.Close()

	b.filesParsed.Add(1)

	syntaxRoot := syntax.RootNode()
	if syntaxRoot.HasError() {
		// Partial trees still carry most of the JSX; keep going.
		b.parseErrors.Add(1)
		b.logger.Warn("source contains syntax errors, building partial tree",
			"path", path,
			"language", lang.String())
	}

	root := component.New(filepath.Base(path), b.namespace+"UI")
	b.collectComponents(syntaxRoot, root, source)

	return component.NewTree(root, component.NewHierarchy(b.namespace)), nil
}

// parse acquires a pooled parser for the grammar and parses source.
func (b *Builder) parse(source []byte, lang Language, isTSX bool) (*ts.Tree, error) {
	pool, err := b.getOrCreatePool(grammarKey{lang: lang, isTSX: isTSX})
	if err != nil {
		return nil, err
	}

	parser, err := pool.acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire parser: %w", err)
	}

	tree := parser.Parse(source, nil)
	pool.release(parser)

	if tree == nil {
		return nil, fmt.Errorf("parser returned no tree")
	}
	return tree, nil
}

// getOrCreatePool returns the pool for a grammar, creating it lazily.
func (b *Builder) getOrCreatePool(key grammarKey) (*parserPool, error) {
	b.mutex.RLock()
	pool, exists := b.pools[key]
	b.mutex.RUnlock()
	if exists {
		return pool, nil
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	// Double-check: another goroutine may have created it.
	if pool, exists = b.pools[key]; exists {
		return pool, nil
	}

	langPtr, err := languagePointer(key)
	if err != nil {
		return nil, err
	}

	pool = newParserPool(key, langPtr, b.poolSize, b.logger)
	b.pools[key] = pool
	return pool, nil
}

// collectComponents walks the syntax tree attaching component nodes under
// parent. Intrinsic (lowercase) elements contribute no node of their own;
// their component descendants attach to the nearest component ancestor.
func (b *Builder) collectComponents(node *ts.Node, parent *component.Node, source []byte) {
	switch node.GrammarName() {
	case "jsx_element":
		opening := firstNamedChildOfKind(node, "jsx_opening_element")
		next := parent
		if opening != nil {
			if made := b.makeComponent(opening, source); made != nil {
				parent.AddChild(made)
				next = made
			}
		}
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child == nil {
				continue
			}
			switch child.GrammarName() {
			case "jsx_opening_element", "jsx_closing_element":
				continue
			}
			b.collectComponents(child, next, source)
		}

	case "jsx_self_closing_element":
		if made := b.makeComponent(node, source); made != nil {
			parent.AddChild(made)
		}

	default:
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child == nil {
				continue
			}
			b.collectComponents(child, parent, source)
		}
	}
}

// makeComponent turns a jsx_opening_element or jsx_self_closing_element
// into a component node, or nil for intrinsic elements.
func (b *Builder) makeComponent(element *ts.Node, source []byte) *component.Node {
	nameNode := element.ChildByFieldName("name")
	if nameNode == nil {
		return nil // fragment
	}

	tag := string(nameNode.Utf8Text(source))
	if !isComponentTag(tag) {
		return nil
	}

	n := component.New(tag, b.namespace+tagBaseName(tag))
	for i := uint(0); i < element.NamedChildCount(); i++ {
		child := element.NamedChild(i)
		if child == nil || child.GrammarName() != "jsx_attribute" {
			continue
		}
		name, value, ok := attributeValue(child, source)
		if ok {
			n.SetAttr(name, value)
		}
	}
	return n
}

// attributeValue extracts a jsx_attribute's name and value. Only static
// values are representable: plain string literals, string literals wrapped
// in a JSX expression, and bare attributes (empty value). Dynamic
// expressions are dropped.
func attributeValue(attr *ts.Node, source []byte) (name, value string, ok bool) {
	if attr.NamedChildCount() == 0 {
		return "", "", false
	}
	name = string(attr.NamedChild(0).Utf8Text(source))

	if attr.NamedChildCount() == 1 {
		return name, "", true // bare attribute, e.g. <Button disabled />
	}

	valueNode := attr.NamedChild(1)
	switch valueNode.GrammarName() {
	case "string":
		return name, unquote(string(valueNode.Utf8Text(source))), true
	case "jsx_expression":
		if valueNode.NamedChildCount() == 1 {
			inner := valueNode.NamedChild(0)
			if inner.GrammarName() == "string" {
				return name, unquote(string(inner.Utf8Text(source))), true
			}
		}
	}
	return "", "", false
}

// unquote strips one layer of matching string quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// firstNamedChildOfKind returns the first named child with the given
// grammar name, or nil.
func firstNamedChildOfKind(node *ts.Node, kind string) *ts.Node {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil && child.GrammarName() == kind {
			return child
		}
	}
	return nil
}

// isComponentTag reports whether a JSX tag names a component: the final
// dotted segment starts with an upper-case rune. Lowercase tags are
// intrinsic markup, not components.
func isComponentTag(tag string) bool {
	base := tagBaseName(tag)
	r, _ := utf8.DecodeRuneInString(base)
	return unicode.IsUpper(r)
}

// tagBaseName returns the last dotted segment of a tag, so <UI.Table>
// yields Table.
func tagBaseName(tag string) string {
	if ix := strings.LastIndexByte(tag, '.'); ix >= 0 {
		return tag[ix+1:]
	}
	return tag
}

// Stats returns builder counters.
func (b *Builder) Stats() BuilderStats {
	return BuilderStats{
		FilesParsed: b.filesParsed.Load(),
		ParseErrors: b.parseErrors.Load(),
	}
}

// Close frees all parser pools. The builder cannot be used afterwards.
func (b *Builder) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, pool := range b.pools {
		pool.close()
	}
	b.pools = make(map[grammarKey]*parserPool)
}
