package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/gnana997/uifind/pkg/component"
	"github.com/gnana997/uifind/pkg/jsxtree"
	"github.com/gnana997/uifind/pkg/locator"
	mcpserver "github.com/gnana997/uifind/pkg/mcp"
	"github.com/gnana997/uifind/pkg/mcplog"
	"github.com/gnana997/uifind/pkg/snapshot"
	"github.com/gnana997/uifind/snapshots"
)

// matchJSON is one resolved match in --json output. Ordinal doubles as the
// whole-result index addressing the match, (query)[ordinal].
type matchJSON struct {
	Ordinal    int               `json:"ordinal"`
	Type       string            `json:"type,omitempty"`
	Display    string            `json:"display,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Query      string            `json:"query,omitempty"`
}

func runResolve(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	snapshotFlag := fs.String("snapshot", "", "snapshot JSON or JSX/TSX source (default: embedded demo)")
	jsonFlag := fs.Bool("json", false, "print matches as JSON")
	query, err := parseQuery(fs, args)
	if err != nil {
		return err
	}

	logger := newLogger()
	tree, source, err := loadTree(resolveSnapshotPath(*snapshotFlag), logger)
	if err != nil {
		return err
	}

	loc := locator.New(tree, logger)
	nodes := loc.Resolve(query)

	if *jsonFlag {
		matches := make([]matchJSON, 0, len(nodes))
		for i, n := range nodes {
			m := matchJSON{
				Ordinal:    i,
				Type:       n.PrimaryIdentifier(),
				Display:    n.DisplayName(),
				Attributes: attributeMap(n),
			}
			if q, ok := loc.Synthesize(n); ok {
				m.Query = q
			}
			matches = append(matches, m)
		}
		data, err := json.MarshalIndent(matches, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%d match(es) for %s on %s\n", len(nodes), query, source)
	printMatches(loc, nodes)
	return nil
}

func runSynthesize(args []string) error {
	fs := flag.NewFlagSet("synthesize", flag.ExitOnError)
	snapshotFlag := fs.String("snapshot", "", "snapshot JSON or JSX/TSX source (default: embedded demo)")
	query, err := parseQuery(fs, args)
	if err != nil {
		return err
	}

	logger := newLogger()
	tree, source, err := loadTree(resolveSnapshotPath(*snapshotFlag), logger)
	if err != nil {
		return err
	}

	loc := locator.New(tree, logger)
	nodes := loc.Resolve(query)
	if len(nodes) == 0 {
		return fmt.Errorf("no component matches %s on %s", query, source)
	}
	synthesized, ok := loc.Synthesize(nodes[0])
	if !ok {
		return fmt.Errorf("no stable query for the node matched by %s", query)
	}
	if len(nodes) > 1 {
		fmt.Fprintf(os.Stderr, "%d components match; synthesizing for the first\n", len(nodes))
	}
	fmt.Println(synthesized)
	return nil
}

func runExplain(args []string) error {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	query, err := parseQuery(fs, args)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(locator.Explain(query), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	dirFlag := fs.String("dir", ".", "directory to scan for snapshots")
	includeFlag := fs.String("include", "", "comma-separated include globs (default **/*.json)")
	excludeFlag := fs.String("exclude", "", "comma-separated exclude globs")
	workersFlag := fs.Int("workers", 0, "worker count (0 scales with CPUs)")
	query, err := parseQuery(fs, args)
	if err != nil {
		return err
	}

	include := splitGlobs(*includeFlag)
	exclude := splitGlobs(*excludeFlag)
	if cfg, cfgErr := loadProjectConfig(); cfgErr == nil && cfg != nil {
		if include == nil {
			include = cfg.Include
		}
		if exclude == nil {
			exclude = cfg.Exclude
		}
	}

	paths, err := snapshot.Discover(*dirFlag, include, exclude)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("no snapshots found")
		return nil
	}

	logger := newLogger()
	loader := snapshot.NewLoader(snapshot.LoaderConfig{Logger: logger})
	defer loader.Close()

	pool := snapshot.NewQueryPool(*workersFlag, loader, logger)
	results, errs := pool.EvaluateAll(paths, query)

	total := 0
	for _, r := range results {
		fmt.Printf("%s: %d match(es)\n", r.SnapshotPath, len(r.Matches))
		for i, m := range r.Matches {
			line := m.Type
			if m.Synthesized != "" {
				line += "  " + m.Synthesized
			}
			fmt.Printf("  [%d] %s\n", i, line)
		}
		total += len(r.Matches)
	}
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "%s: %v\n", e.SnapshotPath, e.Error)
	}
	fmt.Printf("%d match(es) across %d snapshot(s)\n", total, len(results))

	if len(results) == 0 && len(errs) > 0 {
		return fmt.Errorf("all %d snapshot(s) failed to load", len(errs))
	}
	return nil
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	snapshotFlag := fs.String("snapshot", "", "snapshot JSON file to watch")
	debounceFlag := fs.Int("debounce", 0, "debounce window in milliseconds (default 200)")
	query, err := parseQuery(fs, args)
	if err != nil {
		return err
	}
	path := resolveSnapshotPath(*snapshotFlag)
	if path == "" {
		return fmt.Errorf("watch requires --snapshot (or snapshot_path in .uifind/config.yaml)")
	}

	logger := newLogger()
	loader := snapshot.NewLoader(snapshot.LoaderConfig{Logger: logger})
	defer loader.Close()

	report := func(tree *component.Tree) {
		loc := locator.New(tree, logger)
		nodes := loc.Resolve(query)
		fmt.Printf("%d match(es) for %s on %s\n", len(nodes), query, path)
		printMatches(loc, nodes)
	}

	tree, err := loader.Load(path)
	if err != nil {
		return err
	}
	report(tree)

	opts := snapshot.DefaultWatchOptions()
	if *debounceFlag > 0 {
		opts.DebounceMs = *debounceFlag
	}
	w := snapshot.NewWatcher(loader, opts, func(p string, tree *component.Tree, err error) {
		if err != nil {
			logger.Error("snapshot reload failed", "path", p, "error", err)
			return
		}
		report(tree)
	}, logger)
	if err := w.Start(path); err != nil {
		return err
	}
	defer w.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	logger.Info("watching snapshot", "path", path, "query", query)
	<-ctx.Done()
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	logFlag := fs.String("log", "", "JSONL tool log path (default: mcp_log_path from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logPath := *logFlag
	if cfg, err := loadProjectConfig(); err == nil && cfg != nil && logPath == "" {
		logPath = cfg.MCPLogPath
	}
	toolLog, err := mcplog.NewLogger(logPath)
	if err != nil {
		return err
	}
	defer toolLog.Close()

	logger := newLogger()
	loader := snapshot.NewLoader(snapshot.LoaderConfig{Logger: logger})
	defer loader.Close()

	srv, err := mcpserver.NewServer(loader, toolLog, logger)
	if err != nil {
		return err
	}
	return srv.ServeStdio()
}

func runDemo(args []string) error {
	_, err := os.Stdout.Write(snapshots.DemoJSON)
	return err
}

// --- helpers ---

// parseQuery reads the positional query argument, then parses the
// remaining flags.
func parseQuery(fs *flag.FlagSet, args []string) (string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", fmt.Errorf("query argument is required (see 'uifind help')")
	}
	if err := fs.Parse(args[1:]); err != nil {
		return "", err
	}
	return args[0], nil
}

// loadTree builds the tree to query: a JSON snapshot or a JSX/TSX source
// file when path is non-empty, else the embedded demo snapshot.
func loadTree(path string, logger *slog.Logger) (*component.Tree, string, error) {
	if path == "" {
		tree, err := snapshots.Demo()
		return tree, "demo", err
	}
	if jsxtree.DetectLanguage(path) != jsxtree.LanguageUnknown {
		b := jsxtree.NewBuilder(jsxtree.BuilderConfig{Logger: logger})
		defer b.Close()
		tree, err := b.BuildFile(path)
		if err != nil {
			return nil, "", err
		}
		return tree, path, nil
	}
	_, tree, err := snapshot.LoadFromFile(path)
	if err != nil {
		return nil, "", err
	}
	return tree, path, nil
}

func printMatches(loc *locator.Locator, nodes []*component.Node) {
	for i, n := range nodes {
		fmt.Printf("[%d] %s%s\n", i, n.PrimaryIdentifier(), attrSummary(n))
		if q, ok := loc.Synthesize(n); ok {
			fmt.Printf("    %s\n", q)
		}
	}
}

func attrSummary(n *component.Node) string {
	var sb strings.Builder
	for _, name := range n.AttributeNames() {
		if v, ok := n.Attribute(name); ok {
			fmt.Fprintf(&sb, " %s=%q", name, v)
		}
	}
	return sb.String()
}

func attributeMap(n *component.Node) map[string]string {
	var attrs map[string]string
	for _, name := range n.AttributeNames() {
		if v, ok := n.Attribute(name); ok {
			if attrs == nil {
				attrs = make(map[string]string)
			}
			attrs[name] = v
		}
	}
	return attrs
}

func splitGlobs(s string) []string {
	if s == "" {
		return nil
	}
	var globs []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			globs = append(globs, part)
		}
	}
	return globs
}
