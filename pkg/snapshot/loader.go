package snapshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gnana997/uifind/pkg/component"
	"github.com/gnana997/uifind/pkg/util"
)

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// MaxCachedSpecs bounds the decoded-spec LRU. 0 uses the default.
	MaxCachedSpecs int

	// FileCache serves raw snapshot bytes. Nil creates a default cache
	// owned by the loader.
	FileCache util.FileCache

	// Logger for load and eviction events. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultMaxCachedSpecs bounds the decoded-spec LRU when the config leaves
// it unset.
const DefaultMaxCachedSpecs = 128

// cachedSpec is one LRU entry: the decoded spec plus the file identity it
// was decoded from.
type cachedSpec struct {
	spec  *TreeSpec
	size  int64
	mtime time.Time
}

// LoaderStats reports loader cache effectiveness.
type LoaderStats struct {
	Hits        int64
	Misses      int64
	CachedSpecs int
}

// Loader loads snapshot files into component trees. Decoded specs are kept
// in an LRU keyed by absolute path and checked against file size and mtime,
// so repeated loads of an unchanged file skip disk and JSON entirely and
// only pay for Build. Raw bytes come through the mmap-backed file cache.
//
// Every Load returns a fresh tree, even on a cache hit: trees are mutable
// (overlays) and must not be shared between callers.
type Loader struct {
	specs  *lru.Cache[string, *cachedSpec]
	files  util.FileCache
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewLoader creates a snapshot loader.
func NewLoader(config LoaderConfig) *Loader {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxSpecs := config.MaxCachedSpecs
	if maxSpecs <= 0 {
		maxSpecs = DefaultMaxCachedSpecs
	}
	files := config.FileCache
	if files == nil {
		files = util.NewFileCache(DefaultLoaderFileCacheConfig())
	}

	specs, err := lru.NewWithEvict(maxSpecs, func(key string, value *cachedSpec) {
		logger.Debug("evicting cached snapshot spec", "path", key, "nodes", value.spec.NodeCount())
	})
	if err != nil {
		// Unreachable with a positive size.
		panic(fmt.Sprintf("failed to create spec LRU: %v", err))
	}

	return &Loader{
		specs:  specs,
		files:  files,
		logger: logger,
	}
}

// DefaultLoaderFileCacheConfig sizes the loader-owned file cache. Snapshot
// files are small; the spec LRU is the effective bound.
func DefaultLoaderFileCacheConfig() *util.FileCacheConfig {
	config := util.DefaultFileCacheConfig()
	config.MaxFiles = DefaultMaxCachedSpecs
	return config
}

// Load reads, validates, and builds the snapshot at path. Unchanged files
// hit the spec cache; changed files are invalidated in both caches and
// re-read.
func (l *Loader) Load(path string) (*component.Tree, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve snapshot path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot file: %w", err)
	}

	if entry, ok := l.specs.Get(abs); ok {
		if entry.size == info.Size() && entry.mtime.Equal(info.ModTime()) {
			l.hits.Add(1)
			return entry.spec.Build()
		}
		// Stale: the file changed under us. Drop the spec and the byte
		// mapping so the read below sees the new content.
		l.specs.Remove(abs)
		l.files.Invalidate(abs)
		l.logger.Debug("snapshot changed on disk, reloading", "path", abs)
	}
	l.misses.Add(1)

	data, err := l.files.Bytes(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	spec, tree, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", abs, err)
	}

	l.specs.Add(abs, &cachedSpec{spec: spec, size: info.Size(), mtime: info.ModTime()})
	l.logger.Debug("snapshot loaded",
		"path", abs,
		"name", spec.Name,
		"nodes", spec.NodeCount(),
		"overlays", len(spec.Overlays))

	return tree, nil
}

// Invalidate drops any cached state for path. The next Load re-reads the
// file.
func (l *Loader) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	l.specs.Remove(abs)
	l.files.Invalidate(abs)
}

// Stats returns loader cache metrics.
func (l *Loader) Stats() LoaderStats {
	return LoaderStats{
		Hits:        l.hits.Load(),
		Misses:      l.misses.Load(),
		CachedSpecs: l.specs.Len(),
	}
}

// Close releases the underlying file cache.
func (l *Loader) Close() error {
	l.specs.Purge()
	return l.files.Close()
}
