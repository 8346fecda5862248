// FileCache provides fast repeated file access using memory-mapped files.
//
// The locator tooling reads the same files over and over: snapshot JSON
// during watch sessions, JSX/TSX sources while rebuilding trees, batch
// query inputs. Mapping them once and slicing bytes on demand beats
// re-reading from disk, and only the accessed pages enter physical RAM.
//
// **Safety Features:**
//   - Optional MaxFiles limit (prevents file descriptor exhaustion)
//   - Optional MaxMemoryMB limit (prevents runaway virtual memory usage)
//   - Graceful fallback to os.ReadFile if mmap fails
//   - Thread-safe with sync.RWMutex (parallel reads, exclusive writes)
//
// **Lifecycle:**
//   - Lazy loading: files are mapped on first access
//   - Kept mapped until Close() or limits reached
//   - No automatic eviction; callers drop the cache between sessions
package util

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/edsrzf/mmap-go"
)

// FileCache provides fast repeated file access using memory-mapped files.
//
// Thread-safe: multiple goroutines can call methods concurrently. Reads
// don't block each other (RWMutex); only loads and Close block.
type FileCache interface {
	// Get returns the mmap'd file, loading it on first access.
	//
	// Returns an error if the file cannot be read, or if MaxFiles or
	// MaxMemoryMB would be exceeded by loading it.
	Get(filePath string) (*MappedFile, error)

	// Bytes returns the whole file content as a byte view.
	//
	// The view aliases the mapping: it stays valid until Close and must
	// not be mutated. Callers that retain data past the cache lifetime
	// copy it first. Empty files yield an empty slice.
	Bytes(filePath string) ([]byte, error)

	// Invalidate drops one cached file, unmapping it so the next Get
	// re-reads from disk. Unknown paths are ignored. Views handed out
	// for the path become invalid; callers pair Invalidate with their
	// own change detection, never with readers in flight.
	Invalidate(filePath string)

	// Size returns the number of currently cached files.
	Size() int

	// Stats returns current cache metrics: hit/miss ratio, mapped
	// memory, mmap fallbacks.
	Stats() FileCacheStats

	// Close unmaps all files and releases their descriptors. The cache
	// is empty and reusable afterwards.
	Close() error
}

// FileCacheConfig controls FileCache behavior.
type FileCacheConfig struct {
	// MaxFiles is the maximum number of files to keep cached.
	// 0 means unlimited. Snapshot directories rarely exceed a few
	// hundred files; the default leaves ample headroom.
	MaxFiles int

	// MaxMemoryMB is the maximum virtual memory to map, in MB.
	// 0 means unlimited. This bounds address space, not physical RAM;
	// only accessed pages are resident.
	MaxMemoryMB int

	// EnableMetrics determines whether to track cache statistics.
	EnableMetrics bool

	// Logger for warnings and errors. If nil, uses slog.Default().
	Logger *slog.Logger
}

// DefaultFileCacheConfig returns defaults sized for snapshot and source
// directories: thousands of small JSON and JSX files.
func DefaultFileCacheConfig() *FileCacheConfig {
	return &FileCacheConfig{
		MaxFiles:      4096,
		MaxMemoryMB:   512,
		EnableMetrics: true,
		Logger:        nil,
	}
}

// UnboundedFileCacheConfig returns a config with no limits. Use for tests
// and small working sets; monitor memory usage with Stats().
func UnboundedFileCacheConfig() *FileCacheConfig {
	return &FileCacheConfig{
		MaxFiles:      0,
		MaxMemoryMB:   0,
		EnableMetrics: true,
		Logger:        nil,
	}
}

// MappedFile represents a memory-mapped file.
type MappedFile struct {
	// Path is the absolute path to the file.
	Path string

	// Data is the memory-mapped region. Nil for empty files.
	Data mmap.MMap

	// File is the underlying descriptor, kept open so Close can release
	// it. Nil for fallback entries (when mmap failed).
	File *os.File

	// Size is the file size in bytes.
	Size int64

	// MappedAt is when this file was first mapped.
	MappedAt time.Time
}

// FileCacheStats tracks cache performance metrics.
type FileCacheStats struct {
	// FilesLoaded is the total number of files loaded (cumulative).
	FilesLoaded int64

	// FilesCached is the current number of cached files.
	FilesCached int

	// CacheHits is the number of successful cache lookups (cumulative).
	CacheHits int64

	// CacheMisses is the number of cache misses (cumulative). A miss
	// triggers a file load.
	CacheMisses int64

	// MmapFailures counts files that failed to mmap and fell back to
	// os.ReadFile. A high rate indicates OS or permission issues.
	MmapFailures int64

	// TotalMappedMB is the total virtual memory mapped (current).
	TotalMappedMB float64
}

// NewFileCache creates a new FileCache with the given config.
//
// If config is nil, uses DefaultFileCacheConfig().
func NewFileCache(config *FileCacheConfig) FileCache {
	if config == nil {
		config = DefaultFileCacheConfig()
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &fileCacheImpl{
		config:        config,
		cache:         make(map[string]*MappedFile),
		fallbackCache: make(map[string][]byte),
		logger:        config.Logger,
		stats:         FileCacheStats{},
	}
}

// fileCacheImpl is the internal implementation of FileCache.
//
// Thread-safety:
//   - mu (RWMutex): protects cache and fallbackCache maps
//   - statsMu (Mutex): protects stats fields, separate to avoid
//     contention between cache access and stats updates
type fileCacheImpl struct {
	config *FileCacheConfig
	logger *slog.Logger

	cache         map[string]*MappedFile // path → mmap'd file
	fallbackCache map[string][]byte      // path → byte slice (for failed mmaps)
	mu            sync.RWMutex

	stats   FileCacheStats
	statsMu sync.Mutex
}

// Get returns the mmap'd file, loading it on first access.
func (fc *fileCacheImpl) Get(filePath string) (*MappedFile, error) {
	// Fast path: already cached (RLock allows parallel reads).
	fc.mu.RLock()
	if mf, ok := fc.cache[filePath]; ok {
		fc.mu.RUnlock()
		fc.recordHit()
		return mf, nil
	}
	if data, ok := fc.fallbackCache[filePath]; ok {
		fc.mu.RUnlock()
		fc.recordHit()
		return fc.wrapFallbackData(filePath, data), nil
	}
	fc.mu.RUnlock()

	fc.mu.Lock()
	defer fc.mu.Unlock()

	// Double-check: another goroutine may have loaded it while we
	// waited for the write lock.
	if mf, ok := fc.cache[filePath]; ok {
		fc.recordHit()
		return mf, nil
	}
	if data, ok := fc.fallbackCache[filePath]; ok {
		fc.recordHit()
		return fc.wrapFallbackData(filePath, data), nil
	}

	// Check limits before loading. The memory limit needs the size of
	// the incoming file.
	var fileSize int64
	if fc.config.MaxMemoryMB > 0 {
		stat, err := os.Stat(filePath)
		if err != nil {
			fc.recordMiss()
			return nil, fmt.Errorf("failed to stat file %q: %w", filePath, err)
		}
		fileSize = stat.Size()
	}

	if err := fc.checkLimitsWithNewFile(fileSize); err != nil {
		fc.recordMiss()
		return nil, err
	}

	mf, err := fc.loadFile(filePath)
	if err != nil {
		fc.recordMiss()
		return nil, err
	}

	fc.cache[filePath] = mf
	fc.recordLoad()

	return mf, nil
}

// Bytes returns the whole file content as a byte view.
func (fc *fileCacheImpl) Bytes(filePath string) ([]byte, error) {
	mf, err := fc.Get(filePath)
	if err != nil {
		return nil, err
	}
	if len(mf.Data) == 0 {
		return []byte{}, nil
	}
	return []byte(mf.Data), nil
}

// checkLimitsWithNewFile verifies that adding a new file won't exceed
// limits. Must be called while holding mu.Lock.
func (fc *fileCacheImpl) checkLimitsWithNewFile(newFileSize int64) error {
	if fc.config.MaxFiles > 0 {
		currentFiles := len(fc.cache) + len(fc.fallbackCache)
		if currentFiles >= fc.config.MaxFiles {
			return fmt.Errorf("FileCache limit reached: %d files (limit: %d files). "+
				"Increase FileCacheConfig.MaxFiles or close the cache between sessions",
				currentFiles, fc.config.MaxFiles)
		}
	}

	if fc.config.MaxMemoryMB > 0 && newFileSize > 0 {
		currentMB := fc.calculateTotalMappedMBLocked()
		newFileMB := float64(newFileSize) / (1024 * 1024)
		totalAfterLoadMB := currentMB + newFileMB

		if totalAfterLoadMB >= float64(fc.config.MaxMemoryMB) {
			return fmt.Errorf("FileCache memory limit reached: %.2f MB + %.2f MB = %.2f MB (limit: %d MB). "+
				"Increase FileCacheConfig.MaxMemoryMB or close the cache between sessions",
				currentMB, newFileMB, totalAfterLoadMB, fc.config.MaxMemoryMB)
		}
	}

	return nil
}

// loadFile opens and mmaps a file, falling back to os.ReadFile if mmap
// fails. Must be called while holding mu.Lock.
func (fc *fileCacheImpl) loadFile(filePath string) (*MappedFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", filePath, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file %q: %w", filePath, err)
	}

	// Empty files can't be mmap'd.
	if stat.Size() == 0 {
		return &MappedFile{
			Path:     filePath,
			Data:     nil,
			File:     file,
			Size:     0,
			MappedAt: time.Now(),
		}, nil
	}

	mmapData, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		fc.logger.Warn("mmap failed, using fallback",
			"file", filePath,
			"size", stat.Size(),
			"error", err)

		data, readErr := os.ReadFile(filePath)
		if readErr != nil {
			file.Close()
			return nil, fmt.Errorf("mmap failed and fallback failed for %q: mmap error: %v, read error: %w",
				filePath, err, readErr)
		}

		fc.fallbackCache[filePath] = data
		fc.recordMmapFailure()
		file.Close()

		return fc.wrapFallbackData(filePath, data), nil
	}

	return &MappedFile{
		Path:     filePath,
		Data:     mmapData,
		File:     file,
		Size:     stat.Size(),
		MappedAt: time.Now(),
	}, nil
}

// wrapFallbackData wraps a byte slice as a MappedFile so fallback and
// mmap'd entries read the same way.
func (fc *fileCacheImpl) wrapFallbackData(filePath string, data []byte) *MappedFile {
	return &MappedFile{
		Path:     filePath,
		Data:     mmap.MMap(data),
		File:     nil,
		Size:     int64(len(data)),
		MappedAt: time.Now(),
	}
}

// Size returns the number of currently cached files.
// Invalidate drops a single cached file so the next Get re-reads it.
func (fc *fileCacheImpl) Invalidate(filePath string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if mf, exists := fc.cache[filePath]; exists {
		if mf.Data != nil {
			if err := mf.Data.Unmap(); err != nil {
				fc.logger.Warn("failed to unmap file", "path", filePath, "error", err)
			}
		}
		if mf.File != nil {
			if err := mf.File.Close(); err != nil {
				fc.logger.Warn("failed to close file", "path", filePath, "error", err)
			}
		}
		delete(fc.cache, filePath)
	}
	delete(fc.fallbackCache, filePath)
}

func (fc *fileCacheImpl) Size() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	return len(fc.cache) + len(fc.fallbackCache)
}

// Stats returns current cache metrics.
func (fc *fileCacheImpl) Stats() FileCacheStats {
	fc.mu.RLock()
	cachedFiles := len(fc.cache) + len(fc.fallbackCache)
	totalMappedMB := fc.calculateTotalMappedMBLocked()
	fc.mu.RUnlock()

	fc.statsMu.Lock()
	defer fc.statsMu.Unlock()

	stats := fc.stats
	stats.FilesCached = cachedFiles
	stats.TotalMappedMB = totalMappedMB

	return stats
}

// calculateTotalMappedMBLocked sums mapped sizes. Must be called while
// holding mu.RLock or mu.Lock.
func (fc *fileCacheImpl) calculateTotalMappedMBLocked() float64 {
	total := int64(0)

	for _, mf := range fc.cache {
		total += mf.Size
	}
	for _, data := range fc.fallbackCache {
		total += int64(len(data))
	}

	return float64(total) / (1024 * 1024)
}

// Close unmaps all files and releases resources.
func (fc *fileCacheImpl) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	var errs []error

	for path, mf := range fc.cache {
		if mf.Data != nil {
			if err := mf.Data.Unmap(); err != nil {
				fc.logger.Warn("failed to unmap file", "path", path, "error", err)
				errs = append(errs, fmt.Errorf("unmap %q: %w", path, err))
			}
		}
		if mf.File != nil {
			if err := mf.File.Close(); err != nil {
				fc.logger.Warn("failed to close file", "path", path, "error", err)
				errs = append(errs, fmt.Errorf("close %q: %w", path, err))
			}
		}
	}

	fc.cache = make(map[string]*MappedFile)
	fc.fallbackCache = make(map[string][]byte)

	fc.logger.Debug("FileCache closed",
		"files_loaded", fc.stats.FilesLoaded,
		"cache_hits", fc.stats.CacheHits,
		"cache_misses", fc.stats.CacheMisses,
		"mmap_failures", fc.stats.MmapFailures)

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

// Metrics recording methods

func (fc *fileCacheImpl) recordHit() {
	if !fc.config.EnableMetrics {
		return
	}
	fc.statsMu.Lock()
	fc.stats.CacheHits++
	fc.statsMu.Unlock()
}

func (fc *fileCacheImpl) recordMiss() {
	if !fc.config.EnableMetrics {
		return
	}
	fc.statsMu.Lock()
	fc.stats.CacheMisses++
	fc.statsMu.Unlock()
}

func (fc *fileCacheImpl) recordLoad() {
	if !fc.config.EnableMetrics {
		return
	}
	fc.statsMu.Lock()
	fc.stats.FilesLoaded++
	fc.statsMu.Unlock()
}

func (fc *fileCacheImpl) recordMmapFailure() {
	if !fc.config.EnableMetrics {
		return
	}
	fc.statsMu.Lock()
	fc.stats.MmapFailures++
	fc.statsMu.Unlock()
}
