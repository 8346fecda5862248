package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSnapshot writes a snapshot JSON with the given number of buttons so
// tests can tell revisions apart by child count (and by file size, which
// the loader uses for change detection).
func writeSnapshot(t *testing.T, path string, buttons int) {
	t.Helper()

	children := ""
	for i := 0; i < buttons; i++ {
		if i > 0 {
			children += ","
		}
		children += fmt.Sprintf(`{"type": "uikit.widget.Button", "attributes": {"id": "b%d"}}`, i)
	}
	data := fmt.Sprintf(`{"root": {"type": "uikit.widget.UI", "children": [%s]}}`, children)
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

func TestLoader_CachesUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.json")
	writeSnapshot(t, path, 2)

	loader := NewLoader(LoaderConfig{})
	defer loader.Close()

	first, err := loader.Load(path)
	require.NoError(t, err)
	second, err := loader.Load(path)
	require.NoError(t, err)

	// Same content, but never the same tree.
	assert.NotSame(t, first, second)
	assert.Len(t, second.Root().Children(), 2)

	stats := loader.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.CachedSpecs)
}

func TestLoader_DetectsChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.json")
	writeSnapshot(t, path, 1)

	loader := NewLoader(LoaderConfig{})
	defer loader.Close()

	tree, err := loader.Load(path)
	require.NoError(t, err)
	require.Len(t, tree.Root().Children(), 1)

	// Rewrite with more children; the size change defeats mtime
	// granularity.
	writeSnapshot(t, path, 3)

	tree, err = loader.Load(path)
	require.NoError(t, err)
	assert.Len(t, tree.Root().Children(), 3)

	stats := loader.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestLoader_Invalidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.json")
	writeSnapshot(t, path, 1)

	loader := NewLoader(LoaderConfig{})
	defer loader.Close()

	_, err := loader.Load(path)
	require.NoError(t, err)

	loader.Invalidate(path)

	_, err = loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loader.Stats().Misses)
}

func TestLoader_MissingFile(t *testing.T) {
	loader := NewLoader(LoaderConfig{})
	defer loader.Close()

	_, err := loader.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat snapshot file")
}

func TestLoader_InvalidSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"root": {}}`), 0644))

	loader := NewLoader(LoaderConfig{})
	defer loader.Close()

	_, err := loader.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot validation failed")
	// Nothing cached for a failed load.
	assert.Equal(t, 0, loader.Stats().CachedSpecs)
}
