package snapshot

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/uifind/pkg/component"
)

// reloadRecorder collects watcher callbacks.
type reloadRecorder struct {
	mu    sync.Mutex
	paths []string
	trees []*component.Tree
	errs  []error
}

func (r *reloadRecorder) callback(path string, tree *component.Tree, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	r.trees = append(r.trees, tree)
	r.errs = append(r.errs, err)
}

func TestWatcher_StartStop(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, filepath.Join(dir, "app.json"), 1)

	loader := NewLoader(LoaderConfig{})
	defer loader.Close()

	rec := &reloadRecorder{}
	w := NewWatcher(loader, DefaultWatchOptions(), rec.callback, nil)

	require.Error(t, w.Start(filepath.Join(dir, "missing")))

	require.NoError(t, w.Start(dir))
	assert.True(t, w.GetStats().IsRunning)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop()) // idempotent
	assert.False(t, w.GetStats().IsRunning)

	assert.Error(t, w.Start(dir), "stopped watchers do not restart")
}

// TestWatcher_Reload drives the reload path directly; event delivery timing
// belongs to fsnotify, not to us.
func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.json")
	writeSnapshot(t, path, 2)

	loader := NewLoader(LoaderConfig{})
	defer loader.Close()

	rec := &reloadRecorder{}
	w := NewWatcher(loader, DefaultWatchOptions(), rec.callback, nil)
	defer w.Stop()

	w.reload(path)

	require.Len(t, rec.paths, 1)
	require.NoError(t, rec.errs[0])
	require.NotNil(t, rec.trees[0])
	assert.Len(t, rec.trees[0].Root().Children(), 2)

	// A removal reports an error and no tree.
	w.removeSnapshot(path)
	require.Len(t, rec.paths, 2)
	assert.Nil(t, rec.trees[1])
	assert.ErrorContains(t, rec.errs[1], "snapshot removed")
}

func TestWatcher_SingleFileMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.json")
	writeSnapshot(t, path, 1)

	loader := NewLoader(LoaderConfig{})
	defer loader.Close()

	rec := &reloadRecorder{}
	w := NewWatcher(loader, DefaultWatchOptions(), rec.callback, nil)
	defer w.Stop()

	require.NoError(t, w.Start(path))
	assert.Equal(t, filepath.Clean(path), w.singleFile)
	assert.Equal(t, dir, w.root)
}
