package jsxtree

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/uifind/pkg/component"
	"github.com/gnana997/uifind/pkg/locator"
	"github.com/gnana997/uifind/pkg/util"
)

const loginJSX = `
export function LoginForm() {
  const onSubmit = () => {};
  return (
    <VerticalLayout id="form">
      <TextField id="user" caption="Username" />
      <PasswordField id="pass" caption='Password' />
      <div className="actions">
        <Button caption="Sign in" disabled onClick={onSubmit} />
      </div>
    </VerticalLayout>
  );
}
`

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b := NewBuilder(BuilderConfig{})
	t.Cleanup(b.Close)
	return b
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, LanguageTypeScript, DetectLanguage("app.ts"))
	assert.Equal(t, LanguageTypeScript, DetectLanguage("app.tsx"))
	assert.Equal(t, LanguageJavaScript, DetectLanguage("app.jsx"))
	assert.Equal(t, LanguageJavaScript, DetectLanguage("app.mjs"))
	assert.Equal(t, LanguageUnknown, DetectLanguage("app.css"))

	assert.True(t, IsTSXFile("App.TSX"))
	assert.False(t, IsTSXFile("app.ts"))
}

func TestBuild_JSXComponents(t *testing.T) {
	b := newTestBuilder(t)

	tree, err := b.Build("login.jsx", []byte(loginJSX))
	require.NoError(t, err)

	root := tree.Root()
	assert.Equal(t, "login.jsx", root.DisplayName())
	assert.Equal(t, "uikit.widget.UI", root.PrimaryIdentifier())

	require.Len(t, root.Children(), 1)
	layout := root.Children()[0]
	assert.Equal(t, "VerticalLayout", layout.DisplayName())
	assert.Equal(t, "uikit.widget.VerticalLayout", layout.PrimaryIdentifier())

	// The intrinsic <div> contributes no node; the button attaches to the
	// layout alongside the fields.
	require.Len(t, layout.Children(), 3)
	assert.Equal(t, "TextField", layout.Children()[0].DisplayName())
	assert.Equal(t, "PasswordField", layout.Children()[1].DisplayName())
	assert.Equal(t, "Button", layout.Children()[2].DisplayName())

	caption, ok := layout.Children()[1].Attribute("caption")
	require.True(t, ok)
	assert.Equal(t, "Password", caption)
}

func TestBuild_QueriesResolve(t *testing.T) {
	b := newTestBuilder(t)

	tree, err := b.Build("login.jsx", []byte(loginJSX))
	require.NoError(t, err)

	loc := locator.New(tree, nil)

	nodes := loc.Resolve(`//Button[caption="Sign in"]`)
	require.Len(t, nodes, 1)

	nodes = loc.Resolve(`/VerticalLayout[id="form"]/TextField`)
	require.Len(t, nodes, 1)

	q, ok := loc.Synthesize(nodes[0])
	require.True(t, ok)
	assert.Equal(t, `(//TextField[id="user"])[0]`, q)
}

func TestBuild_AttributeForms(t *testing.T) {
	b := newTestBuilder(t)

	source := `
const x = <Button disabled value={"ok"} onClick={fn} count={3} />;
`
	tree, err := b.Build("widget.jsx", []byte(source))
	require.NoError(t, err)

	require.Len(t, tree.Root().Children(), 1)
	button := tree.Root().Children()[0]

	// Bare attribute: present with empty value.
	v, ok := button.Attribute("disabled")
	require.True(t, ok)
	assert.Equal(t, "", v)

	// String literal inside a JSX expression.
	v, ok = button.Attribute("value")
	require.True(t, ok)
	assert.Equal(t, "ok", v)

	// Dynamic expressions are not representable.
	_, ok = button.Attribute("onClick")
	assert.False(t, ok)
	_, ok = button.Attribute("count")
	assert.False(t, ok)
}

func TestBuild_MemberExpressionTags(t *testing.T) {
	b := newTestBuilder(t)

	source := `
export const Orders = () => (
  <UI.Table id="orders">
    <UI.Table.Column caption="Qty" />
  </UI.Table>
);
`
	tree, err := b.Build("orders.tsx", []byte(source))
	require.NoError(t, err)

	require.Len(t, tree.Root().Children(), 1)
	table := tree.Root().Children()[0]
	assert.Equal(t, "UI.Table", table.DisplayName())
	assert.Equal(t, "uikit.widget.Table", table.PrimaryIdentifier())

	require.Len(t, table.Children(), 1)
	assert.Equal(t, "uikit.widget.Column", table.Children()[0].PrimaryIdentifier())
}

func TestBuild_Fragments(t *testing.T) {
	b := newTestBuilder(t)

	source := `
export const Pair = () => (
  <>
    <Button caption="A" />
    <Button caption="B" />
  </>
);
`
	tree, err := b.Build("pair.jsx", []byte(source))
	require.NoError(t, err)

	require.Len(t, tree.Root().Children(), 2)
}

func TestBuild_LowercaseOnlyIsEmpty(t *testing.T) {
	b := newTestBuilder(t)

	tree, err := b.Build("plain.jsx", []byte(`const x = <div><span>hi</span></div>;`))
	require.NoError(t, err)
	assert.Empty(t, tree.Root().Children())
}

func TestBuild_UnsupportedExtension(t *testing.T) {
	b := newTestBuilder(t)

	_, err := b.Build("styles.css", []byte("body {}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported source file type")
}

func TestBuild_PartialOnSyntaxErrors(t *testing.T) {
	b := newTestBuilder(t)

	// Unclosed function body after the JSX.
	source := `
function Broken() {
  return <Button caption="OK" />;
`
	tree, err := b.Build("broken.jsx", []byte(source))
	require.NoError(t, err)
	assert.Len(t, tree.Root().Children(), 1)
	assert.Equal(t, int64(1), b.Stats().ParseErrors)
}

func TestBuildFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "login.jsx")
	require.NoError(t, os.WriteFile(path, []byte(loginJSX), 0644))

	b := newTestBuilder(t)

	tree, err := b.BuildFile(path)
	require.NoError(t, err)
	assert.Equal(t, "login.jsx", tree.Root().DisplayName())

	_, err = b.BuildFile(filepath.Join(dir, "missing.jsx"))
	require.Error(t, err)
}

func TestBuildFile_ThroughFileCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "login.jsx")
	require.NoError(t, os.WriteFile(path, []byte(loginJSX), 0644))

	cache := util.NewFileCache(util.DefaultFileCacheConfig())
	defer cache.Close()

	b := NewBuilder(BuilderConfig{FileCache: cache})
	defer b.Close()

	_, err := b.BuildFile(path)
	require.NoError(t, err)
	_, err = b.BuildFile(path)
	require.NoError(t, err)

	assert.Equal(t, int64(1), cache.Stats().FilesLoaded)
}

func TestBuild_Concurrent(t *testing.T) {
	b := newTestBuilder(t)

	var wg sync.WaitGroup
	trees := make([]*component.Tree, 16)
	errs := make([]error, 16)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			trees[slot], errs[slot] = b.Build("login.jsx", []byte(loginJSX))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		require.NoError(t, errs[i])
		require.Len(t, trees[i].Root().Children(), 1)
	}
	assert.Equal(t, int64(16), b.Stats().FilesParsed)
}
