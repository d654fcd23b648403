package templates

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/quarry/internal/config"
	qerrors "github.com/conneroisu/quarry/internal/errors"
	"github.com/conneroisu/quarry/internal/logging"
)

func testEngine(t *testing.T, cfg *config.Config) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	if cfg == nil {
		cfg = &config.Config{ServePort: 8080}
	}
	cfg.Root = root
	cfg.PagesDir = filepath.Join(root, "pages")
	cfg.AssetRoot = cfg.PagesDir
	cfg.LayoutDir = filepath.Join(root, "layout")
	require.NoError(t, os.MkdirAll(cfg.LayoutDir, 0o755))

	log := logging.New(&logging.Config{Level: "error", Output: io.Discard})
	return New(cfg, log, NewLayoutCache(cfg.LayoutDir)), root
}

func writeLayout(t *testing.T, root, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "layout", name), []byte(content), 0o644))
}

func renderTpl(t *testing.T, e *Engine, source string, bindings map[string]any) string {
	t.Helper()
	out, err := e.RenderString(source, "page.liquid", bindings)
	require.NoError(t, err)
	return out
}

func TestLayoutRoundTrip(t *testing.T) {
	e, root := testEngine(t, nil)
	writeLayout(t, root, "theme.liquid", "THEME {{name}}\n{{page_content}}\nEND")

	out := renderTpl(t, e, "{% layout 'theme' %} page content", nil)
	assert.Equal(t, "THEME \n page content\nEND", out)
}

func TestLayoutAttributes(t *testing.T) {
	e, root := testEngine(t, nil)
	writeLayout(t, root, "theme.liquid", "THEME {{name}}\n{{page_content}}\nEND")

	out := renderTpl(t, e, "{% layout 'theme', name: 'quarry' %}body sees {{name}}", nil)
	assert.Equal(t, "THEME quarry\nbody sees quarry\nEND", out)
}

func TestLayoutNameFromVariable(t *testing.T) {
	e, root := testEngine(t, nil)
	writeLayout(t, root, "theme.liquid", "[{{page_content}}]")

	out := renderTpl(t, e, "{% layout which %}x", map[string]any{"which": "theme"})
	assert.Equal(t, "[x]", out)
}

func TestLayoutNotFoundRendersInline(t *testing.T) {
	e, _ := testEngine(t, nil)

	out := renderTpl(t, e, "{% layout 'teme' %}content", nil)
	assert.Equal(t, "No layouts named teme found.", out)
}

func TestLayoutAmbiguousRendersInline(t *testing.T) {
	e, root := testEngine(t, nil)
	writeLayout(t, root, "theme.liquid", "a")
	writeLayout(t, root, "theme.html", "b")

	out := renderTpl(t, e, "{% layout 'theme' %}content", nil)
	assert.Equal(t, "Multiple layouts named theme found.", out)
}

func TestLayoutSeesPageBindings(t *testing.T) {
	e, root := testEngine(t, nil)
	writeLayout(t, root, "theme.liquid", "{{greeting}}: {{page_content}}")

	out := renderTpl(t, e, "{% layout 'theme' %}body", map[string]any{"greeting": "hi"})
	assert.Equal(t, "hi: body", out)
}

func TestLayoutSyntaxErrorRendersInline(t *testing.T) {
	e, root := testEngine(t, nil)
	writeLayout(t, root, "theme.liquid", "{% nosuchtag %}")

	out := renderTpl(t, e, "{% layout 'theme' %}x", nil)
	assert.Contains(t, out, "Layout theme failed")
}

func TestLayoutParseCachedAcrossRenders(t *testing.T) {
	e, root := testEngine(t, nil)
	writeLayout(t, root, "theme.liquid", "v1 {{page_content}}")
	assert.Equal(t, "v1 x", renderTpl(t, e, "{% layout 'theme' %}x", nil))

	// The edit is invisible until the cache is cleared at a full rebuild.
	writeLayout(t, root, "theme.liquid", "v2 {{page_content}}")
	assert.Equal(t, "v1 x", renderTpl(t, e, "{% layout 'theme' %}x", nil))

	e.Layouts().Clear()
	assert.Equal(t, "v2 x", renderTpl(t, e, "{% layout 'theme' %}x", nil))
}

func TestLayoutCacheResolution(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "layout")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.liquid"), []byte("x"), 0o644))

	cache := NewLayoutCache(dir)
	path, err := cache.Resolve("main")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "main.liquid"), path)

	// Resolution survives the file disappearing until the cache is cleared.
	require.NoError(t, os.Remove(filepath.Join(dir, "main.liquid")))
	path, err = cache.Resolve("main")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "main.liquid"), path)

	cache.Clear()
	_, err = cache.Resolve("main")
	var lerr *qerrors.LayoutError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, qerrors.LayoutNotFound, lerr.Kind)
}

func TestAssetFromRootTemplate(t *testing.T) {
	e, _ := testEngine(t, nil)

	out := renderTpl(t, e, `{% asset 'foo/bar.thing' %}`, map[string]any{"template_path": "index"})
	assert.Equal(t, "foo/bar.thing", out)
}

func TestAssetFromNestedTemplate(t *testing.T) {
	e, _ := testEngine(t, nil)

	out := renderTpl(t, e, `{% asset 'foo/bar.thing' %}`, map[string]any{"template_path": "subdir/template"})
	assert.Equal(t, "../foo/bar.thing", out)
}

func TestAssetServeInDevMode(t *testing.T) {
	e, _ := testEngine(t, &config.Config{ServePort: 9191, DevMode: true})

	out := renderTpl(t, e, `{% asset 'img/logo.png', serve: true %}`, map[string]any{"template_path": "index"})
	assert.Equal(t, "http://localhost:9191/img/logo.png", out)
}

func TestAssetServeIgnoredOutsideDevMode(t *testing.T) {
	e, _ := testEngine(t, &config.Config{ServePort: 9191})

	out := renderTpl(t, e, `{% asset 'img/logo.png', serve: true %}`, map[string]any{"template_path": "subdir/page"})
	assert.Equal(t, "../img/logo.png", out)
}

func TestAssetCustomRootPrefixesPath(t *testing.T) {
	e, root := testEngine(t, nil)
	e.cfg.AssetRoot = filepath.Join(root, "media")

	out := renderTpl(t, e, `{% asset 'foo.png' %}`, map[string]any{"template_path": "index"})
	assert.Equal(t, "media/foo.png", out)

	out = renderTpl(t, e, `{% asset 'foo.png' %}`, map[string]any{"template_path": "subdir/page"})
	assert.Equal(t, "../media/foo.png", out)
}

func TestAssetCustomRootServeURL(t *testing.T) {
	e, root := testEngine(t, &config.Config{ServePort: 9191, DevMode: true})
	e.cfg.AssetRoot = filepath.Join(root, "media")

	out := renderTpl(t, e, `{% asset 'logo.png', serve: true %}`, map[string]any{"template_path": "index"})
	assert.Equal(t, "http://localhost:9191/media/logo.png", out)
}

func TestAssetMissingRoot(t *testing.T) {
	e, _ := testEngine(t, nil)
	e.cfg.AssetRoot = ""

	_, err := e.RenderString(`{% asset 'foo.png' %}`, "page.liquid", map[string]any{"template_path": "index"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset root")
}

func TestAssetRequiresTemplatePath(t *testing.T) {
	e, _ := testEngine(t, nil)

	_, err := e.RenderString(`{% asset 'foo/bar.thing' %}`, "page.liquid", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template_path")
}

func TestParseTagArgs(t *testing.T) {
	head, attrs, err := parseTagArgs(`'theme', title: 'a, b', serve: true`)
	require.NoError(t, err)
	assert.Equal(t, `'theme'`, head)
	require.Len(t, attrs, 2)
	assert.Equal(t, tagAttr{Key: "title", Expr: `'a, b'`}, attrs[0])
	assert.Equal(t, tagAttr{Key: "serve", Expr: "true"}, attrs[1])

	_, _, err = parseTagArgs("")
	assert.Error(t, err)

	_, _, err = parseTagArgs(`'theme', bare`)
	assert.Error(t, err)
}

func TestCloseLayoutTags(t *testing.T) {
	src := closeLayoutTags([]byte("{% layout 'a' %}body"))
	assert.Equal(t, "{% layout 'a' %}body{% endlayout %}", string(src))

	// Text without a layout tag passes through untouched.
	plain := []byte("{% if x %}y{% endif %}")
	assert.Equal(t, plain, closeLayoutTags(plain))
}

func TestCloseLayoutTagsSkipsVerbatimBlocks(t *testing.T) {
	raw := []byte("{% raw %}{% layout 'a' %}{% endraw %}")
	assert.Equal(t, raw, closeLayoutTags(raw))

	comment := []byte("{% comment %}{% layout 'a' %}{% endcomment %}")
	assert.Equal(t, comment, closeLayoutTags(comment))

	// Only the tag outside the raw block gets a closer.
	mixed := closeLayoutTags([]byte("{% raw %}{% layout 'x' %}{% endraw %}{% layout 'a' %}b"))
	assert.Equal(t, "{% raw %}{% layout 'x' %}{% endraw %}{% layout 'a' %}b{% endlayout %}",
		string(mixed))
}

func TestCloseLayoutTagsSkipsQuotedStrings(t *testing.T) {
	assign := []byte(`{% assign x = "{% layout 'a' %}" %}`)
	assert.Equal(t, assign, closeLayoutTags(assign))

	output := []byte(`{{ "{% layout 'a' %}" }}`)
	assert.Equal(t, output, closeLayoutTags(output))
}
