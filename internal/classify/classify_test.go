package classify

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conneroisu/quarry/internal/config"
)

func siteConfig(root string) *config.Config {
	return &config.Config{
		Root:       root,
		PagesDir:   filepath.Join(root, "pages"),
		ObjectsDir: filepath.Join(root, "objects"),
		BuildDir:   filepath.Join(root, "dist"),
		StaticDir:  filepath.Join(root, "public"),
		LayoutDir:  filepath.Join(root, "layout"),
		AssetDirs:  []string{filepath.Join(root, "img")},
	}
}

func TestClassify(t *testing.T) {
	root := t.TempDir()
	cfg := siteConfig(root)

	cases := []struct {
		path string
		want Target
	}{
		{filepath.Join(root, "pages", "index.liquid"), Pages},
		{filepath.Join(root, "pages", "nested", "about.liquid"), Pages},
		{filepath.Join(root, "objects", "artists", "a.toml"), Objects},
		{filepath.Join(root, "img", "logo.png"), Assets},
		{filepath.Join(root, "public", "favicon.ico"), Assets},
		{filepath.Join(root, "layout", "theme.liquid"), Layout},
		{filepath.Join(root, "manifest.toml"), Config},
		{filepath.Join(root, "objects.toml"), Config},
		{filepath.Join(root, "README.md"), None},
		{filepath.Join(root, "dist", "index.html"), None},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.path, cfg), "path %s", tc.path)
	}
}

func TestClassifySiblingPrefixNotContained(t *testing.T) {
	root := t.TempDir()
	cfg := siteConfig(root)

	// "pages-old" shares a prefix with "pages" but is a different directory.
	assert.Equal(t, None, Classify(filepath.Join(root, "pages-old", "index.liquid"), cfg))
	assert.Equal(t, None, Classify(filepath.Join(root, "objectsx", "a.toml"), cfg))
}

func TestClassifyPriorityPagesOverBasename(t *testing.T) {
	root := t.TempDir()
	cfg := siteConfig(root)

	// A schema-named file inside the pages tree still belongs to pages.
	assert.Equal(t, Pages, Classify(filepath.Join(root, "pages", "objects.toml"), cfg))
}

func TestFullRebuildTargets(t *testing.T) {
	assert.True(t, Layout.FullRebuild())
	assert.True(t, Config.FullRebuild())
	assert.False(t, Pages.FullRebuild())
	assert.False(t, Objects.FullRebuild())
	assert.False(t, Assets.FullRebuild())
	assert.False(t, None.FullRebuild())
}
